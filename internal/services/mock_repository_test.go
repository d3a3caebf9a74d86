package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
)

// mockRepository is an in-memory Repository for service tests. All sub-repos
// share the same maps, so transactional callbacks see the same state.
type mockRepository struct {
	mu sync.Mutex

	users       map[uint]*models.User
	teachers    map[uint]*models.Teacher
	students    map[uint]*models.Student
	exams       map[uint]*models.Exam
	questions   map[uint]*models.Question
	submissions map[uint]*models.Submission
	answers     map[uint]*models.Answer

	nextID uint

	// failTransaction forces WithTransaction callbacks to roll back by
	// returning this error straight through.
	failTransaction error

	// submissionExistsBlind makes the duplicate pre-check report no
	// submission, mimicking the race window where a concurrent attempt
	// has not committed yet and the unique index must arbitrate.
	submissionExistsBlind bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:       make(map[uint]*models.User),
		teachers:    make(map[uint]*models.Teacher),
		students:    make(map[uint]*models.Student),
		exams:       make(map[uint]*models.Exam),
		questions:   make(map[uint]*models.Question),
		submissions: make(map[uint]*models.Submission),
		answers:     make(map[uint]*models.Answer),
	}
}

func (m *mockRepository) id() uint {
	m.nextID++
	return m.nextID
}

func (m *mockRepository) User() repositories.UserRepository             { return (*mockUserRepo)(m) }
func (m *mockRepository) Teacher() repositories.TeacherRepository       { return (*mockTeacherRepo)(m) }
func (m *mockRepository) Student() repositories.StudentRepository       { return (*mockStudentRepo)(m) }
func (m *mockRepository) Exam() repositories.ExamRepository             { return (*mockExamRepo)(m) }
func (m *mockRepository) Question() repositories.QuestionRepository     { return (*mockQuestionRepo)(m) }
func (m *mockRepository) Submission() repositories.SubmissionRepository { return (*mockSubmissionRepo)(m) }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if m.failTransaction != nil {
		return m.failTransaction
	}
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// Seed helpers

func (m *mockRepository) addUser(u *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	m.users[u.ID] = u
	return u
}

func (m *mockRepository) addTeacher(t *models.Teacher) *models.Teacher {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.id()
	}
	m.teachers[t.ID] = t
	return t
}

func (m *mockRepository) addStudent(s *models.Student) *models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.id()
	}
	m.students[s.ID] = s
	return s
}

func (m *mockRepository) addExam(e *models.Exam) *models.Exam {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		e.ID = m.id()
	}
	m.exams[e.ID] = e
	return e
}

func (m *mockRepository) addQuestion(q *models.Question) *models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == 0 {
		q.ID = m.id()
	}
	m.questions[q.ID] = q
	return q
}

// ===== USER =====

type mockUserRepo mockRepository

func (m *mockUserRepo) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = (*mockRepository)(m).id()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, tx *gorm.DB, username string, excludeID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string, excludeID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// ===== TEACHER =====

type mockTeacherRepo mockRepository

func (m *mockTeacherRepo) Create(ctx context.Context, tx *gorm.DB, teacher *models.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.EmployeeID == teacher.EmployeeID {
			return repositories.ErrDuplicate
		}
	}
	teacher.ID = (*mockRepository)(m).id()
	m.teachers[teacher.ID] = teacher
	return nil
}

func (m *mockTeacherRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teachers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if u, ok := m.users[t.UserID]; ok {
		t.User = *u
	}
	return t, nil
}

func (m *mockTeacherRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uint) (*models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.TeacherFilters) ([]*models.Teacher, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Teacher
	for _, t := range m.teachers {
		if filters.Status != nil && t.Status != *filters.Status {
			continue
		}
		if filters.AssignedClass != nil && t.AssignedClass != *filters.AssignedClass {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, tx *gorm.DB, teacher *models.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teachers[teacher.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.teachers[teacher.ID] = teacher
	return nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.teachers, id)
	return nil
}

// ===== STUDENT =====

type mockStudentRepo mockRepository

func (m *mockStudentRepo) Create(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.RollNumber == student.RollNumber && s.StudentClass == student.StudentClass {
			return repositories.ErrDuplicate
		}
	}
	student.ID = (*mockRepository)(m).id()
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if u, ok := m.users[s.UserID]; ok {
		s.User = *u
	}
	return s, nil
}

func (m *mockStudentRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uint) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.StudentFilters) ([]*models.Student, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Student
	for _, s := range m.students {
		if filters.Status != nil && s.Status != *filters.Status {
			continue
		}
		if filters.StudentClass != nil && s.StudentClass != *filters.StudentClass {
			continue
		}
		if filters.AssignedTeacherID != nil &&
			(s.AssignedTeacherID == nil || *s.AssignedTeacherID != *filters.AssignedTeacherID) {
			continue
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (m *mockStudentRepo) Update(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[student.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.students, id)
	return nil
}

func (m *mockStudentRepo) ClearAssignedTeacher(ctx context.Context, tx *gorm.DB, teacherID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.AssignedTeacherID != nil && *s.AssignedTeacherID == teacherID {
			s.AssignedTeacherID = nil
		}
	}
	return nil
}

// ===== EXAM =====

type mockExamRepo mockRepository

func (m *mockExamRepo) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam.ID = (*mockRepository)(m).id()
	m.exams[exam.ID] = exam
	return nil
}

func (m *mockExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (m *mockExamRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	m.mu.Lock()
	e, ok := m.exams[id]
	if !ok {
		m.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	e.Questions = nil
	for _, q := range m.questions {
		if q.ExamID == id {
			e.Questions = append(e.Questions, *q)
		}
	}
	m.mu.Unlock()
	return e, nil
}

func (m *mockExamRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Exam
	for _, e := range m.exams {
		if filters.Scope != nil && e.Scope != *filters.Scope {
			continue
		}
		if filters.CreatedByID != nil && e.CreatedByID != *filters.CreatedByID {
			continue
		}
		if filters.AssignedTeacherID != nil &&
			(e.AssignedTeacherID == nil || *e.AssignedTeacherID != *filters.AssignedTeacherID) {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (m *mockExamRepo) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[exam.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.exams[exam.ID] = exam
	return nil
}

func (m *mockExamRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.exams, id)
	return nil
}

func (m *mockExamRepo) EligibleStudents(ctx context.Context, tx *gorm.DB, exam *models.Exam) ([]*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Student
	for _, s := range m.students {
		if eligibleInMock(exam, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockExamRepo) IsEligible(ctx context.Context, tx *gorm.DB, exam *models.Exam, studentID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[studentID]
	if !ok {
		return false, nil
	}
	return eligibleInMock(exam, s), nil
}

// eligibleInMock mirrors the SQL eligibility predicates.
func eligibleInMock(exam *models.Exam, s *models.Student) bool {
	if s.Status != models.StatusActive {
		return false
	}
	switch exam.Scope {
	case models.ScopeSchool:
		return exam.TargetStandard != nil && strings.HasPrefix(s.StudentClass, *exam.TargetStandard)
	case models.ScopeClass:
		if exam.TargetClass == nil || exam.AssignedTeacherID == nil {
			return false
		}
		if s.AssignedTeacherID == nil || *s.AssignedTeacherID != *exam.AssignedTeacherID {
			return false
		}
		return s.StudentClass == *exam.TargetClass
	}
	return false
}

// ===== QUESTION =====

type mockQuestionRepo mockRepository

func (m *mockQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	question.ID = (*mockRepository)(m).id()
	m.questions[question.ID] = question
	return nil
}

func (m *mockQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (m *mockQuestionRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Question
	for _, q := range m.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *mockQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.questions[question.ID] = question
	return nil
}

func (m *mockQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.questions, id)
	return nil
}

// ===== SUBMISSION =====

type mockSubmissionRepo mockRepository

func (m *mockSubmissionRepo) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.submissions {
		if s.ExamID == submission.ExamID && s.StudentID == submission.StudentID {
			return repositories.ErrDuplicate
		}
	}
	submission.ID = (*mockRepository)(m).id()
	m.submissions[submission.ID] = submission
	return nil
}

func (m *mockSubmissionRepo) CreateAnswers(ctx context.Context, tx *gorm.DB, answers []*models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range answers {
		a.ID = (*mockRepository)(m).id()
		m.answers[a.ID] = a
	}
	return nil
}

func (m *mockSubmissionRepo) Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.submissions[submission.ID] = submission
	return nil
}

func (m *mockSubmissionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (m *mockSubmissionRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	m.hydrate(sub)
	return sub, nil
}

func (m *mockSubmissionRepo) Exists(ctx context.Context, tx *gorm.DB, examID, studentID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submissionExistsBlind {
		return false, nil
	}
	for _, s := range m.submissions {
		if s.ExamID == examID && s.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSubmissionRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Submission
	for _, s := range m.submissions {
		if s.StudentID == studentID {
			m.hydrate(s)
			out = append(out, s)
		}
	}
	sortSubmissions(out)
	return out, nil
}

func (m *mockSubmissionRepo) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID uint) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Submission
	for _, sub := range m.submissions {
		student, ok := m.students[sub.StudentID]
		if !ok || student.AssignedTeacherID == nil || *student.AssignedTeacherID != teacherID {
			continue
		}
		m.hydrate(sub)
		out = append(out, sub)
	}
	sortSubmissions(out)
	return out, nil
}

func (m *mockSubmissionRepo) hydrate(sub *models.Submission) {
	if e, ok := m.exams[sub.ExamID]; ok {
		exam := *e
		if u, ok := m.users[e.CreatedByID]; ok {
			exam.CreatedBy = *u
		}
		sub.Exam = exam
	}
	if s, ok := m.students[sub.StudentID]; ok {
		if u, ok := m.users[s.UserID]; ok {
			s.User = *u
		}
		sub.Student = *s
	}

	sub.Answers = nil
	for _, a := range m.answers {
		if a.SubmissionID != sub.ID {
			continue
		}
		answer := *a
		if q, ok := m.questions[a.QuestionID]; ok {
			answer.Question = *q
		}
		sub.Answers = append(sub.Answers, answer)
	}
	sort.Slice(sub.Answers, func(i, j int) bool {
		return sub.Answers[i].ID < sub.Answers[j].ID
	})
}

func sortSubmissions(subs []*models.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].ExamID != subs[j].ExamID {
			return subs[i].ExamID < subs[j].ExamID
		}
		return subs[i].StudentID < subs[j].StudentID
	})
}
