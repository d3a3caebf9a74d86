package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/scholaris/school-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func uintPtr(u uint) *uint    { return &u }

// seedSchool builds a small school: one admin, one teacher running 10A, and
// three students (10A assigned to the teacher, 10B unassigned, 9A).
type schoolFixture struct {
	repo      *mockRepository
	admin     *models.User
	teacher   *models.Teacher
	teacherU  *models.User
	studentA  *models.Student
	studentAU *models.User
	studentB  *models.Student
	studentC  *models.Student
}

func seedSchool() *schoolFixture {
	repo := newMockRepository()

	admin := repo.addUser(&models.User{Username: "principal", Email: "principal@school.test", FirstName: "Priya", Role: models.RoleAdmin})

	teacherU := repo.addUser(&models.User{Username: "mwilson", Email: "mwilson@school.test", FirstName: "Mary", Role: models.RoleTeacher})
	teacher := repo.addTeacher(&models.Teacher{UserID: teacherU.ID, EmployeeID: "EMP001", AssignedClass: "10A", Status: models.StatusActive})

	studentAU := repo.addUser(&models.User{Username: "asha", Email: "asha@school.test", FirstName: "Asha", Role: models.RoleStudent})
	studentA := repo.addStudent(&models.Student{UserID: studentAU.ID, RollNumber: "001", StudentClass: "10A", Status: models.StatusActive, AssignedTeacherID: &teacher.ID})

	studentBU := repo.addUser(&models.User{Username: "ben", Email: "ben@school.test", FirstName: "Ben", Role: models.RoleStudent})
	studentB := repo.addStudent(&models.Student{UserID: studentBU.ID, RollNumber: "002", StudentClass: "10B", Status: models.StatusActive})

	studentCU := repo.addUser(&models.User{Username: "chitra", Email: "chitra@school.test", FirstName: "Chitra", Role: models.RoleStudent})
	studentC := repo.addStudent(&models.Student{UserID: studentCU.ID, RollNumber: "003", StudentClass: "9A", Status: models.StatusActive})

	return &schoolFixture{
		repo:      repo,
		admin:     admin,
		teacher:   teacher,
		teacherU:  teacherU,
		studentA:  studentA,
		studentAU: studentAU,
		studentB:  studentB,
		studentC:  studentC,
	}
}

func TestEligibilityService_IsEligible(t *testing.T) {
	fx := seedSchool()
	svc := NewEligibilityService(fx.repo, testLogger())
	ctx := context.Background()

	schoolExam := &models.Exam{
		ID:             100,
		Scope:          models.ScopeSchool,
		TargetStandard: strPtr("10"),
	}
	classExam := &models.Exam{
		ID:                101,
		Scope:             models.ScopeClass,
		TargetClass:       strPtr("10A"),
		AssignedTeacherID: &fx.teacher.ID,
	}

	tests := []struct {
		name    string
		exam    *models.Exam
		student *models.Student
		want    bool
	}{
		{"school exam matches 10A", schoolExam, fx.studentA, true},
		{"school exam matches 10B", schoolExam, fx.studentB, true},
		{"school exam rejects standard 9", schoolExam, fx.studentC, false},
		{"class exam admits assigned 10A student", classExam, fx.studentA, true},
		{"class exam rejects unassigned 10B student", classExam, fx.studentB, false},
		{"class exam rejects other standard", classExam, fx.studentC, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.IsEligible(ctx, tt.exam, tt.student)
			if err != nil {
				t.Fatalf("IsEligible returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsEligible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEligibilityService_IsEligible_InactiveStudent(t *testing.T) {
	fx := seedSchool()
	svc := NewEligibilityService(fx.repo, testLogger())

	fx.studentA.Status = models.StatusInactive
	exam := &models.Exam{Scope: models.ScopeSchool, TargetStandard: strPtr("10")}

	got, err := svc.IsEligible(context.Background(), exam, fx.studentA)
	if err != nil {
		t.Fatalf("IsEligible returned error: %v", err)
	}
	if got {
		t.Error("inactive student must not be eligible")
	}
}

func TestEligibilityService_EligibleStudents(t *testing.T) {
	fx := seedSchool()
	svc := NewEligibilityService(fx.repo, testLogger())
	ctx := context.Background()

	exam := fx.repo.addExam(&models.Exam{
		Title:          "Midterm",
		Scope:          models.ScopeSchool,
		TargetStandard: strPtr("10"),
		StartTime:      time.Now(),
		CreatedByID:    fx.admin.ID,
	})

	students, err := svc.EligibleStudents(ctx, exam.ID, fx.admin.ID)
	if err != nil {
		t.Fatalf("EligibleStudents returned error: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("expected 2 eligible students, got %d", len(students))
	}
	for _, s := range students {
		if s.StudentClass != "10A" && s.StudentClass != "10B" {
			t.Errorf("unexpected class %s in eligible set", s.StudentClass)
		}
	}
}

func TestEligibilityService_EligibleStudents_StudentForbidden(t *testing.T) {
	fx := seedSchool()
	svc := NewEligibilityService(fx.repo, testLogger())

	exam := fx.repo.addExam(&models.Exam{
		Title:          "Midterm",
		Scope:          models.ScopeSchool,
		TargetStandard: strPtr("10"),
		CreatedByID:    fx.admin.ID,
	})

	_, err := svc.EligibleStudents(context.Background(), exam.ID, fx.studentAU.ID)
	if !IsPermissionError(err) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestEligibilityService_EligibleStudents_OtherTeacherForbidden(t *testing.T) {
	fx := seedSchool()
	svc := NewEligibilityService(fx.repo, testLogger())

	otherU := fx.repo.addUser(&models.User{Username: "other", Email: "other@school.test", FirstName: "Omar", Role: models.RoleTeacher})
	fx.repo.addTeacher(&models.Teacher{UserID: otherU.ID, EmployeeID: "EMP002", AssignedClass: "9A", Status: models.StatusActive})

	exam := fx.repo.addExam(&models.Exam{
		Title:             "Class Test",
		Scope:             models.ScopeClass,
		TargetClass:       strPtr("10A"),
		AssignedTeacherID: &fx.teacher.ID,
		CreatedByID:       fx.teacherU.ID,
	})

	_, err := svc.EligibleStudents(context.Background(), exam.ID, otherU.ID)
	if !IsPermissionError(err) {
		t.Fatalf("expected permission error, got %v", err)
	}

	// The owning teacher may list.
	students, err := svc.EligibleStudents(context.Background(), exam.ID, fx.teacherU.ID)
	if err != nil {
		t.Fatalf("owning teacher should be allowed: %v", err)
	}
	if len(students) != 1 || students[0].ID != fx.studentA.ID {
		t.Fatalf("expected exactly the assigned 10A student, got %d rows", len(students))
	}
}
