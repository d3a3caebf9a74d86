package repositories

import "context"

// Repository aggregates all entity repositories behind one handle so services
// depend on a single interface.
type Repository interface {
	User() UserRepository
	Teacher() TeacherRepository
	Student() StudentRepository
	Exam() ExamRepository
	Question() QuestionRepository
	Submission() SubmissionRepository

	// WithTransaction runs fn against a Repository bound to one database
	// transaction; fn returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
