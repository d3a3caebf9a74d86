package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/scholaris/school-service/internal/events"
	"github.com/scholaris/school-service/internal/repositories"
	"github.com/scholaris/school-service/internal/validator"
)

// serviceManager wires every service over one repository, validator and
// event publisher, and owns their lifecycle.
type serviceManager struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.BusinessValidator
	eventPublisher events.EventPublisher
	tokenStore     ResetTokenStore
	authConfig     AuthConfig

	authService         AuthService
	teacherService      TeacherService
	studentService      StudentService
	examService         ExamService
	eligibilityService  EligibilityService
	submissionService   SubmissionService
	resultService       ResultService
	importExportService ImportExportService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.BusinessValidator, eventPublisher events.EventPublisher, tokenStore ResetTokenStore, authConfig AuthConfig) ServiceManager {
	return &serviceManager{
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
		tokenStore:     tokenStore,
		authConfig:     authConfig,
	}
}

func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.authService = NewAuthService(sm.repo, sm.logger, sm.validator, sm.tokenStore, sm.eventPublisher, sm.authConfig)
	sm.teacherService = NewTeacherService(sm.repo, sm.logger, sm.validator, sm.eventPublisher)
	sm.studentService = NewStudentService(sm.repo, sm.logger, sm.validator, sm.eventPublisher)
	sm.examService = NewExamService(sm.repo, sm.logger, sm.validator, sm.eventPublisher)
	sm.eligibilityService = NewEligibilityService(sm.repo, sm.logger)
	sm.submissionService = NewSubmissionService(sm.repo, sm.logger, sm.validator, sm.eventPublisher)
	sm.resultService = NewResultService(sm.repo, sm.logger)
	sm.importExportService = NewImportExportService(sm.repo, sm.logger, sm.validator, sm.studentService, sm.resultService)

	sm.initialized = true
	sm.logger.Info("Service manager initialized")

	return nil
}

// Service getters

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) Teacher() TeacherService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.teacherService
}

func (sm *serviceManager) Student() StudentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.studentService
}

func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.examService
}

func (sm *serviceManager) Eligibility() EligibilityService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.eligibilityService
}

func (sm *serviceManager) Submission() SubmissionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.submissionService
}

func (sm *serviceManager) Result() ResultService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.resultService
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.importExportService
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.eventPublisher != nil {
		if err := sm.eventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if err := sm.repo.Close(); err != nil {
		sm.logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down")

	return nil
}
