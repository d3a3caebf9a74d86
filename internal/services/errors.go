package services

import (
	"errors"
	"fmt"
)

// ===== SENTINEL ERRORS =====

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrExamNotFound       = errors.New("exam not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	ErrDuplicateSubmission = errors.New("exam already submitted")
	ErrExamClosed          = errors.New("exam submission window has closed")
	ErrNotEligible         = errors.New("student is not eligible for this exam")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorizedRole   = errors.New("role not permitted for this operation")
	ErrInvalidResetToken  = errors.New("password reset token is invalid or expired")

	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateEmployee = errors.New("employee id already registered")
	ErrDuplicateRoll     = errors.New("roll number already taken in this class")
)

// ===== PERMISSION ERRORS =====

// PermissionError carries who tried what on which resource and why it was
// refused. Handlers map it to 403.
type PermissionError struct {
	UserID     uint
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d cannot %s %s %d: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsPermissionError reports whether err is (or wraps) a PermissionError.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
