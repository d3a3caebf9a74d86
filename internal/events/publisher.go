package events

import (
	"context"
	"time"
)

// Event is the envelope every published message travels in.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

const (
	EventSource  = "school-service"
	EventVersion = "1.0"
)

// Event types
const (
	EventExamCreated            = "exam.created"
	EventExamUpdated            = "exam.updated"
	EventExamDeleted            = "exam.deleted"
	EventSubmissionScored       = "submission.scored"
	EventTeacherCreated         = "teacher.created"
	EventTeacherDeleted         = "teacher.deleted"
	EventStudentCreated         = "student.created"
	EventStudentDeleted         = "student.deleted"
	EventPasswordResetRequested = "user.password_reset_requested"
)

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

// Topics
const (
	TopicExams       = "school.exams"
	TopicSubmissions = "school.submissions"
	TopicProfiles    = "school.profiles"
	TopicAuth        = "school.auth"
)
