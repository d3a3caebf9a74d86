package validator

import (
	"testing"
	"time"

	"github.com/scholaris/school-service/internal/models"
)

func strPtr(s string) *string { return &s }
func uintPtr(u uint) *uint    { return &u }

func TestBusinessRules(t *testing.T) {
	bv := New()

	type probe struct {
		Phone      string `validate:"omitempty,phone_number"`
		Roll       string `validate:"omitempty,roll_number"`
		EmployeeID string `validate:"omitempty,employee_id"`
		Class      string `validate:"omitempty,class_name"`
		Standard   string `validate:"omitempty,standard_name"`
		Name       string `validate:"omitempty,person_name"`
	}

	tests := []struct {
		name  string
		probe probe
		valid bool
	}{
		{"valid phone", probe{Phone: "9876543210"}, true},
		{"phone leading zero", probe{Phone: "0876543210"}, false},
		{"phone too short", probe{Phone: "987654321"}, false},
		{"phone with letters", probe{Phone: "98765432ab"}, false},
		{"valid roll", probe{Roll: "042"}, true},
		{"roll too long", probe{Roll: "0420"}, false},
		{"roll letters", probe{Roll: "a42"}, false},
		{"valid employee id", probe{EmployeeID: "EMP7"}, true},
		{"employee id wrong prefix", probe{EmployeeID: "TCH7"}, false},
		{"employee id no digits", probe{EmployeeID: "EMP"}, false},
		{"valid class", probe{Class: "10A"}, true},
		{"single digit class", probe{Class: "9B"}, true},
		{"class lowercase section", probe{Class: "10a"}, false},
		{"class no section", probe{Class: "10"}, false},
		{"valid standard", probe{Standard: "10"}, true},
		{"standard with section", probe{Standard: "10A"}, false},
		{"valid name", probe{Name: "Mary Jane"}, true},
		{"name with digits", probe{Name: "Mary 2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.Validate(&tt.probe)
			if tt.valid && errs.HasErrors() {
				t.Errorf("expected valid, got %v", errs)
			}
			if !tt.valid && !errs.HasErrors() {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestValidateExamCreate_ScopeConsistency(t *testing.T) {
	bv := New()

	base := func() *ExamCreateRequest {
		return &ExamCreateRequest{
			Title:           "Test",
			StartTime:       time.Now(),
			DurationMinutes: 60,
		}
	}

	t.Run("school scope requires standard only", func(t *testing.T) {
		req := base()
		req.Scope = models.ScopeSchool
		req.TargetStandard = strPtr("10")
		if errs := bv.ValidateExamCreate(req); errs.HasErrors() {
			t.Errorf("expected valid, got %v", errs)
		}

		req.TargetClass = strPtr("10A")
		if errs := bv.ValidateExamCreate(req); !errs.HasErrors() {
			t.Error("target_class on school exam must fail")
		}
	})

	t.Run("school scope missing standard", func(t *testing.T) {
		req := base()
		req.Scope = models.ScopeSchool
		if errs := bv.ValidateExamCreate(req); !errs.HasErrors() {
			t.Error("school exam without target_standard must fail")
		}
	})

	t.Run("class scope requires class and teacher", func(t *testing.T) {
		req := base()
		req.Scope = models.ScopeClass
		req.TargetClass = strPtr("10A")
		req.AssignedTeacherID = uintPtr(3)
		if errs := bv.ValidateExamCreate(req); errs.HasErrors() {
			t.Errorf("expected valid, got %v", errs)
		}

		req.AssignedTeacherID = nil
		if errs := bv.ValidateExamCreate(req); !errs.HasErrors() {
			t.Error("class exam without assigned teacher must fail")
		}
	})

	t.Run("class scope forbids standard", func(t *testing.T) {
		req := base()
		req.Scope = models.ScopeClass
		req.TargetClass = strPtr("10A")
		req.AssignedTeacherID = uintPtr(3)
		req.TargetStandard = strPtr("10")
		if errs := bv.ValidateExamCreate(req); !errs.HasErrors() {
			t.Error("target_standard on class exam must fail")
		}
	})
}

func TestValidateExamUpdate_MergesExistingState(t *testing.T) {
	bv := New()

	existing := &models.Exam{
		Scope:          models.ScopeSchool,
		TargetStandard: strPtr("10"),
	}

	// Adding a class field to a school exam fails on the merged state.
	errs := bv.ValidateExamUpdate(&ExamUpdateRequest{TargetClass: strPtr("10A")}, existing)
	if !errs.HasErrors() {
		t.Error("merged state with target_class on school scope must fail")
	}

	// A title-only update passes.
	errs = bv.ValidateExamUpdate(&ExamUpdateRequest{Title: strPtr("Renamed")}, existing)
	if errs.HasErrors() {
		t.Errorf("expected valid, got %v", errs)
	}
}

func TestValidateSubmissionCreate(t *testing.T) {
	bv := New()

	req := &SubmissionCreateRequest{
		ExamID: 1,
		Answers: []AnswerSubmitRequest{
			{QuestionID: 1, SelectedOption: 2},
			{QuestionID: 2, SelectedOption: 4},
		},
	}
	if errs := bv.ValidateSubmissionCreate(req); errs.HasErrors() {
		t.Errorf("expected valid, got %v", errs)
	}

	t.Run("empty answers accepted", func(t *testing.T) {
		req := &SubmissionCreateRequest{ExamID: 1}
		if errs := bv.ValidateSubmissionCreate(req); errs.HasErrors() {
			t.Errorf("blank submission must validate, got %v", errs)
		}
	})

	t.Run("option out of range", func(t *testing.T) {
		req := &SubmissionCreateRequest{
			ExamID:  1,
			Answers: []AnswerSubmitRequest{{QuestionID: 1, SelectedOption: 5}},
		}
		if errs := bv.ValidateSubmissionCreate(req); !errs.HasErrors() {
			t.Error("option 5 must fail")
		}
	})

	t.Run("duplicate question", func(t *testing.T) {
		req := &SubmissionCreateRequest{
			ExamID: 1,
			Answers: []AnswerSubmitRequest{
				{QuestionID: 1, SelectedOption: 1},
				{QuestionID: 1, SelectedOption: 2},
			},
		}
		if errs := bv.ValidateSubmissionCreate(req); !errs.HasErrors() {
			t.Error("answering a question twice must fail")
		}
	})
}
