package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/scholaris/school-service/internal/models"
)

var (
	personNameRegex = regexp.MustCompile(`^[A-Za-z ]+$`)
	phoneRegex      = regexp.MustCompile(`^[1-9]\d{9}$`)
	rollNumberRegex = regexp.MustCompile(`^\d{3}$`)
	employeeIDRegex = regexp.MustCompile(`^EMP\d+$`)
	classNameRegex  = regexp.MustCompile(`^\d{1,2}[A-Z]$`)
	standardRegex   = regexp.MustCompile(`^\d{1,2}$`)
)

// BusinessValidator handles struct and business rule validation.
type BusinessValidator struct {
	validate *validator.Validate
}

// New creates a validator with all custom rules registered.
func New() *BusinessValidator {
	return NewBusinessValidator()
}

// NewBusinessValidator creates a validator with all custom rules registered.
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	// Report field names as their json tags so API error payloads match
	// the request body keys.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates struct tags for any request.
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateExamCreate validates exam creation, including the scope consistency
// rules: a school exam targets a standard and nothing else, a class exam
// targets a class run by a teacher and nothing else.
func (bv *BusinessValidator) ValidateExamCreate(req *ExamCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateExamScopeRules(req.Scope, req.TargetStandard, req.TargetClass, req.AssignedTeacherID)...)

	return errors
}

// ValidateExamUpdate validates the effective exam state after applying an
// update on top of the existing record. Scope rules are re-checked against
// the merged values so a partial update cannot leave the exam inconsistent.
func (bv *BusinessValidator) ValidateExamUpdate(req *ExamUpdateRequest, existing *models.Exam) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	scope := existing.Scope
	if req.Scope != nil {
		scope = *req.Scope
	}
	targetStandard := existing.TargetStandard
	if req.TargetStandard != nil {
		targetStandard = req.TargetStandard
	}
	targetClass := existing.TargetClass
	if req.TargetClass != nil {
		targetClass = req.TargetClass
	}
	assignedTeacherID := existing.AssignedTeacherID
	if req.AssignedTeacherID != nil {
		assignedTeacherID = req.AssignedTeacherID
	}

	errors = append(errors, bv.validateExamScopeRules(scope, targetStandard, targetClass, assignedTeacherID)...)

	return errors
}

// ValidateSubmissionCreate validates submission shape: at least one answer and
// no question answered twice.
func (bv *BusinessValidator) ValidateSubmissionCreate(req *SubmissionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	seen := make(map[uint]bool, len(req.Answers))
	for i, answer := range req.Answers {
		if seen[answer.QuestionID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("answers[%d].question_id", i),
				Message: "question answered more than once",
				Value:   answer.QuestionID,
				Rule:    "business_logic",
			})
		}
		seen[answer.QuestionID] = true
	}

	return errors
}

func (bv *BusinessValidator) validateExamScopeRules(scope models.ExamScope, targetStandard, targetClass *string, assignedTeacherID *uint) ValidationErrors {
	var errors ValidationErrors

	isSet := func(s *string) bool { return s != nil && strings.TrimSpace(*s) != "" }

	switch scope {
	case models.ScopeSchool:
		if !isSet(targetStandard) {
			errors = append(errors, ValidationError{
				Field:   "target_standard",
				Message: "is required for school-wide exams",
				Rule:    "business_logic",
			})
		}
		if isSet(targetClass) {
			errors = append(errors, ValidationError{
				Field:   "target_class",
				Message: "must not be set for school-wide exams",
				Value:   *targetClass,
				Rule:    "business_logic",
			})
		}
		if assignedTeacherID != nil {
			errors = append(errors, ValidationError{
				Field:   "assigned_teacher_id",
				Message: "must not be set for school-wide exams",
				Value:   *assignedTeacherID,
				Rule:    "business_logic",
			})
		}
	case models.ScopeClass:
		if !isSet(targetClass) {
			errors = append(errors, ValidationError{
				Field:   "target_class",
				Message: "is required for class exams",
				Rule:    "business_logic",
			})
		}
		if assignedTeacherID == nil {
			errors = append(errors, ValidationError{
				Field:   "assigned_teacher_id",
				Message: "is required for class exams",
				Rule:    "business_logic",
			})
		}
		if isSet(targetStandard) {
			errors = append(errors, ValidationError{
				Field:   "target_standard",
				Message: "must not be set for class exams",
				Value:   *targetStandard,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

func (bv *BusinessValidator) registerBusinessRules() {
	// Person names: letters and spaces only
	bv.validate.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		return personNameRegex.MatchString(strings.TrimSpace(fl.Field().String()))
	})

	// Phone numbers: 10 digits, no leading zero
	bv.validate.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})

	// Roll numbers: exactly 3 digits
	bv.validate.RegisterValidation("roll_number", func(fl validator.FieldLevel) bool {
		return rollNumberRegex.MatchString(fl.Field().String())
	})

	// Employee IDs: EMP followed by digits
	bv.validate.RegisterValidation("employee_id", func(fl validator.FieldLevel) bool {
		return employeeIDRegex.MatchString(fl.Field().String())
	})

	// Class names: standard + section letter, e.g. 10A
	bv.validate.RegisterValidation("class_name", func(fl validator.FieldLevel) bool {
		return classNameRegex.MatchString(fl.Field().String())
	})

	// Standards: bare numeric standard, e.g. 10
	bv.validate.RegisterValidation("standard_name", func(fl validator.FieldLevel) bool {
		return standardRegex.MatchString(fl.Field().String())
	})

	// Exam duration (1-600 minutes)
	bv.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 1 && duration <= 600
	})
}
