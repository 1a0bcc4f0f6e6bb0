// ABOUTME: Business validation for diary records using go-playground/validator.
// ABOUTME: Rejects empty or whitespace-only entries and missing timestamps.
package diary

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/2389-research/diary/internal/models"
)

// Validator checks a record before it is written.
type Validator interface {
	Validate(rec models.DiaryRecord) error
}

// RecordValidator validates records against the struct tags on DiaryRecord.
type RecordValidator struct {
	v *validator.Validate
}

// NewRecordValidator builds a validator with the notblank rule registered.
func NewRecordValidator() *RecordValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &RecordValidator{v: v}
}

// Validate returns a *ValidationError describing the first failed rule.
func (rv *RecordValidator) Validate(rec models.DiaryRecord) error {
	err := rv.v.Struct(rec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Reason: "is required"}
	case "notblank":
		return &ValidationError{Field: field, Reason: "must not be blank"}
	default:
		return &ValidationError{Field: field, Reason: "failed " + fe.Tag()}
	}
}
