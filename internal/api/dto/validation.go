package dto

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"

	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

// ValidateStringEquals checks that the field equals str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// validValue accepts values whose Valid method reports true. Empty values are skipped.
func validValue[T interface {
	~string
	Valid() bool
}](message string) validation.RuleFunc {
	return func(value any) error {
		switch v := value.(type) {
		case T:
			if v == "" || v.Valid() {
				return nil
			}
		case *T:
			if v == nil || *v == "" || (*v).Valid() {
				return nil
			}
		}
		return errors.New(message)
	}
}

// asValidationError converts ozzo field errors into a VALIDATION_FAILED error.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		details[field] = fieldErr.Error()
	}
	return apperrors.NewValidationError("validation failed", details)
}
