package workflow

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ikkim/staycert-backend/internal/app/model"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
)

var ErrPropertyDetailsIncomplete = apperrors.Validation(apperrors.PropertyDetailsInvalid, "property details are incomplete")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MissingPropertyDetails returns the json names of fields that fail validation,
// in declaration order. Whitespace-only strings count as empty.
func MissingPropertyDetails(details model.PropertyDetails) []string {
	details.PropertyName = strings.TrimSpace(details.PropertyName)
	details.Address = strings.TrimSpace(details.Address)

	err := validate.Struct(details)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, fe.Field())
	}
	return missing
}

func ValidatePropertyDetails(details model.PropertyDetails) error {
	if missing := MissingPropertyDetails(details); len(missing) > 0 {
		return ErrPropertyDetailsIncomplete.WithDetails(missing...)
	}
	return nil
}
