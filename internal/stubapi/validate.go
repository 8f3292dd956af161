package stubapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("notblank", notBlank)
	_ = v.RegisterValidation("past", inPast)
	return v
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// inPast accepts a YYYY-MM-DD date strictly before today.
func inPast(fl validator.FieldLevel) bool {
	d, err := time.Parse(dateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return d.Before(today)
}

// describe renders validation errors as one human readable line that names
// every failed field.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "notblank":
		return field + " must not be blank"
	case "gt":
		if fe.Param() == "0" {
			return field + " must be positive"
		}
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "past":
		return field + " must be a date in the past"
	case "datetime":
		return field + " must be a date in YYYY-MM-DD format"
	default:
		return field + " is invalid"
	}
}
