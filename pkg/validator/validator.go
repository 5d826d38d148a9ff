// Package validator wraps go-playground/validator with the rules booking
// payloads need and reports failures as a field -> message map.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// dateRegex matches YYYY-MM-DD
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	// timeRegex matches an HH:MM prefix ("09:30", "09:30:00")
	timeRegex = regexp.MustCompile(`^\d{2}:\d{2}`)

	// controlChars are stripped from free text
	controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// Validator validates request structs
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the custom "ymd" and "hhmm" rules. Extra
// rules (tag -> func) can be registered by the caller.
func New(rules map[string]func(string) bool) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	must := func(tag string, fn func(string) bool) {
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
		if err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	must("ymd", dateRegex.MatchString)
	must("hhmm", timeRegex.MatchString)
	for tag, fn := range rules {
		must(tag, fn)
	}

	return &Validator{validate: v}
}

// Struct validates s and returns the offending fields, or nil when valid
func (v *Validator) Struct(s interface{}) map[string]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return map[string]string{"_": err.Error()}
	}

	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fieldPath(fe)] = message(fe)
	}
	return fields
}

// Var validates a single value against a tag list
func (v *Validator) Var(field interface{}, tag string) bool {
	return v.validate.Var(field, tag) == nil
}

// SanitizeString strips control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// fieldPath drops the struct name prefix: "BookingRequest.extras[1]" -> "extras[1]"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "must be a valid email address"
	case "ymd":
		return "must be a date in YYYY-MM-DD format"
	case "hhmm":
		return "must start with a time in HH:MM format"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
