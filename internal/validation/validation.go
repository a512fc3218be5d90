// Package validation checks request payloads before they reach storage.
//
// Struct tags are evaluated with go-playground/validator and reported as
// ValidationErrors keyed by JSON field name. Rules that span fields or need
// rack context live in the Validate* helpers below.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return ValidateHTTPURL(fl.Field().String()) == nil
	}); err != nil {
		panic(err)
	}

	return v
}

// Struct validates the tags on a request struct. It returns nil or a
// ValidationErrors value.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var errs ValidationErrors
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), fmt.Sprintf("%v", fe.Value()), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "httpurl":
		return "must be an http or https URL"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// ValidateHTTPURL checks that s is an absolute http or https URL.
func ValidateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

// ValidateDateRange checks that end, when both are set, is not before start.
func ValidateDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("end date must not be before start date")
	}
	return nil
}

// ValidateRackFit checks that equipment of the given height starting at
// position stays inside a rack of capacity units.
func ValidateRackFit(position, height, capacity int) error {
	if height < 1 {
		return fmt.Errorf("height must be at least 1")
	}
	if height > capacity {
		return fmt.Errorf("%dU equipment does not fit a %dU rack", height, capacity)
	}
	if position < 1 || position+height-1 > capacity {
		return fmt.Errorf("position must be between 1 and %d for %dU equipment", capacity-height+1, height)
	}
	return nil
}

// ValidateContentType checks that an upload's declared type looks like a
// MIME type. An empty type is allowed.
func ValidateContentType(ct string) error {
	if ct == "" {
		return nil
	}
	major, minor, ok := strings.Cut(ct, "/")
	if !ok || major == "" || minor == "" || strings.ContainsAny(ct, " \t\r\n") {
		return fmt.Errorf("content type %q is not a MIME type", ct)
	}
	return nil
}
