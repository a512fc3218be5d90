package validation

import (
	"fmt"
	"strings"

	"github.com/stagehand-music/stagehand/internal/domain"
)

// FieldError describes one rejected request field. Field is the JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in one request body. It
// matches domain.ErrInvalidInput under errors.Is.
type ValidationErrors []*FieldError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0].Error(), len(e)-1)
}

func (e ValidationErrors) Unwrap() error {
	return domain.ErrInvalidInput
}

// Add records a problem with field. Values longer than 64 bytes are cut so
// uploads do not echo file data back.
func (e *ValidationErrors) Add(field, value, message string) {
	if len(value) > 64 {
		value = value[:64] + "..."
	}
	*e = append(*e, &FieldError{Field: field, Value: value, Message: message})
}

// HasErrors reports whether anything was recorded.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields returns the rejected field names joined with commas.
func (e ValidationErrors) Fields() string {
	names := make([]string, len(e))
	for i, fe := range e {
		names[i] = fe.Field
	}
	return strings.Join(names, ",")
}
