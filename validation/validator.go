package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kbukum/ssehub/errors"
)

// MaxChannelLength bounds channel names and patterns.
const MaxChannelLength = 128

// channelPattern accepts channel names and glob patterns: letters, digits,
// and _ . : * - characters.
var channelPattern = regexp.MustCompile(`^[A-Za-z0-9_.:*-]{1,128}$`)

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects field errors from chained checks and reports them
// together as one INVALID_INPUT error.
type Validator struct {
	errors []FieldError
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the recorded field errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns nil when every check passed.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	return fieldsError(v.errors)
}

func fieldsError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, e := range fields {
		messages[i] = e.Field + ": " + e.Message
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", fields)
}

// Required rejects blank values.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// MaxLength rejects values longer than maxLen bytes.
func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	if len(value) > maxLen {
		v.AddError(field, fmt.Sprintf("must be %d characters or less", maxLen))
	}
	return v
}

// Channel checks that value is a well-formed channel name or pattern.
func (v *Validator) Channel(field, value string) *Validator {
	switch {
	case value == "":
		v.AddError(field, "is required")
	case !channelPattern.MatchString(value):
		v.AddError(field, fmt.Sprintf("must be 1-%d characters of letters, digits or _ . : * -", MaxChannelLength))
	}
	return v
}

// PublishChannel checks a publish target: a channel name without wildcards,
// since patterns only make sense as subscriptions.
func (v *Validator) PublishChannel(field, value string) *Validator {
	before := len(v.errors)
	v.Channel(field, value)
	if len(v.errors) == before && strings.Contains(value, "*") {
		v.AddError(field, "wildcards are only allowed in subscriptions")
	}
	return v
}

// StreamField rejects values that would break an event stream line: CR, LF
// and NUL.
func (v *Validator) StreamField(field, value string) *Validator {
	if !IsStreamField(value) {
		v.AddError(field, "must not contain line breaks or NUL")
	}
	return v
}

// ValidateChannel checks a single channel name or pattern. It fits
// sse.WithChannelValidator.
func ValidateChannel(channel string) error {
	if appErr := New().Channel("channel", channel).Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// ValidatePublishChannel checks a single publish target.
func ValidatePublishChannel(channel string) error {
	if appErr := New().PublishChannel("channel", channel).Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// IsChannel reports whether s is a well-formed channel name or pattern.
func IsChannel(s string) bool {
	return channelPattern.MatchString(s)
}

// IsStreamField reports whether s can be written as an event id or type.
func IsStreamField(s string) bool {
	return !strings.ContainsAny(s, "\r\n\x00")
}
