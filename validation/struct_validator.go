package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/ssehub/errors"
)

// customTag is a validation tag this package registers, with the message
// reported when it fails.
type customTag struct {
	check   func(string) bool
	message string
}

var customTags = map[string]customTag{
	"channel": {IsChannel, "must be a valid channel name"},
	"publish_channel": {
		func(s string) bool { return IsChannel(s) && !strings.Contains(s, "*") },
		"must be a channel name without wildcards",
	},
	"stream_field": {IsStreamField, "must not contain line breaks or NUL"},
}

var (
	structValidator *validator.Validate
	structOnce      sync.Once
)

func engine() *validator.Validate {
	structOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(jsonName)
		for tag, ct := range customTags {
			check := ct.check
			_ = structValidator.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return check(fl.Field().String())
			})
		}
	})
	return structValidator
}

// jsonName reports fields by their JSON key so errors match the request body.
func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// Validate checks s against its `validate` struct tags. Besides the
// go-playground built-ins it understands channel, publish_channel and
// stream_field.
func Validate(s any) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}
	var failed validator.ValidationErrors
	if !stderrors.As(err, &failed) {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(failed))
	for i, e := range failed {
		fields[i] = FieldError{Field: e.Field(), Message: tagMessage(e)}
	}
	return fieldsError(fields)
}

func tagMessage(e validator.FieldError) string {
	if ct, ok := customTags[e.Tag()]; ok {
		return ct.message
	}
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
