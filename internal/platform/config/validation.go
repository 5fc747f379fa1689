package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// keyValidator names fields by their koanf keys, so failures read as the
// dotted paths used in YAML and, with underscores, in APP_ variables.
var keyValidator = newKeyValidator()

func newKeyValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if key := f.Tag.Get("koanf"); key != "" {
			return key
		}

		return f.Name
	})

	return v
}

// Validate checks every section and reports all failures at once.
func (c *Config) Validate() error {
	err := keyValidator.Struct(c)

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return err
	}

	lines := make([]string, len(failures))
	for i, fe := range failures {
		lines[i] = describe(fe)
	}

	return errors.New("config validation failed:\n  " + strings.Join(lines, "\n  "))
}

func describe(fe validator.FieldError) string {
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "required_if":
		return key + " is required when " + param
	case "min":
		return key + " must be at least " + param
	case "max":
		return key + " must be at most " + param
	case "oneof":
		return key + " must be one of: " + param
	case "url":
		return key + " must be a valid URL"
	case "startswith":
		return key + " must start with " + param
	default:
		return key + " failed validation: " + fe.Tag()
	}
}
