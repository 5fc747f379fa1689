package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation wraps struct tag validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrBinding wraps JSON and query decoding failures.
	ErrBinding = errors.New("binding failed")
)

// structValidator reports fields by their JSON names; fields tagged
// json:"-" keep no name.
var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
})

// Validate checks the validate tags of v.
func Validate(v any) error {
	if err := structValidator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	return bindWith(c.ShouldBindJSON, v)
}

// BindQueryAndValidate decodes the query string into v and validates it.
func BindQueryAndValidate(c *gin.Context, v any) error {
	return bindWith(c.ShouldBindQuery, v)
}

func bindWith(bind func(any) error, v any) error {
	if err := bind(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// ValidationErrors returns one message per failing field, keyed by JSON
// name. Errors that did not come from the validator yield an empty map.
func ValidationErrors(err error) map[string]string {
	fields := make(map[string]string)

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return fields
	}

	for _, fe := range failures {
		fields[fe.Field()] = describe(fe)
	}

	return fields
}

func describe(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + param
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lt":
		return "must be less than " + param
	case "lte":
		return "must be less than or equal to " + param
	case "min":
		return "must be at least " + param + unit(fe)
	case "max":
		return "must be at most " + param + unit(fe)
	default:
		return "failed validation: " + fe.Tag()
	}
}

func unit(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		return " characters"
	}

	return ""
}
