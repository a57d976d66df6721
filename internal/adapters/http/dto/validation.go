package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Sentinels for the two ways a request body can be rejected. Handlers map
// ErrBinding to a malformed-request response and ErrValidation to a
// field-by-field one.
var (
	ErrValidation = errors.New("validation failed")
	ErrBinding    = errors.New("binding failed")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// tagNameParts splits `json:"name,omitempty"` into name and options.
const tagNameParts = 2

// Validator returns the process-wide validator. Field names in errors come
// from json tags so responses talk about "email", not "Email".
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", tagNameParts)[0]
			if name == "-" {
				return ""
			}

			return name
		})

		_ = validate.RegisterValidation("uuid", validateUUID)
		_ = validate.RegisterValidation("notempty", validateNotEmpty)
	})

	return validate
}

// Validate checks v against its struct tags, wrapping failures in
// ErrValidation.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it. The
// subscription handlers use this for signup and unsubscribe bodies.
func BindAndValidate(c *gin.Context, v any) error {
	return validateBound(v, c.ShouldBindJSON(v))
}

// BindQueryAndValidate binds query parameters into v and validates them.
// The admin archive listing uses this for pagination parameters.
func BindQueryAndValidate(c *gin.Context, v any) error {
	return validateBound(v, c.ShouldBindQuery(v))
}

func validateBound(v any, bindErr error) error {
	if bindErr != nil {
		return fmt.Errorf("%w: %w", ErrBinding, bindErr)
	}

	return Validate(v)
}

// Validatable adds business checks that struct tags cannot express, like
// "date must be a real calendar day". ValidateAll runs it after the tags
// pass.
type Validatable interface {
	Validate() error
}

// ValidateAll validates struct tags first, then the type's own Validate
// method when it has one. Both failure modes carry ErrValidation.
func ValidateAll(v any) error {
	if err := Validate(v); err != nil {
		return err
	}

	validatable, ok := v.(Validatable)
	if !ok {
		return nil
	}

	if err := validatable.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// ValidationErrors flattens a validator error into field-to-message pairs
// for the error response's details object. Non-validator errors produce an
// empty map.
func ValidationErrors(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fieldErr := range validationErrs {
			fields[fieldErr.Field()] = validationMessage(fieldErr)
		}
	}

	return fields
}

// IsValidationError reports whether err carries field-level failures worth
// itemizing in the response.
func IsValidationError(err error) bool {
	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs)
}

// tagMessages renders validator tags as reader-facing text. {param} is
// replaced with the tag's argument.
var tagMessages = map[string]string{
	"required": "this field is required",
	"email":    "must be a valid email address",
	"uuid":     "must be a valid UUID",
	"url":      "must be a valid URL",
	"notempty": "must not be empty",
	"gte":      "must be greater than or equal to {param}",
	"lte":      "must be less than or equal to {param}",
	"gt":       "must be greater than {param}",
	"lt":       "must be less than {param}",
	"oneof":    "must be one of: {param}",
}

func validationMessage(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	// min and max read differently on strings than on numbers.
	if tag == "min" || tag == "max" {
		return minMaxMessage(tag, param, fe.Type().Kind())
	}

	if msg, ok := tagMessages[tag]; ok {
		return strings.ReplaceAll(msg, "{param}", param)
	}

	return "failed validation: " + tag
}

func minMaxMessage(tag, param string, kind reflect.Kind) string {
	suffix := ""
	if kind == reflect.String {
		suffix = " characters"
	}

	if tag == "min" {
		return "must be at least " + param + suffix
	}

	return "must be at most " + param + suffix
}

// validateUUID accepts well-formed UUIDs and the empty string. Emptiness is
// the required tag's job; keeping them separate lets optional ID fields
// share this tag.
func validateUUID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	_, err := uuid.Parse(value)

	return err == nil
}

// validateNotEmpty rejects strings that are empty once trimmed, catching
// whitespace-only input that required would let through.
func validateNotEmpty(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
