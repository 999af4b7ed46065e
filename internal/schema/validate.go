package schema

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validator validates payloads against a schema.
type Validator interface {
	Validate(schema Schema, data map[string]any) []ValidationError
}

// ValidationError represents a single schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DefaultValidator implements Validator.
type DefaultValidator struct{}

// NewValidator creates a new DefaultValidator.
func NewValidator() *DefaultValidator {
	return &DefaultValidator{}
}

// Validate validates data against the provided schema and returns every
// violation found. An empty slice means the payload conforms.
func (v *DefaultValidator) Validate(schema Schema, data map[string]any) []ValidationError {
	var errs []ValidationError

	if schema.Type != "object" {
		return append(errs, ValidationError{
			Message: fmt.Sprintf("root type must be object, got %s", schema.Type),
		})
	}

	for _, field := range schema.Required {
		if _, exists := data[field]; !exists {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "required field is missing",
			})
		}
	}

	for fieldName, value := range data {
		fieldSchema, hasSchema := schema.Properties[fieldName]
		if !hasSchema {
			if schema.AdditionalProperties != nil && !*schema.AdditionalProperties {
				errs = append(errs, ValidationError{
					Field:   fieldName,
					Message: "additional property not allowed",
					Value:   value,
				})
			}
			continue
		}

		errs = append(errs, v.validateField(fieldName, fieldSchema, value)...)
	}

	return errs
}

// validateField validates a single value against its field shape.
func (v *DefaultValidator) validateField(fieldPath string, field Field, value any) []ValidationError {
	var errs []ValidationError

	actualType := jsonTypeOf(value)
	if !v.typeCompatible(field.Type, actualType, value) {
		return append(errs, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("expected type %s, got %s", field.Type, actualType),
			Value:   value,
		})
	}

	switch field.Type {
	case "string":
		errs = append(errs, v.validateString(fieldPath, field, value)...)
	case "number", "integer":
		errs = append(errs, v.validateNumber(fieldPath, field, value)...)
	case "array":
		errs = append(errs, v.validateArray(fieldPath, field, value)...)
	case "object":
		errs = append(errs, v.validateObject(fieldPath, field, value)...)
	}

	if len(field.Enum) > 0 {
		errs = append(errs, v.validateEnum(fieldPath, field, value)...)
	}

	return errs
}

func (v *DefaultValidator) validateString(fieldPath string, field Field, value any) []ValidationError {
	var errs []ValidationError
	str, ok := value.(string)
	if !ok {
		return errs
	}

	if field.MinLength != nil && len(str) < *field.MinLength {
		errs = append(errs, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("string length must be at least %d", *field.MinLength),
			Value:   value,
		})
	}

	if field.MaxLength != nil && len(str) > *field.MaxLength {
		errs = append(errs, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("string length must be at most %d", *field.MaxLength),
			Value:   value,
		})
	}

	if field.Pattern != "" {
		matched, err := regexp.MatchString(field.Pattern, str)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: fmt.Sprintf("invalid pattern: %v", err),
			})
		} else if !matched {
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: fmt.Sprintf("string does not match pattern %s", field.Pattern),
				Value:   value,
			})
		}
	}

	if field.Format != "" {
		errs = append(errs, v.validateFormat(fieldPath, field.Format, str)...)
	}

	return errs
}

func (v *DefaultValidator) validateNumber(fieldPath string, field Field, value any) []ValidationError {
	var errs []ValidationError
	num, ok := numericValue(value)
	if !ok {
		return errs
	}

	if field.Type == "integer" && num != float64(int64(num)) {
		errs = append(errs, ValidationError{
			Field:   fieldPath,
			Message: "expected integer, got decimal number",
			Value:   value,
		})
	}

	if field.Minimum != nil && num < *field.Minimum {
		errs = append(errs, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("value must be at least %v", *field.Minimum),
			Value:   value,
		})
	}

	if field.Maximum != nil && num > *field.Maximum {
		errs = append(errs, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("value must be at most %v", *field.Maximum),
			Value:   value,
		})
	}

	return errs
}

func (v *DefaultValidator) validateArray(fieldPath string, field Field, value any) []ValidationError {
	var errs []ValidationError
	arr, ok := value.([]any)
	if !ok {
		return errs
	}

	if field.Items != nil {
		for i, item := range arr {
			itemPath := fmt.Sprintf("%s[%d]", fieldPath, i)
			errs = append(errs, v.validateField(itemPath, *field.Items, item)...)
		}
	}

	return errs
}

func (v *DefaultValidator) validateObject(fieldPath string, field Field, value any) []ValidationError {
	var errs []ValidationError
	obj, ok := value.(map[string]any)
	if !ok {
		return errs
	}

	for _, required := range field.Required {
		if _, exists := obj[required]; !exists {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.%s", fieldPath, required),
				Message: "required field is missing",
			})
		}
	}

	for propName, propValue := range obj {
		propSchema, hasSchema := field.Properties[propName]
		if !hasSchema {
			continue
		}
		errs = append(errs, v.validateField(fmt.Sprintf("%s.%s", fieldPath, propName), propSchema, propValue)...)
	}

	return errs
}

func (v *DefaultValidator) validateEnum(fieldPath string, field Field, value any) []ValidationError {
	strValue := fmt.Sprintf("%v", value)

	for _, enumValue := range field.Enum {
		if strValue == enumValue {
			return nil
		}
	}

	return []ValidationError{{
		Field:   fieldPath,
		Message: fmt.Sprintf("value must be one of: %s", strings.Join(field.Enum, ", ")),
		Value:   value,
	}}
}

func (v *DefaultValidator) validateFormat(fieldPath, format, value string) []ValidationError {
	var errs []ValidationError

	switch format {
	case "uri", "url":
		if _, err := url.ParseRequestURI(value); err != nil {
			errs = append(errs, ValidationError{Field: fieldPath, Message: "invalid URI format", Value: value})
		}
	case "email":
		if _, err := mail.ParseAddress(value); err != nil {
			errs = append(errs, ValidationError{Field: fieldPath, Message: "invalid email format", Value: value})
		}
	case "date-time":
		if _, err := time.Parse(time.RFC3339, value); err != nil {
			errs = append(errs, ValidationError{Field: fieldPath, Message: "invalid date-time format (expected RFC3339)", Value: value})
		}
	case "uuid":
		if _, err := uuid.Parse(value); err != nil {
			errs = append(errs, ValidationError{Field: fieldPath, Message: "invalid UUID format", Value: value})
		}
	}

	return errs
}

// typeCompatible checks if the actual type is compatible with the expected type.
// JSON has no integer type, so integers arrive typed as numbers.
func (v *DefaultValidator) typeCompatible(expectedType, actualType string, value any) bool {
	if expectedType == actualType {
		return true
	}

	if expectedType == "integer" && actualType == "number" {
		if num, ok := numericValue(value); ok {
			return num == float64(int64(num))
		}
	}

	return false
}

func numericValue(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// jsonTypeOf returns the JSON type name of a value.
func jsonTypeOf(value any) string {
	if value == nil {
		return "null"
	}

	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
