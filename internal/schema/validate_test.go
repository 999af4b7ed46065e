package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userSchema() Schema {
	return NewObjectSchema(map[string]Field{
		"username": NewStringField("username").WithMinLength(3).WithMaxLength(20),
		"email":    NewStringField("email address").WithFormat("email"),
		"age":      NewIntegerField("age in years").WithMinMax(0, 150),
		"role":     NewStringField("account role").WithEnum("admin", "member"),
		"tags":     NewArrayField("labels", NewStringField("label")),
		"profile": NewObjectField("nested profile", map[string]Field{
			"city": NewStringField("city"),
		}, []string{"city"}),
	}, []string{"username", "email"})
}

func TestValidate_ValidPayload(t *testing.T) {
	v := NewValidator()

	errs := v.Validate(userSchema(), map[string]any{
		"username": "john_doe",
		"email":    "john@example.com",
		"age":      30,
		"role":     "member",
		"tags":     []any{"a", "b"},
		"profile":  map[string]any{"city": "Oslo"},
	})

	assert.Empty(t, errs)
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name      string
		data      map[string]any
		wantField string
	}{
		{
			name:      "missing required field",
			data:      map[string]any{"username": "john_doe"},
			wantField: "email",
		},
		{
			name:      "wrong type",
			data:      map[string]any{"username": 42, "email": "a@b.com"},
			wantField: "username",
		},
		{
			name:      "string too short",
			data:      map[string]any{"username": "jo", "email": "a@b.com"},
			wantField: "username",
		},
		{
			name:      "invalid email format",
			data:      map[string]any{"username": "john", "email": "not-an-email"},
			wantField: "email",
		},
		{
			name:      "number above maximum",
			data:      map[string]any{"username": "john", "email": "a@b.com", "age": 200},
			wantField: "age",
		},
		{
			name:      "decimal for integer field",
			data:      map[string]any{"username": "john", "email": "a@b.com", "age": 30.5},
			wantField: "age",
		},
		{
			name:      "enum violation",
			data:      map[string]any{"username": "john", "email": "a@b.com", "role": "owner"},
			wantField: "role",
		},
		{
			name:      "array item type",
			data:      map[string]any{"username": "john", "email": "a@b.com", "tags": []any{"ok", 7}},
			wantField: "tags[1]",
		},
		{
			name:      "nested required field",
			data:      map[string]any{"username": "john", "email": "a@b.com", "profile": map[string]any{}},
			wantField: "profile.city",
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(userSchema(), tt.data)
			require.NotEmpty(t, errs)

			fields := make([]string, 0, len(errs))
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidate_IntegerAcceptsWholeFloat(t *testing.T) {
	v := NewValidator()

	// Payloads decoded from JSON carry integers as float64.
	errs := v.Validate(userSchema(), map[string]any{
		"username": "john",
		"email":    "a@b.com",
		"age":      float64(30),
	})

	assert.Empty(t, errs)
}

func TestValidate_AdditionalProperties(t *testing.T) {
	v := NewValidator()
	s := userSchema()
	disallow := false
	s.AdditionalProperties = &disallow

	errs := v.Validate(s, map[string]any{
		"username": "john",
		"email":    "a@b.com",
		"extra":    true,
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "extra", errs[0].Field)
}

func TestValidate_NonObjectRoot(t *testing.T) {
	v := NewValidator()

	errs := v.Validate(NewArraySchema(NewStringField("item")), map[string]any{})

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "root type must be object")
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "age", Message: "value must be at most 150", Value: 200}
	assert.Equal(t, "age: value must be at most 150 (value: 200)", err.Error())

	err = ValidationError{Field: "email", Message: "required field is missing"}
	assert.Equal(t, "email: required field is missing", err.Error())
}
