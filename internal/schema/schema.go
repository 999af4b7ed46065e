// Package schema defines the input/output shape language used by capability
// contracts. Shapes are a JSON-Schema-flavored subset: typed fields with
// optional constraints (enum, bounds, length, pattern, format) over object
// and array structures. A Validator checks plain map[string]any payloads
// against a Schema and reports every violation with its field path.
package schema

// Schema describes the shape of a capability input or output payload.
// The root of a payload is always an object.
type Schema struct {
	Type                 string           `json:"type"`
	Description          string           `json:"description,omitempty"`
	Properties           map[string]Field `json:"properties,omitempty"`
	Required             []string         `json:"required,omitempty"`
	Items                *Field           `json:"items,omitempty"`
	AdditionalProperties *bool            `json:"additionalProperties,omitempty"`
}

// Field describes a single value within a schema.
type Field struct {
	Type        string           `json:"type"`
	Description string           `json:"description,omitempty"`
	Enum        []string         `json:"enum,omitempty"`
	Default     any              `json:"default,omitempty"`
	Minimum     *float64         `json:"minimum,omitempty"`
	Maximum     *float64         `json:"maximum,omitempty"`
	MinLength   *int             `json:"minLength,omitempty"`
	MaxLength   *int             `json:"maxLength,omitempty"`
	Pattern     string           `json:"pattern,omitempty"`
	Format      string           `json:"format,omitempty"`
	Items       *Field           `json:"items,omitempty"`
	Properties  map[string]Field `json:"properties,omitempty"`
	Required    []string         `json:"required,omitempty"`
}

// NewObjectSchema creates an object schema with the given properties and required fields.
func NewObjectSchema(properties map[string]Field, required []string) Schema {
	return Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// NewArraySchema creates an array schema with the given item shape.
func NewArraySchema(items Field) Schema {
	return Schema{
		Type:  "array",
		Items: &items,
	}
}

// NewStringField creates a string field with the given description.
func NewStringField(description string) Field {
	return Field{Type: "string", Description: description}
}

// NewIntegerField creates an integer field with the given description.
func NewIntegerField(description string) Field {
	return Field{Type: "integer", Description: description}
}

// NewNumberField creates a number field with the given description.
func NewNumberField(description string) Field {
	return Field{Type: "number", Description: description}
}

// NewBooleanField creates a boolean field with the given description.
func NewBooleanField(description string) Field {
	return Field{Type: "boolean", Description: description}
}

// NewArrayField creates an array field whose items match the given shape.
func NewArrayField(description string, items Field) Field {
	return Field{Type: "array", Description: description, Items: &items}
}

// NewObjectField creates a nested object field with the given properties.
func NewObjectField(description string, properties map[string]Field, required []string) Field {
	return Field{Type: "object", Description: description, Properties: properties, Required: required}
}

// WithEnum constrains the field to the given set of values.
func (f Field) WithEnum(values ...string) Field {
	f.Enum = values
	return f
}

// WithMinMax adds minimum and maximum constraints to numeric fields.
func (f Field) WithMinMax(min, max float64) Field {
	f.Minimum = &min
	f.Maximum = &max
	return f
}

// WithMin adds a minimum constraint to numeric fields.
func (f Field) WithMin(min float64) Field {
	f.Minimum = &min
	return f
}

// WithMax adds a maximum constraint to numeric fields.
func (f Field) WithMax(max float64) Field {
	f.Maximum = &max
	return f
}

// WithPattern adds a regex pattern constraint to string fields.
func (f Field) WithPattern(pattern string) Field {
	f.Pattern = pattern
	return f
}

// WithFormat adds a format constraint to string fields
// (one of: uri, email, date-time, uuid).
func (f Field) WithFormat(format string) Field {
	f.Format = format
	return f
}

// WithMinLength adds a minimum length constraint to string fields.
func (f Field) WithMinLength(length int) Field {
	f.MinLength = &length
	return f
}

// WithMaxLength adds a maximum length constraint to string fields.
func (f Field) WithMaxLength(length int) Field {
	f.MaxLength = &length
	return f
}

// WithDefault records a default value for the field. Defaults are advisory
// metadata for callers; the validator does not inject them.
func (f Field) WithDefault(value any) Field {
	f.Default = value
	return f
}

// IsZero reports whether the schema is the zero value (no shape declared).
func (s Schema) IsZero() bool {
	return s.Type == "" && len(s.Properties) == 0 && s.Items == nil
}
