package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies runs, invocations, and workflow definitions. It wraps the
// canonical UUID text form so identifiers stay comparable, loggable, and
// JSON-safe without exposing the uuid package at call sites.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// ParseID converts s into an ID, rejecting empty or malformed values.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("ID cannot be empty")
	}

	parsedUUID, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID format: %w", err)
	}

	return ID(parsedUUID.String()), nil
}

// Validate reports an error when the ID is empty or not well-formed UUID text.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid UUID format: %w", err)
	}

	return nil
}

// String returns the underlying UUID text.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID has not been assigned.
func (id ID) IsZero() bool {
	return id == ""
}

// MarshalJSON encodes the ID as a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// UnmarshalJSON decodes a JSON string and validates it as a UUID.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseID(s)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}
