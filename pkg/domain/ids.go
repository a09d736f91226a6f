// Package domain holds shared identifier types so modules agree on what an
// ID is without importing each other.
package domain

import "github.com/google/uuid"

// ProviderConfigID identifies a provider configuration revision.
type ProviderConfigID uuid.UUID

// AttemptID identifies a single verification attempt in the audit trail.
type AttemptID uuid.UUID

// NewProviderConfigID returns a fresh random ProviderConfigID.
func NewProviderConfigID() ProviderConfigID {
	return ProviderConfigID(uuid.New())
}

// NewAttemptID returns a fresh random AttemptID.
func NewAttemptID() AttemptID {
	return AttemptID(uuid.New())
}

func (id ProviderConfigID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id ProviderConfigID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID in canonical UUID form so JSON and text
// encodings carry a string instead of a byte array.
func (id ProviderConfigID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (id *ProviderConfigID) UnmarshalText(text []byte) error {
	parsed, err := ParseProviderConfigID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id AttemptID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id AttemptID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID in canonical UUID form so JSON and text
// encodings carry a string instead of a byte array.
func (id AttemptID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (id *AttemptID) UnmarshalText(text []byte) error {
	parsed, err := ParseAttemptID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseProviderConfigID parses a ProviderConfigID from its string form.
func ParseProviderConfigID(s string) (ProviderConfigID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ProviderConfigID{}, err
	}
	return ProviderConfigID(u), nil
}

// ParseAttemptID parses an AttemptID from its string form.
func ParseAttemptID(s string) (AttemptID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AttemptID{}, err
	}
	return AttemptID(u), nil
}
