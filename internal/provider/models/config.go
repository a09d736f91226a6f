package models

import (
	"regexp"
	"strings"
	"time"

	id "enrollgate/pkg/domain"
	dErrors "enrollgate/pkg/domain-errors"
)

// AuthScheme selects how outbound requests to a provider are authenticated.
type AuthScheme string

const (
	AuthSchemeAPIKey AuthScheme = "api_key"
	AuthSchemeOAuth  AuthScheme = "oauth"
	AuthSchemeBasic  AuthScheme = "basic"
	AuthSchemeBearer AuthScheme = "bearer"
)

// Valid reports whether the scheme is one of the supported values.
func (s AuthScheme) Valid() bool {
	switch s {
	case AuthSchemeAPIKey, AuthSchemeOAuth, AuthSchemeBasic, AuthSchemeBearer:
		return true
	}
	return false
}

// FieldMapping maps canonical StudentRecord fields to dot-separated paths
// into a provider's JSON response. An empty mapping means the provider
// already answers in the canonical envelope shape. Adding a conforming
// provider is therefore configuration, not code.
type FieldMapping map[string]string

// Canonical field names accepted as FieldMapping keys.
const (
	FieldRegistrationNumber = "registration_number"
	FieldFirstName          = "first_name"
	FieldLastName           = "last_name"
	FieldNationalID         = "national_id"
	FieldEmail              = "email"
	FieldCourseCode         = "course_code"
	FieldCourseName         = "course_name"
	FieldDepartment         = "department"
	FieldCampus             = "campus"
	FieldYearOfStudy        = "year_of_study"
	FieldStatus             = "status"
)

var canonicalFields = map[string]struct{}{
	FieldRegistrationNumber: {},
	FieldFirstName:          {},
	FieldLastName:           {},
	FieldNationalID:         {},
	FieldEmail:              {},
	FieldCourseCode:         {},
	FieldCourseName:         {},
	FieldDepartment:         {},
	FieldCampus:             {},
	FieldYearOfStudy:        {},
	FieldStatus:             {},
}

// ProviderConfig describes one institution's student-record API.
//
// Invariants:
//   - Institution is non-empty and unique (case-insensitive) among active configs
//   - BaseURL is non-empty and LookupPath contains the {registration_number}
//     placeholder
//   - AuthScheme is one of the supported values
//   - SecretRef names the credential material; the secret itself is resolved
//     at call time and is never stored or logged by the engine
type ProviderConfig struct {
	ID          id.ProviderConfigID `json:"id"`
	Institution string              `json:"institution"`
	BaseURL     string              `json:"base_url"`
	LookupPath  string              `json:"lookup_path"`
	AuthScheme  AuthScheme          `json:"auth_scheme"`

	// SecretRef is an opaque handle (e.g. an env var name) used by the auth
	// strategy to resolve credential material. Never log its resolution.
	SecretRef string `json:"secret_ref"`

	// TokenURL is only consulted for the oauth scheme.
	TokenURL string `json:"token_url,omitempty"`

	// FieldMapping translates non-canonical provider payloads. Empty for
	// providers that answer in the canonical envelope.
	FieldMapping FieldMapping `json:"field_mapping,omitempty"`

	// Timeout bounds a single outbound attempt. Zero means the engine default.
	Timeout time.Duration `json:"timeout,omitempty"`

	// MaxRetries bounds retries after the first attempt. Negative means the
	// engine default; zero disables retries.
	MaxRetries int `json:"max_retries"`

	// RegNumberPattern, when set, is the institution's known registration
	// number format used by the cross-checker.
	RegNumberPattern string `json:"reg_number_pattern,omitempty"`

	// EmailDomains lists the institution's known mail domains, if any.
	EmailDomains []string `json:"email_domains,omitempty"`

	Active        bool      `json:"active"`
	LastSuccessAt time.Time `json:"last_success_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RegNumberPlaceholder must appear in LookupPath and is substituted with the
// URL-escaped registration number at lookup time.
const RegNumberPlaceholder = "{registration_number}"

// NewProviderConfig validates input and constructs a config in active state.
func NewProviderConfig(configID id.ProviderConfigID, institution, baseURL, lookupPath string, scheme AuthScheme, secretRef string, now time.Time) (*ProviderConfig, error) {
	cfg := &ProviderConfig{
		ID:          configID,
		Institution: strings.TrimSpace(institution),
		BaseURL:     strings.TrimSpace(baseURL),
		LookupPath:  strings.TrimSpace(lookupPath),
		AuthScheme:  scheme,
		SecretRef:   strings.TrimSpace(secretRef),
		MaxRetries:  -1,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the structural invariants above.
func (c *ProviderConfig) Validate() error {
	if c.Institution == "" {
		return dErrors.New(dErrors.CodeValidation, "institution is required")
	}
	if len(c.Institution) > 128 {
		return dErrors.New(dErrors.CodeValidation, "institution must be at most 128 characters")
	}
	if c.BaseURL == "" {
		return dErrors.New(dErrors.CodeValidation, "base_url is required")
	}
	if !strings.Contains(c.LookupPath, RegNumberPlaceholder) {
		return dErrors.New(dErrors.CodeValidation, "lookup_path must contain "+RegNumberPlaceholder)
	}
	if !c.AuthScheme.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unsupported auth scheme")
	}
	if c.SecretRef == "" {
		return dErrors.New(dErrors.CodeValidation, "secret_ref is required")
	}
	if c.AuthScheme == AuthSchemeOAuth && strings.TrimSpace(c.TokenURL) == "" {
		return dErrors.New(dErrors.CodeValidation, "token_url is required for the oauth scheme")
	}
	for field := range c.FieldMapping {
		if _, ok := canonicalFields[field]; !ok {
			return dErrors.New(dErrors.CodeValidation, "unknown canonical field in mapping: "+field)
		}
	}
	if c.RegNumberPattern != "" {
		if _, err := regexp.Compile(c.RegNumberPattern); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "reg_number_pattern is not a valid regular expression")
		}
	}
	return nil
}

// InstitutionKey normalizes an institution name for store lookups.
func InstitutionKey(institution string) string {
	return strings.ToLower(strings.TrimSpace(institution))
}

// Deactivate marks the config inactive. Deactivating twice is an invariant
// violation so admin tooling surfaces stale state instead of silently
// succeeding.
func (c *ProviderConfig) Deactivate(now time.Time) error {
	if !c.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "provider config is already inactive")
	}
	c.Active = false
	c.UpdatedAt = now
	return nil
}

// RecordSuccess stamps the last successful sync time.
func (c *ProviderConfig) RecordSuccess(now time.Time) {
	c.LastSuccessAt = now
	c.UpdatedAt = now
}
