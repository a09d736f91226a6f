package handler

import (
	"strings"

	"enrollgate/internal/provider/models"
	"enrollgate/internal/provider/service"
	dErrors "enrollgate/pkg/domain-errors"
)

// ConfigRequest is the HTTP request body for creating or updating a
// provider config.
type ConfigRequest struct {
	Institution      string            `json:"institution"`
	BaseURL          string            `json:"base_url"`
	LookupPath       string            `json:"lookup_path"`
	AuthScheme       string            `json:"auth_scheme"`
	SecretRef        string            `json:"secret_ref"`
	TokenURL         string            `json:"token_url,omitempty"`
	FieldMapping     map[string]string `json:"field_mapping,omitempty"`
	TimeoutMillis    int64             `json:"timeout_ms,omitempty"`
	MaxRetries       *int              `json:"max_retries,omitempty"`
	RegNumberPattern string            `json:"reg_number_pattern,omitempty"`
	EmailDomains     []string          `json:"email_domains,omitempty"`
}

// Validate performs surface-level validation; structural invariants are
// enforced by the models layer.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ConfigRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Institution = strings.TrimSpace(r.Institution)
	if r.Institution == "" {
		return dErrors.New(dErrors.CodeValidation, "institution is required")
	}
	r.BaseURL = strings.TrimSpace(r.BaseURL)
	if r.BaseURL == "" {
		return dErrors.New(dErrors.CodeValidation, "base_url is required")
	}
	r.AuthScheme = strings.TrimSpace(strings.ToLower(r.AuthScheme))
	if !models.AuthScheme(r.AuthScheme).Valid() {
		return dErrors.New(dErrors.CodeValidation, "auth_scheme must be one of api_key, oauth, basic, bearer")
	}
	if r.TimeoutMillis < 0 {
		return dErrors.New(dErrors.CodeValidation, "timeout_ms must not be negative")
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return dErrors.New(dErrors.CodeValidation, "max_retries must not be negative")
	}
	return nil
}

// Input converts the request into the service-layer input type.
func (r *ConfigRequest) Input() service.CreateInput {
	return service.CreateInput{
		Institution:      r.Institution,
		BaseURL:          r.BaseURL,
		LookupPath:       r.LookupPath,
		AuthScheme:       models.AuthScheme(r.AuthScheme),
		SecretRef:        r.SecretRef,
		TokenURL:         r.TokenURL,
		FieldMapping:     models.FieldMapping(r.FieldMapping),
		TimeoutMillis:    r.TimeoutMillis,
		MaxRetries:       r.MaxRetries,
		RegNumberPattern: r.RegNumberPattern,
		EmailDomains:     r.EmailDomains,
	}
}
