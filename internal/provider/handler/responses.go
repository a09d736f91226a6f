package handler

import (
	"time"

	"enrollgate/internal/provider/models"
)

// ConfigResponse is the admin-facing view of a provider config. The secret
// itself never appears; only its reference does.
type ConfigResponse struct {
	ID               string            `json:"id"`
	Institution      string            `json:"institution"`
	BaseURL          string            `json:"base_url"`
	LookupPath       string            `json:"lookup_path"`
	AuthScheme       string            `json:"auth_scheme"`
	SecretRef        string            `json:"secret_ref"`
	TokenURL         string            `json:"token_url,omitempty"`
	FieldMapping     map[string]string `json:"field_mapping,omitempty"`
	TimeoutMillis    int64             `json:"timeout_ms,omitempty"`
	MaxRetries       int               `json:"max_retries"`
	RegNumberPattern string            `json:"reg_number_pattern,omitempty"`
	EmailDomains     []string          `json:"email_domains,omitempty"`
	Active           bool              `json:"active"`
	LastSuccessAt    *time.Time        `json:"last_success_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// FromConfig converts a domain config into its response form.
func FromConfig(cfg *models.ProviderConfig) ConfigResponse {
	resp := ConfigResponse{
		ID:               cfg.ID.String(),
		Institution:      cfg.Institution,
		BaseURL:          cfg.BaseURL,
		LookupPath:       cfg.LookupPath,
		AuthScheme:       string(cfg.AuthScheme),
		SecretRef:        cfg.SecretRef,
		TokenURL:         cfg.TokenURL,
		FieldMapping:     cfg.FieldMapping,
		TimeoutMillis:    cfg.Timeout.Milliseconds(),
		MaxRetries:       cfg.MaxRetries,
		RegNumberPattern: cfg.RegNumberPattern,
		EmailDomains:     cfg.EmailDomains,
		Active:           cfg.Active,
		CreatedAt:        cfg.CreatedAt,
		UpdatedAt:        cfg.UpdatedAt,
	}
	if !cfg.LastSuccessAt.IsZero() {
		t := cfg.LastSuccessAt
		resp.LastSuccessAt = &t
	}
	return resp
}

// FromConfigs converts a list of configs.
func FromConfigs(configs []*models.ProviderConfig) []ConfigResponse {
	out := make([]ConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, FromConfig(cfg))
	}
	return out
}
