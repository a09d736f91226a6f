// Package handler exposes the administrative provider-config endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"enrollgate/internal/provider/models"
	"enrollgate/internal/provider/service"
	id "enrollgate/pkg/domain"
	dErrors "enrollgate/pkg/domain-errors"
	"enrollgate/pkg/platform/httputil"
	"enrollgate/pkg/requestcontext"
)

// Service defines the interface for provider config administration.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.ProviderConfig, error)
	Update(ctx context.Context, configID id.ProviderConfigID, in service.CreateInput) (*models.ProviderConfig, error)
	Deactivate(ctx context.Context, configID id.ProviderConfigID) (*models.ProviderConfig, error)
	Get(ctx context.Context, configID id.ProviderConfigID) (*models.ProviderConfig, error)
	List(ctx context.Context) ([]*models.ProviderConfig, error)
}

// Handler wires provider config endpoints to the admin service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a provider config handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin CRUD endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/providers", h.HandleCreate)
	r.Get("/providers", h.HandleList)
	r.Get("/providers/{id}", h.HandleGet)
	r.Put("/providers/{id}", h.HandleUpdate)
	r.Delete("/providers/{id}", h.HandleDeactivate)
}

// HandleCreate handles POST /admin/providers.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConfigRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cfg, err := h.service.Create(ctx, req.Input())
	if err != nil {
		h.logger.WarnContext(ctx, "provider config create failed",
			"request_id", requestID,
			"institution", req.Institution,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromConfig(cfg))
}

// HandleList handles GET /admin/providers.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfigs(configs))
}

// HandleGet handles GET /admin/providers/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	configID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	cfg, err := h.service.Get(r.Context(), configID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

// HandleUpdate handles PUT /admin/providers/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	configID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfigRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cfg, err := h.service.Update(ctx, configID, req.Input())
	if err != nil {
		h.logger.WarnContext(ctx, "provider config update failed",
			"request_id", requestID,
			"config_id", configID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

// HandleDeactivate handles DELETE /admin/providers/{id}. Configs are never
// hard-deleted; history stays queryable for the audit trail.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	configID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	cfg, err := h.service.Deactivate(r.Context(), configID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (id.ProviderConfigID, bool) {
	configID, err := id.ParseProviderConfigID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID"))
		return id.ProviderConfigID{}, false
	}
	return configID, true
}
