// Package handler exposes the read-only audit trail export for compliance
// and fraud review.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"enrollgate/internal/audit"
	"enrollgate/internal/verification/models"
	dErrors "enrollgate/pkg/domain-errors"
	"enrollgate/pkg/platform/httputil"
	"enrollgate/pkg/requestcontext"
)

// maxExportLimit caps a single export page.
const maxExportLimit = 1000

// Reader is the query surface over the audit trail.
type Reader interface {
	List(ctx context.Context, query audit.Query) ([]audit.Attempt, error)
}

// Handler serves the audit export endpoint.
type Handler struct {
	reader Reader
	logger *slog.Logger
}

// New constructs an audit handler.
func New(reader Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

// Register mounts the export endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verifications", h.HandleList)
}

// HandleList handles GET /admin/verifications. Filters arrive as query
// parameters: institution, outcome, from, to (RFC 3339), and limit.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, err := parseQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	attempts, err := h.reader.List(ctx, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail query failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit trail query failed"))
		return
	}
	out := FromAttempts(attempts)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"attempts": out,
		"count":    len(out),
	})
}

func parseQuery(r *http.Request) (audit.Query, error) {
	q := audit.Query{
		Institution: r.URL.Query().Get("institution"),
		Outcome:     models.Outcome(r.URL.Query().Get("outcome")),
		Limit:       maxExportLimit,
	}

	switch q.Outcome {
	case "", models.OutcomeVerified, models.OutcomeManualEntry, models.OutcomeManualReview:
	default:
		return audit.Query{}, dErrors.New(dErrors.CodeValidation, "unknown outcome filter")
	}

	var err error
	if q.From, err = parseTime(r.URL.Query().Get("from")); err != nil {
		return audit.Query{}, dErrors.New(dErrors.CodeValidation, "from must be RFC 3339")
	}
	if q.To, err = parseTime(r.URL.Query().Get("to")); err != nil {
		return audit.Query{}, dErrors.New(dErrors.CodeValidation, "to must be RFC 3339")
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return audit.Query{}, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
		}
		if limit < q.Limit {
			q.Limit = limit
		}
	}
	return q, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
