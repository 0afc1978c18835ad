// Package http contains the dashboard's HTTP handlers. Every response is
// computed from explicit service state for the request's filter; handlers
// hold no mutable state of their own.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/analytics"
	apierrors "github.com/CauseofDeathLife/asistencia360-analytics/internal/errors"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/middleware"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/services"
	"github.com/CauseofDeathLife/asistencia360-analytics/pkg/contracts/domain"
)

// DataServiceInterface is the service surface the summary handler needs.
type DataServiceInterface interface {
	Meta(ctx context.Context) (*services.Meta, error)
	Summarize(ctx context.Context, filter domain.AttendanceFilter) (*analytics.Summary, error)
}

// SummaryHandler serves filtered attendance summaries as JSON.
type SummaryHandler struct {
	service DataServiceInterface
	logger  *slog.Logger
}

// NewSummaryHandler creates a summary handler.
func NewSummaryHandler(service DataServiceInterface, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{
		service: service,
		logger:  logger.With(slog.String("component", "summary_handler")),
	}
}

// Routes returns the summary routes.
func (h *SummaryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/meta", h.GetMeta)
	r.Get("/summary", h.GetSummary)
	return r
}

// GetMeta handles GET /api/meta
func (h *SummaryHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Meta(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, meta)
}

// GetSummary handles GET /api/summary. The filter comes from query
// parameters: from, to (ISO dates), group and subject (repeatable),
// student_id.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parseFilter(r)
	if apiErr != nil {
		apierrors.WriteError(w, apiErr)
		return
	}

	summary, err := h.service.Summarize(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "summary computed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("days", len(summary.DayPattern)),
		slog.Int("orphan_records", summary.Anomalies.OrphanRecords))

	render.JSON(w, r, summary)
}

func (h *SummaryHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "service call failed",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path))

	if errors.Is(err, services.ErrNotLoaded) {
		apierrors.WriteError(w, apierrors.ErrDatasetNotLoaded)
		return
	}

	var appErr *apierrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeValidation {
		apierrors.WriteError(w, apierrors.New(http.StatusBadRequest, "VALIDATION_FAILED", appErr.Message))
		return
	}

	apierrors.WriteError(w, apierrors.ErrInternalServer)
}

// parseFilter builds the attendance filter from query parameters.
func parseFilter(r *http.Request) (domain.AttendanceFilter, *apierrors.APIError) {
	var filter domain.AttendanceFilter
	q := r.URL.Query()

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, apierrors.ErrValidation("from", "must be an ISO-8601 date (YYYY-MM-DD)")
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, apierrors.ErrValidation("to", "must be an ISO-8601 date (YYYY-MM-DD)")
		}
		filter.To = &t
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, apierrors.ErrValidation("to", "must not be before from")
	}

	filter.Groups = splitParam(q["group"])
	filter.Subjects = splitParam(q["subject"])
	filter.StudentID = strings.TrimSpace(q.Get("student_id"))

	return filter, nil
}

// splitParam accepts both repeated parameters and comma-separated lists.
func splitParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
