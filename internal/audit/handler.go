package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumina-ims/lumina/internal/platform/httpx"
	"github.com/lumina-ims/lumina/internal/shared"
)

// Handler exposes the audit trail endpoints.
type Handler struct {
	logger *slog.Logger
	repo   Repository
}

func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/audit-logs", func(ar chi.Router) {
		ar.Get("/", h.handleQuery)
		ar.Get("/stats", h.handleStats)
		ar.Get("/user/{userID}", h.handleUserLogs)
	})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Action:     q.Get("action"),
		UserID:     q.Get("user_id"),
		EntityType: q.Get("entity_type"),
	}
	if raw := q.Get("start_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, err
		}
		f.StartDate = &t
	}
	if raw := q.Get("end_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, err
		}
		f.EndDate = &t
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	return f, nil
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must be RFC 3339 timestamps")
		return
	}
	logs, total, err := h.repo.Query(r.Context(), f)
	if err != nil {
		h.logger.Error("query audit logs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"logs":       logs,
		"pagination": shared.NewPagination(f.Page, f.Limit, int(total)),
	})
}

func (h *Handler) handleUserLogs(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must be RFC 3339 timestamps")
		return
	}
	f.UserID = chi.URLParam(r, "userID")
	logs, total, err := h.repo.Query(r.Context(), f)
	if err != nil {
		h.logger.Error("query user audit logs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"logs":       logs,
		"pagination": shared.NewPagination(f.Page, f.Limit, int(total)),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must be RFC 3339 timestamps")
		return
	}
	stats, err := h.repo.QueryStats(r.Context(), f)
	if err != nil {
		h.logger.Error("audit log stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
