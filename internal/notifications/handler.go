package notifications

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumina-ims/lumina/internal/platform/httpx"
	"github.com/lumina-ims/lumina/internal/shared"
)

// Handler exposes the notification endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/notifications", func(nr chi.Router) {
		nr.Get("/", h.handleList)
		nr.Post("/", h.handleCreate)
		nr.Get("/unread/{userID}", h.handleUnread)
		nr.Put("/mark-read", h.handleMarkRead)
		nr.Delete("/{notificationID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	list, err := h.service.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("list notifications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notifications": list})
}

func (h *Handler) handleUnread(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountUnread(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.logger.Error("count unread", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"unread": count})
}

type createNotificationRequest struct {
	UserID   string         `json:"user_id" validate:"required,uuid"`
	Title    string         `json:"title" validate:"required"`
	Message  string         `json:"message" validate:"required"`
	Link     string         `json:"link"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id, title and message are required")
		return
	}
	n, err := h.service.Create(r.Context(), CreateInput{
		UserID: req.UserID, Title: req.Title, Message: req.Message,
		Link: req.Link, Type: req.Type, Metadata: req.Metadata,
	})
	if err != nil {
		h.logger.Error("create notification", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, n)
}

type markReadRequest struct {
	UserID string  `json:"user_id" validate:"required,uuid"`
	IDs    []int64 `json:"ids"`
	Link   string  `json:"link"`
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id is required")
		return
	}
	updated, err := h.service.MarkRead(r.Context(), MarkReadInput{
		UserID: req.UserID, IDs: req.IDs, Link: req.Link,
	})
	if err != nil {
		if errors.Is(err, ErrMarkReadInput) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", ErrMarkReadInput.Error())
			return
		}
		h.logger.Error("mark read", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "notification id must be a number")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "notification not found")
			return
		}
		h.logger.Error("delete notification", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
