package categories

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumina-ims/lumina/internal/platform/httpx"
	"github.com/lumina-ims/lumina/internal/shared"
)

// Handler exposes the category endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/categories", func(cr chi.Router) {
		cr.Get("/", h.handleList)
		cr.Post("/", h.handleCreate)
		cr.Get("/{categoryID}", h.handleGet)
		cr.Put("/{categoryID}", h.handleUpdate)
		cr.Delete("/{categoryID}", h.handleDelete)
	})
}

func categoryID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
}

type categoryRequest struct {
	Name    string `json:"category_name"`
	ActorID string `json:"actor_id"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := categoryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category id must be a number")
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondCategoryError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	c, err := h.service.Create(r.Context(), req.ActorID, req.Name)
	if err != nil {
		h.respondCategoryError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := categoryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category id must be a number")
		return
	}
	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	c, err := h.service.Update(r.Context(), req.ActorID, id, req.Name)
	if err != nil {
		h.respondCategoryError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := categoryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category id must be a number")
		return
	}
	if err := h.service.Delete(r.Context(), r.URL.Query().Get("actor_id"), id); err != nil {
		h.respondCategoryError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) respondCategoryError(w http.ResponseWriter, err error) {
	var inUse ErrInUse
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "category not found")
	case errors.Is(err, ErrNameRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", ErrNameRequired.Error())
	case errors.Is(err, ErrNameTaken):
		httpx.Problem(w, http.StatusConflict, "Duplicate", ErrNameTaken.Error())
	case errors.As(err, &inUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", inUse.Error())
	default:
		h.logger.Error("category request", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
