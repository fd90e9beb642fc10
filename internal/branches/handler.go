package branches

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

// Handler exposes the branch endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/branches", func(br chi.Router) {
		br.Get("/", h.handleList)
		br.Post("/", h.handleCreate)
		br.Get("/{branchID}", h.handleGet)
		br.Put("/{branchID}", h.handleUpdate)
		br.Delete("/{branchID}", h.handleDelete)
		br.Get("/{branchID}/products", h.handleProducts)
		br.Get("/{branchID}/nearest", h.handleNearest)
	})
}

func branchID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "branchID"), 10, 64)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list branches", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"branches": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := branchID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch id must be a number")
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "branch not found")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

type branchRequest struct {
	Name      string   `json:"branch_name" validate:"required"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	ActorID   string   `json:"actor_id"`
}

func (h *Handler) decodeBranch(w http.ResponseWriter, r *http.Request) (*branchRequest, bool) {
	var req branchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch_name is required")
		return nil, false
	}
	return &req, true
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBranch(w, r)
	if !ok {
		return
	}
	b, err := h.service.Create(r.Context(), req.ActorID, BranchInput{
		Name: req.Name, Location: req.Location, Latitude: req.Latitude, Longitude: req.Longitude,
	})
	if err != nil {
		h.respondBranchError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := branchID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch id must be a number")
		return
	}
	req, ok := h.decodeBranch(w, r)
	if !ok {
		return
	}
	b, err := h.service.Update(r.Context(), req.ActorID, id, BranchInput{
		Name: req.Name, Location: req.Location, Latitude: req.Latitude, Longitude: req.Longitude,
	})
	if err != nil {
		h.respondBranchError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := branchID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch id must be a number")
		return
	}
	if err := h.service.Delete(r.Context(), r.URL.Query().Get("actor_id"), id); err != nil {
		h.respondBranchError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	id, err := branchID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch id must be a number")
		return
	}
	list, err := h.service.ListProducts(r.Context(), id)
	if err != nil {
		h.respondBranchError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": list})
}

func (h *Handler) handleNearest(w http.ResponseWriter, r *http.Request) {
	id, err := branchID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch id must be a number")
		return
	}
	list, err := h.service.Nearest(r.Context(), id)
	if err != nil {
		h.respondBranchError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"branches": list})
}

func (h *Handler) respondBranchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "branch not found")
	case errors.Is(err, ErrCoordinatePair), errors.Is(err, ErrCoordinateRange):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("branch request", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
