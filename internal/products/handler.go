package products

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

// Handler exposes the product endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(pr chi.Router) {
		pr.Get("/", h.handleList)
		pr.Post("/", h.handleCreate)
		pr.Post("/import", h.handleImport)
		pr.Get("/{productID}", h.handleGet)
		pr.Put("/{productID}", h.handleUpdate)
		pr.Delete("/{productID}", h.handleDelete)
	})
}

func productID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var branchID *int64
	if raw := r.URL.Query().Get("branch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch_id must be a number")
			return
		}
		branchID = &id
	}
	list, err := h.service.List(r.Context(), branchID)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id must be a number")
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondProductError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

type productRequest struct {
	Name       string  `json:"product_name" validate:"required"`
	CategoryID *int64  `json:"category_id"`
	BranchID   int64   `json:"branch_id" validate:"required"`
	Price      float64 `json:"price" validate:"min=0"`
	Quantity   int64   `json:"quantity" validate:"min=0"`
	ActorID    string  `json:"actor_id"`
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (*productRequest, bool) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return nil, false
	}
	return &req, true
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p, err := h.service.Create(r.Context(), req.ActorID, ProductInput{
		Name: req.Name, CategoryID: req.CategoryID, BranchID: req.BranchID,
		Price: req.Price, Quantity: req.Quantity,
	})
	if err != nil {
		h.respondProductError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id must be a number")
		return
	}
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p, err := h.service.Update(r.Context(), req.ActorID, id, ProductInput{
		Name: req.Name, CategoryID: req.CategoryID, BranchID: req.BranchID,
		Price: req.Price, Quantity: req.Quantity,
	})
	if err != nil {
		h.respondProductError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id must be a number")
		return
	}
	if err := h.service.Delete(r.Context(), r.URL.Query().Get("actor_id"), id); err != nil {
		h.respondProductError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type importRequest struct {
	BranchID int64       `json:"branch_id" validate:"required"`
	Rows     []ImportRow `json:"products" validate:"required,min=1"`
	ActorID  string      `json:"actor_id"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch_id and a non-empty products list are required")
		return
	}
	res, err := h.service.Import(r.Context(), req.ActorID, req.BranchID, req.Rows)
	if err != nil {
		h.logger.Error("bulk import", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) respondProductError(w http.ResponseWriter, err error) {
	var open ErrHasOpenRequests
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrNegativeValues):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &open):
		httpx.Problem(w, http.StatusConflict, "Conflict", open.Error())
	case errors.Is(err, ErrHasTransferHistory):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("product request", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
