package requisition

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

// Handler exposes the requisition endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/requests", func(rr chi.Router) {
		rr.Post("/", h.handleCreate)
		rr.Get("/all", h.handleAll)
		rr.Get("/pending/{userID}", h.handlePending)
		rr.Get("/sent/{userID}", h.handleSent)
		rr.Get("/pending-for-branch/{branchID}", h.handlePendingForBranch)
		rr.Get("/{requestID}", h.handleGet)
		rr.Put("/{requestID}/review", h.handleReview)
		rr.Put("/{requestID}/mark-arrived", h.handleMarkArrived)
	})
}

type createRequest struct {
	RequesterID    string      `json:"requester_id" validate:"required,uuid"`
	TargetBranchID int64       `json:"target_branch_id" validate:"required"`
	Notes          string      `json:"notes"`
	Items          []ItemInput `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "requester_id and target_branch_id are required and items cannot be empty")
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		RequesterID:    req.RequesterID,
		TargetBranchID: req.TargetBranchID,
		Notes:          req.Notes,
		Items:          req.Items,
	})
	if err != nil {
		h.respondRequisitionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		h.respondRequisitionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Incoming(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondRequisitionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": list})
}

func (h *Handler) handleSent(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Sent(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondRequisitionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": list})
}

func (h *Handler) handlePendingForBranch(w http.ResponseWriter, r *http.Request) {
	branchID, err := strconv.ParseInt(chi.URLParam(r, "branchID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch id must be a number")
		return
	}
	list, err := h.service.IncomingForBranch(r.Context(), branchID)
	if err != nil {
		h.respondRequisitionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": list})
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.All(r.Context())
	if err != nil {
		h.respondRequisitionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": list})
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id" validate:"required,uuid"`
	Action     string `json:"action" validate:"required,oneof=approved denied"`
	Reason     string `json:"reason"`
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reviewer_id and an action of approved or denied are required")
		return
	}
	reviewed, err := h.service.Review(r.Context(),
		chi.URLParam(r, "requestID"), req.ReviewerID, req.Action, req.Reason)
	if err != nil {
		h.respondRequisitionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reviewed)
}

func (h *Handler) handleMarkArrived(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ActorID string `json:"actor_id"`
	}
	_ = httpx.DecodeJSON(r, &body)
	req, err := h.service.MarkArrived(r.Context(), chi.URLParam(r, "requestID"), body.ActorID)
	if err != nil {
		h.respondRequisitionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) respondRequisitionError(w http.ResponseWriter, err error) {
	var insufficient ErrInsufficientStock
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "request not found")
	case errors.Is(err, ErrEmptyItems), errors.Is(err, ErrSelfRequest):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNoBranchManager):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.As(err, &insufficient):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", insufficient.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Conflict", ErrInvalidState.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", shared.ErrIdempotencyConflict.Error())
	default:
		h.logger.Error("requisition request", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
