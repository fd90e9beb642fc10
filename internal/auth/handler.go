package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/lumina-ims/lumina/internal/platform/httpx"
	"github.com/lumina-ims/lumina/internal/shared"
)

const (
	loginRateLimit  = 10
	loginRateWindow = 15 * time.Minute
	resetRateLimit  = 5
	resetRateWindow = time.Hour
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(rateLimiter(loginRateLimit, loginRateWindow))
		gr.Post("/login", h.handleLogin)
	})
	r.Post("/validate-session", h.handleValidateSession)
	r.Post("/logout", h.handleLogout)

	r.Post("/users/invite", h.handleInvite)
	r.Get("/users/invite/{token}", h.handleLookupInvite)
	r.Post("/users/complete-setup", h.handleCompleteSetup)

	r.Group(func(gr chi.Router) {
		gr.Use(rateLimiter(resetRateLimit, resetRateWindow))
		gr.Post("/forgot-password", h.handleForgotPassword)
	})
	r.Post("/reset-password", h.handleResetPassword)
	r.Get("/users/reset/{token}", h.handleLookupReset)
}

func rateLimiter(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.TooManyRequests(w, int(window.Seconds()))
		}),
	)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type accountView struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	RoleID   int64  `json:"role_id"`
	BranchID *int64 `json:"branch_id"`
	Status   string `json:"status"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	acc, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInactiveAccount):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ErrInactiveAccount.Error())
		default:
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidCredentials.Error())
		}
		return
	}

	token, err := h.service.IssueSession(r.Context(), acc.UserID, r.RemoteAddr, r.UserAgent())
	if err != nil {
		h.logger.Warn("issue session", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"user": accountView{
			UserID:   acc.UserID,
			Name:     acc.Name,
			Email:    acc.Email,
			RoleID:   acc.RoleID,
			BranchID: acc.BranchID,
			Status:   acc.Status,
		},
		"role":     acc.RoleName,
		"branchId": acc.BranchID,
		"token":    token,
	})
}

type validateSessionRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

func (h *Handler) handleValidateSession(w http.ResponseWriter, r *http.Request) {
	var req validateSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || h.validate.Struct(req) != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id is required")
		return
	}
	if err := h.service.ValidateSession(r.Context(), req.UserID); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
		case errors.Is(err, shared.ErrInactiveAccount):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ErrInactiveAccount.Error())
		default:
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"valid": true, "user_id": req.UserID})
}

type logoutRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := httpx.DecodeJSON(r, &req); err == nil && req.Token != "" {
		if err := h.service.sessions.Revoke(r.Context(), req.Token); err != nil {
			h.logger.Warn("revoke session", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type inviteRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	RoleID   int64  `json:"role_id" validate:"required,min=1,max=3"`
	BranchID *int64 `json:"branch_id"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	invite, err := h.service.Invite(r.Context(), req.Name, req.Email, req.RoleID, req.BranchID)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", ErrEmailTaken.Error())
			return
		}
		h.logger.Error("create invite", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"user_id":     invite.UserID,
		"setup_token": invite.SetupToken,
	})
}

func (h *Handler) handleLookupInvite(w http.ResponseWriter, r *http.Request) {
	invite, err := h.service.LookupInvite(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", ErrTokenInvalid.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":   invite.UserID,
		"name":      invite.Name,
		"email":     invite.Email,
		"role_id":   invite.RoleID,
		"branch_id": invite.BranchID,
	})
}

type completeSetupRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleCompleteSetup(w http.ResponseWriter, r *http.Request) {
	var req completeSetupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "token and a password of at least 8 characters are required")
		return
	}
	invite, err := h.service.CompleteSetup(r.Context(), req.Token, req.Password)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", ErrTokenInvalid.Error())
			return
		}
		h.logger.Error("complete setup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "user_id": invite.UserID})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || h.validate.Struct(req) != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email is required")
		return
	}
	// Same response whether or not the account exists.
	if _, err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error("request password reset", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "if the email exists, reset instructions have been issued",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "token and a password of at least 8 characters are required")
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", ErrTokenInvalid.Error())
			return
		}
		h.logger.Error("reset password", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleLookupReset(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.LookupResetToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", ErrTokenInvalid.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": acc.UserID, "email": acc.Email})
}
