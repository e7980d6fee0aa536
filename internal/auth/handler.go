package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumen-app/lumen/internal/platform/httpx"
	"github.com/lumen-app/lumen/internal/shared"
)

// Handler wires HTTP endpoints for account and session flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	guard         *Guard
	validator     *validator.Validate
	sessionTTL    time.Duration
	secureCookies bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *Guard, sessionTTL time.Duration, secureCookies bool) *Handler {
	return &Handler{
		logger:        logger,
		service:       service,
		guard:         guard,
		validator:     validator.New(),
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Get("/session-validate", h.handleSessionValidate)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth)
		r.Get("/api/account", h.handleAccount)
		r.Put("/api/update", h.handleUpdate)
		r.Delete("/api/delete", h.handleDelete)
		r.Post("/api/logout", h.handleLogout)
	})
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateRequest struct {
	Username *string `json:"username" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

type deleteRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Username, email, and password are required.")
		return
	}
	if msg, ok := h.validateRegister(req); !ok {
		httpx.Fail(w, http.StatusBadRequest, msg)
		return
	}

	token, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.Success(w, http.StatusCreated, httpx.Envelope{"token": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Email and password are required.")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Please enter a valid email address.")
		return
	}

	prior := ""
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		prior = cookie.Value
	}

	token, sessionID, err := h.service.Login(r.Context(), req.Email, req.Password, prior)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, sessionID)
	httpx.Success(w, http.StatusOK, httpx.Envelope{"token": token})
}

func (h *Handler) handleAccount(w http.ResponseWriter, r *http.Request) {
	ident, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.service.Account(r.Context(), ident.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.Success(w, http.StatusOK, httpx.Envelope{
		"user": map[string]string{
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.Email != nil {
		if err := h.validator.Var(*req.Email, "email"); err != nil {
			httpx.Fail(w, http.StatusBadRequest, "Invalid email address.")
			return
		}
	}
	if req.Password != nil && len(*req.Password) < 8 {
		httpx.Fail(w, http.StatusBadRequest, "Password must be at least 8 characters long.")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), ident.UserID, ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.Success(w, http.StatusOK, httpx.Envelope{
		"message": "User updated successfully.",
		"user": map[string]string{
			"userId":   user.ID.Hex(),
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req deleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Password == "" {
		httpx.Fail(w, http.StatusBadRequest, "Password confirmation is required.")
		return
	}

	if err := h.service.DeleteAccount(r.Context(), ident.UserID, req.Password); err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "Incorrect password.")
			return
		}
		h.writeError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	httpx.Success(w, http.StatusOK, httpx.Envelope{"message": "User deleted successfully."})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ident, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.Logout(r.Context(), ident.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	httpx.Success(w, http.StatusOK, httpx.Envelope{"message": "Logged out successfully."})
}

// handleSessionValidate is a liveness check for the client's credentials.
// It runs the same two checks as the guard but stays outside the protected
// group so it can answer without a wrapped operation.
func (h *Handler) handleSessionValidate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.guard.Authenticate(r); err != nil {
		h.guard.reject(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, httpx.Envelope{"message": "Session is valid."})
}

func (h *Handler) validateRegister(req registerRequest) (string, bool) {
	err := h.validator.Struct(req)
	if err == nil {
		return "", true
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			switch {
			case fe.Field() == "Password" && fe.Tag() == "min":
				return "Password must be at least 8 characters.", false
			case fe.Field() == "Email" && fe.Tag() == "email":
				return "Please enter a valid email address.", false
			}
		}
	}
	return "Username, email, and password are required.", false
}

// writeError maps domain errors to status codes while keeping the uniform
// envelope. Internal detail stays in the server log.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrDuplicateEmail):
		httpx.Fail(w, http.StatusConflict, "User already exists.")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "User does not exist.")
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.Fail(w, http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, shared.ErrAlreadyLoggedIn):
		httpx.Fail(w, http.StatusConflict, "User already logged in elsewhere.")
	case errors.Is(err, shared.ErrSessionInvalid):
		httpx.Fail(w, http.StatusUnauthorized, "Session expired or invalid.")
	case errors.Is(err, shared.ErrUnauthorized):
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized")
	default:
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
