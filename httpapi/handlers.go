package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/internal/respond"
	"github.com/shepherdcrm/authcore/metrics"
	"github.com/shepherdcrm/authcore/permission"
	"github.com/shepherdcrm/authcore/session"
	"github.com/shepherdcrm/authcore/tenant"
)

const maxBodyBytes = 64 << 10

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User   *session.UserSnapshot `json:"user"`
	Tenant *tenant.Tenant        `json:"tenant"`
	Tokens interface{}           `json:"tokens"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type registerRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	FirstName   string   `json:"firstName" validate:"required,max=100"`
	LastName    string   `json:"lastName" validate:"required,max=100"`
	Role        string   `json:"role" validate:"required"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,min=1"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type checkPermissionRequest struct {
	Permission string `json:"permission" validate:"required,min=1"`
}

// decode reads, parses and validates a JSON body, answering 400 itself
// when anything is off. Returns false when the request is already dealt
// with.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	requestID := authcore.RequestIDFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, requestID, "bad_request", "malformed JSON body")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		details := map[string]string{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		respond.ErrorDetails(w, http.StatusBadRequest, requestID,
			"validation_failed", "request validation failed", details)
		return false
	}
	return true
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	t := authcore.TenantFromContext(r.Context())
	if t == nil {
		respond.Error(w, http.StatusBadRequest, requestID, "tenant_required", "could not determine tenant for request")
		return
	}

	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	result, err := a.service.Login(r.Context(), t.ID, req.Email, req.Password)
	if err != nil {
		metrics.ObserveLogin(loginOutcome(err))
		if errors.Is(err, authcore.ErrAccountLocked) {
			metrics.ObserveLockout()
		}
		writeError(w, requestID, err)
		return
	}
	metrics.ObserveLogin("success")
	respond.JSON(w, http.StatusOK, requestID, loginResponse{
		User:   result.User,
		Tenant: t,
		Tokens: result.Tokens,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}
	tenantID := ""
	if t := authcore.TenantFromContext(r.Context()); t != nil {
		tenantID = t.ID
	}
	result, err := a.service.Refresh(r.Context(), tenantID, req.RefreshToken)
	if err != nil {
		metrics.ObserveRefresh("rejected")
		writeError(w, requestID, err)
		return
	}
	metrics.ObserveRefresh("success")
	respond.JSON(w, http.StatusOK, requestID, result)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	token := bearerToken(r)
	if token == "" {
		respond.Error(w, http.StatusUnauthorized, requestID, "token_required", "authentication required")
		return
	}
	if err := a.service.Logout(r.Context(), token); err != nil {
		writeError(w, requestID, err)
		return
	}
	respond.JSON(w, http.StatusOK, requestID, map[string]string{"status": "logged_out"})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	var req registerRequest
	if !a.decode(w, r, &req) {
		return
	}
	actor := authcore.UserFromContext(r.Context())
	t := authcore.TenantFromContext(r.Context())

	user, err := a.service.Register(r.Context(), actor, t, authcore.RegisterInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        permission.Role(req.Role),
		Permissions: req.Permissions,
	})
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	respond.JSON(w, http.StatusCreated, requestID, user)
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	t := authcore.TenantFromContext(r.Context())
	var req forgotPasswordRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.service.ForgotPassword(r.Context(), t, req.Email); err != nil {
		writeError(w, requestID, err)
		return
	}
	// Identical response whether or not the email exists.
	respond.JSON(w, http.StatusOK, requestID, map[string]string{
		"status": "if the address is registered, a reset email has been sent",
	})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	t := authcore.TenantFromContext(r.Context())
	if t == nil {
		respond.Error(w, http.StatusBadRequest, requestID, "tenant_required", "could not determine tenant for request")
		return
	}
	var req resetPasswordRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.service.ResetPassword(r.Context(), t.ID, req.Token, req.NewPassword); err != nil {
		writeError(w, requestID, err)
		return
	}
	respond.JSON(w, http.StatusOK, requestID, map[string]string{"status": "password_reset"})
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	var req changePasswordRequest
	if !a.decode(w, r, &req) {
		return
	}
	actor := authcore.UserFromContext(r.Context())
	if err := a.service.ChangePassword(r.Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, requestID, err)
		return
	}
	respond.JSON(w, http.StatusOK, requestID, map[string]string{"status": "password_changed"})
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	t := authcore.TenantFromContext(r.Context())
	if t == nil {
		respond.Error(w, http.StatusBadRequest, requestID, "tenant_required", "could not determine tenant for request")
		return
	}
	var req verifyEmailRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.service.VerifyEmail(r.Context(), t.ID, req.Token); err != nil {
		writeError(w, requestID, err)
		return
	}
	respond.JSON(w, http.StatusOK, requestID, map[string]string{"status": "email_verified"})
}

func (a *API) handleCheckPermission(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	var req checkPermissionRequest
	if !a.decode(w, r, &req) {
		return
	}
	snap := authcore.UserFromContext(r.Context())
	respond.JSON(w, http.StatusOK, requestID, map[string]bool{
		"allowed": a.service.CheckPermission(snap, req.Permission),
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	requestID := authcore.RequestIDFromContext(r.Context())
	snap := authcore.UserFromContext(r.Context())
	if snap == nil {
		respond.Error(w, http.StatusUnauthorized, requestID, "token_required", "authentication required")
		return
	}
	respond.JSON(w, http.StatusOK, requestID, map[string]interface{}{
		"user":   snap,
		"tenant": authcore.TenantFromContext(r.Context()),
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, "", map[string]string{"status": "ok"})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		if err := a.ready(); err != nil {
			a.logger.Warn("readiness probe failed", zap.Error(err))
			respond.Error(w, http.StatusServiceUnavailable, "", "not_ready", "dependencies unavailable")
			return
		}
	}
	respond.JSON(w, http.StatusOK, "", map[string]string{"status": "ready"})
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, authcore.ErrAccountLocked):
		return "locked"
	case errors.Is(err, authcore.ErrInvalidCredentials):
		return "invalid"
	default:
		return "error"
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
