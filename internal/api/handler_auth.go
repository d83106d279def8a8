package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"billing-admin-backend/internal/apperr"
	"billing-admin-backend/internal/auth"
	"billing-admin-backend/internal/metrics"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/mw"
	"billing-admin-backend/internal/observe"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenFields struct {
	Token        string `json:"token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func tokensOf(pair auth.TokenPair) tokenFields {
	return tokenFields{
		Token:        pair.AccessToken,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    pair.ExpiresIn,
	}
}

type loginResponse struct {
	User userResponse `json:"user"`
	tokenFields
}

type machineIdentity struct {
	ID       uuid.UUID           `json:"id"`
	Name     string              `json:"name"`
	Location string              `json:"location"`
	Username string              `json:"username"`
	Status   model.MachineStatus `json:"status"`
	LastSync *time.Time          `json:"last_sync"`
}

type machineLoginResponse struct {
	Machine machineIdentity `json:"machine"`
	tokenFields
}

type machineMeResponse struct {
	ID       uuid.UUID           `json:"id"`
	Username string              `json:"username"`
	IsActive bool                `json:"is_active"`
	Status   model.MachineStatus `json:"status"`
	LastSync *time.Time          `json:"last_sync"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// verify checks credentials and records the attempt.
func (h *Handler) verify(c *gin.Context, kind auth.Kind, req loginRequest) (auth.Principal, bool) {
	principal, err := h.creds.Verify(c.Request.Context(), kind, req.Username, req.Password)
	if err != nil {
		var failure *auth.AuthFailure
		if errors.As(err, &failure) {
			metrics.RecordAuthAttempt(string(kind), false)
			h.recorder.RecordEvent(observe.EventAuthFailure, map[string]any{
				"kind":     string(kind),
				"username": req.Username,
				"reason":   string(failure.Reason),
				"ip":       c.ClientIP(),
			})
			h.fail(c, failure.AppError())
			return nil, false
		}
		h.fail(c, err)
		return nil, false
	}

	metrics.RecordAuthAttempt(string(kind), true)
	h.recorder.RecordEvent(observe.EventAuthSuccess, map[string]any{
		"kind":     string(kind),
		"username": req.Username,
		"ip":       c.ClientIP(),
	})
	return principal, true
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	principal, ok := h.verify(c, auth.KindUser, req)
	if !ok {
		return
	}
	user := principal.(*auth.UserPrincipal).User

	pair, err := h.tokens.IssueUserPair(user)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, loginResponse{User: userDTO(user), tokenFields: tokensOf(pair)})
}

// MachineLogin handles POST /auth/machine-login. A successful login counts
// as a heartbeat and is logged against the machine.
func (h *Handler) MachineLogin(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	principal, ok := h.verify(c, auth.KindMachine, req)
	if !ok {
		return
	}
	m := principal.(*auth.MachinePrincipal).Machine

	pair, err := h.tokens.IssueMachinePair(m)
	if err != nil {
		h.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.heartbeat(ctx, m); err != nil {
		h.failStorage(c, err, "Machine")
		return
	}
	details := "Machine logged in from " + c.ClientIP()
	if err := h.store.CreateLog(ctx, &model.Log{MachineID: m.ID, Action: "Machine login", Details: &details, Type: model.LogLogin}); err != nil {
		h.logger.Warn("failed to write login log", zap.String("machine_id", m.ID.String()), zap.Error(err))
	}

	respond(c, http.StatusOK, machineLoginResponse{
		Machine: machineIdentity{
			ID:       m.ID,
			Name:     m.Name,
			Location: m.Location,
			Username: m.Username,
			Status:   m.Status,
			LastSync: m.LastSync,
		},
		tokenFields: tokensOf(pair),
	})
}

// heartbeat marks m online now and resolves its open alerts.
func (h *Handler) heartbeat(ctx context.Context, m *model.Machine) error {
	now := time.Now().UTC()
	if err := h.store.TouchLastSync(ctx, m.ID, model.MachineOnline, now); err != nil {
		return err
	}
	m.Status = model.MachineOnline
	m.LastSync = &now
	_, err := h.alerts.RecoverMachine(ctx, m.ID)
	return err
}

// Refresh handles POST /auth/refresh. The principal is reloaded so that a
// deactivated user or a machine now in maintenance cannot refresh.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !h.bindJSON(c, &req) {
		return
	}
	claims, err := h.tokens.Validate(req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	if claims.Type != auth.TokenRefresh {
		h.fail(c, apperr.ErrInvalidToken)
		return
	}

	access := *claims
	access.Type = auth.TokenAccess
	if claims.Kind == auth.KindMachine {
		access.Type = auth.TokenMachine
	}
	principal, err := h.creds.Resolve(c.Request.Context(), &access)
	if err != nil {
		h.fail(c, err)
		return
	}

	var token string
	switch p := principal.(type) {
	case *auth.UserPrincipal:
		token, err = h.tokens.IssueUserAccess(p.User)
	case *auth.MachinePrincipal:
		token, err = h.tokens.IssueMachineAccess(p.Machine)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.recorder.RecordEvent(observe.EventTokenRefresh, map[string]any{
		"kind":    string(principal.Kind()),
		"subject": principal.ID().String(),
	})
	respond(c, http.StatusOK, refreshResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.tokens.AccessTTL().Seconds()),
	})
}

// Logout handles POST /auth/logout. Tokens are stateless; the client drops
// them.
func (h *Handler) Logout(c *gin.Context) {
	p := mw.PrincipalFrom(c)
	h.recorder.RecordEvent(observe.EventLogout, map[string]any{
		"kind":     string(p.Kind()),
		"username": p.Username(),
	})
	respondMessage(c, "Logged out successfully")
}

// Me handles GET /auth/me. For a machine it doubles as a heartbeat.
func (h *Handler) Me(c *gin.Context) {
	switch p := mw.PrincipalFrom(c).(type) {
	case *auth.UserPrincipal:
		respond(c, http.StatusOK, userDTO(p.User))
	case *auth.MachinePrincipal:
		m := p.Machine
		if err := h.heartbeat(c.Request.Context(), m); err != nil {
			h.failStorage(c, err, "Machine")
			return
		}
		respond(c, http.StatusOK, machineMeResponse{
			ID:       m.ID,
			Username: m.Username,
			IsActive: true,
			Status:   m.Status,
			LastSync: m.LastSync,
		})
	default:
		h.fail(c, apperr.ErrInvalidToken)
	}
}
