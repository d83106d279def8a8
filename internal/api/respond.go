package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"billing-admin-backend/internal/apperr"
	"billing-admin-backend/internal/mw"
)

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, messageResponse{Success: true, Message: msg})
}

// fail writes err in the failure envelope. Server side failures are logged
// with their cause; the cause reaches the client only in debug mode.
func (h *Handler) fail(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Storage(err)
	}
	if appErr.HTTPCode() >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", appErr.ErrorCode()),
			zap.Error(err))
		if h.cfg != nil && h.cfg.Server.Debug && appErr.Details() == nil {
			appErr = apperr.New(appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message()).WithDetails(err.Error())
		}
	}
	mw.Abort(c, appErr)
}

// failStorage reports a store error, mapping not-found onto entity.
func (h *Handler) failStorage(c *gin.Context, err error, entity string) {
	h.fail(c, apperr.FromStorage(err, entity))
}

func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, validationError(err))
		return false
	}
	return true
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func validationError(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		return apperr.Validation("Validation error", details)
	}
	return apperr.Validation("Invalid request body", []string{err.Error()})
}

func invalidParam(msg string) *apperr.Error {
	return apperr.Validation(msg, nil)
}
