package mw

import (
	"github.com/gin-gonic/gin"

	"billing-admin-backend/internal/apperr"
)

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// Abort writes err in the failure envelope and stops the chain.
func Abort(c *gin.Context, err apperr.AppError) {
	c.AbortWithStatusJSON(err.HTTPCode(), ErrorResponse{
		Error: ErrorBody{
			Code:    err.ErrorCode(),
			Message: err.Message(),
			Details: err.Details(),
		},
	})
}
