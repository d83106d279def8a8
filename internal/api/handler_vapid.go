package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"billing-admin-backend/internal/apperr"
)

type vapidKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		h.fail(c, apperr.New(http.StatusServiceUnavailable, apperr.CodeServer, "Push notifications are not configured"))
		return
	}
	respond(c, http.StatusOK, vapidKeyResponse{PublicKey: h.webpush.VAPIDPublicKey})
}
