package api

import (
	"github.com/gin-gonic/gin"

	"billing-admin-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// PutSubscription handles the creation or replacement of the caller's
// browser subscription.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	sub := &model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
		UserID:   currentUser(c).ID,
	}
	if err := h.store.UpsertSubscription(c.Request.Context(), sub); err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, "Subscription saved")
}

// DeleteSubscription handles the deletion of one of the caller's
// subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), currentUser(c).ID, req.Endpoint); err != nil {
		h.failStorage(c, err, "Subscription")
		return
	}
	respondMessage(c, "Subscription deleted")
}
