package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/offline"
	"billing-admin-backend/internal/parse"
)

type syncPaymentRequest struct {
	MachineID  *uuid.UUID      `json:"machine_id"`
	BillNumber string          `json:"bill_number" binding:"required,min=1,max=100"`
	Amount     decimal.Decimal `json:"amount" binding:"positive_decimal"`
	Method     string          `json:"method" binding:"required"`
	Status     string          `json:"status"`
	CreatedAt  *time.Time      `json:"created_at"`
}

type syncPushRequest struct {
	MachineID uuid.UUID            `json:"machine_id" binding:"required"`
	Payments  []syncPaymentRequest `json:"payments" binding:"dive"`
	LastSync  *time.Time           `json:"last_sync"`
}

type syncPushResponse struct {
	SyncedPayments int       `json:"synced_payments"`
	FailedPayments int       `json:"failed_payments"`
	SyncTimestamp  time.Time `json:"sync_timestamp"`
}

type syncPullResponse struct {
	Services      []serviceResponse   `json:"services"`
	MachineStatus model.MachineStatus `json:"machine_status"`
	SyncTimestamp time.Time           `json:"sync_timestamp"`
}

type syncStatusResponse struct {
	MachineID      uuid.UUID           `json:"machine_id"`
	LastSync       *time.Time          `json:"last_sync"`
	Status         model.MachineStatus `json:"status"`
	PendingUploads int                 `json:"pending_uploads"`
}

// SyncPush handles POST /sync/push. Records whose bill number is already
// known count as failed.
func (h *Handler) SyncPush(c *gin.Context) {
	var req syncPushRequest
	if !h.bindJSON(c, &req) {
		return
	}
	machine, ok := h.machineInScope(c, req.MachineID)
	if !ok {
		return
	}

	records := make([]offline.Record, len(req.Payments))
	for i, p := range req.Payments {
		method, err := parse.PaymentMethod(p.Method)
		if err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
		status, err := parse.PaymentStatus(p.Status)
		if err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
		records[i] = offline.Record{
			MachineID:  p.MachineID,
			BillNumber: p.BillNumber,
			Amount:     p.Amount,
			Method:     method,
			Status:     status,
			CreatedAt:  p.CreatedAt,
		}
	}

	result, err := h.sync.Push(c.Request.Context(), machine, records)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, syncPushResponse{
		SyncedPayments: result.Synced,
		FailedPayments: result.Failed,
		SyncTimestamp:  result.SyncTimestamp,
	})
}

// SyncPull handles POST /sync/pull?machine_id=.
func (h *Handler) SyncPull(c *gin.Context) {
	id, err := uuid.Parse(c.Query("machine_id"))
	if err != nil {
		h.fail(c, invalidParam("Invalid machine_id"))
		return
	}
	machine, ok := h.machineInScope(c, id)
	if !ok {
		return
	}

	result, err := h.sync.Pull(c.Request.Context(), machine)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, syncPullResponse{
		Services:      serviceDTOs(result.Services),
		MachineStatus: result.MachineStatus,
		SyncTimestamp: result.SyncTimestamp,
	})
}

// SyncStatus handles GET /sync/status/:machine_id.
func (h *Handler) SyncStatus(c *gin.Context) {
	machine, ok := h.machineParam(c, "machine_id")
	if !ok {
		return
	}
	st := h.sync.Status(machine)
	respond(c, http.StatusOK, syncStatusResponse{
		MachineID:      st.MachineID,
		LastSync:       st.LastSync,
		Status:         st.Status,
		PendingUploads: st.PendingUploads,
	})
}
