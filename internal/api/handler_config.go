package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/observe"
	"billing-admin-backend/internal/store"
)

type billConfigRequest struct {
	OrgName       *string          `json:"org_name" binding:"omitempty,max=255"`
	Tagline       *string          `json:"tagline" binding:"omitempty,max=255"`
	LogoURL       *string          `json:"logo_url" binding:"omitempty,max=500"`
	UnitName      *string          `json:"unit_name" binding:"omitempty,max=255"`
	Territory     *string          `json:"territory" binding:"omitempty,max=255"`
	GSTNumber     *string          `json:"gst_number" binding:"omitempty,max=50"`
	POSID         *string          `json:"pos_id" binding:"omitempty,max=50"`
	CGSTPercent   *decimal.Decimal `json:"cgst_percent" binding:"omitempty,decimal_range=0:100"`
	SGSTPercent   *decimal.Decimal `json:"sgst_percent" binding:"omitempty,decimal_range=0:100"`
	FooterMessage *string          `json:"footer_message" binding:"omitempty,max=500"`
	Website       *string          `json:"website" binding:"omitempty,max=255"`
	TollFree      *string          `json:"toll_free" binding:"omitempty,max=50"`
}

func (r billConfigRequest) patch() store.BillConfigPatch {
	return store.BillConfigPatch{
		OrgName:       r.OrgName,
		Tagline:       r.Tagline,
		LogoURL:       r.LogoURL,
		UnitName:      r.UnitName,
		Territory:     r.Territory,
		GSTNumber:     r.GSTNumber,
		POSID:         r.POSID,
		CGSTPercent:   r.CGSTPercent,
		SGSTPercent:   r.SGSTPercent,
		FooterMessage: r.FooterMessage,
		Website:       r.Website,
		TollFree:      r.TollFree,
	}
}

// GetBillConfig handles GET /config/machine/:machine_id. A machine without
// a config gets data null.
func (h *Handler) GetBillConfig(c *gin.Context) {
	machine, ok := h.machineParam(c, "machine_id")
	if !ok {
		return
	}
	cfg, err := h.store.BillConfig(c.Request.Context(), machine.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if cfg == nil {
		respond(c, http.StatusOK, nil)
		return
	}
	respond(c, http.StatusOK, billConfigDTO(cfg))
}

// PutBillConfig handles PUT /config/machine/:machine_id as a partial upsert.
func (h *Handler) PutBillConfig(c *gin.Context) {
	machine, ok := h.machineParam(c, "machine_id")
	if !ok {
		return
	}
	var req billConfigRequest
	if !h.bindJSON(c, &req) {
		return
	}

	var saved *model.BillConfig
	err := h.store.WithTx(c.Request.Context(), func(tx store.Store) error {
		var err error
		if saved, err = tx.UpsertBillConfig(c.Request.Context(), machine.ID, req.patch()); err != nil {
			return err
		}
		details := "Bill configuration updated by " + currentUser(c).Username
		return tx.CreateLog(c.Request.Context(), &model.Log{
			MachineID: machine.ID,
			Action:    "Bill config updated",
			Details:   &details,
			Type:      model.LogConfig,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.recorder.RecordEvent(observe.EventConfigUpdated, map[string]any{
		"machine_id": machine.ID.String(),
		"user_id":    currentUser(c).ID.String(),
	})
	respond(c, http.StatusOK, billConfigDTO(saved))
}
