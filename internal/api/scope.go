package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"billing-admin-backend/internal/apperr"
	"billing-admin-backend/internal/auth"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/mw"
)

func (h *Handler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.fail(c, invalidParam("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// machineInScope loads a machine the caller may act on. Machines reach only
// themselves; users reach the machines they own. Anything else is not found.
func (h *Handler) machineInScope(c *gin.Context, id uuid.UUID) (*model.Machine, bool) {
	switch p := mw.PrincipalFrom(c).(type) {
	case *auth.MachinePrincipal:
		if p.Machine.ID != id {
			h.fail(c, apperr.NotFound("Machine"))
			return nil, false
		}
		return p.Machine, true
	case *auth.UserPrincipal:
		return h.ownedMachine(c, p.User.ID, id)
	}
	h.fail(c, apperr.ErrInvalidToken)
	return nil, false
}

func (h *Handler) ownedMachine(c *gin.Context, ownerID, id uuid.UUID) (*model.Machine, bool) {
	m, err := h.store.OwnedMachine(c.Request.Context(), ownerID, id)
	if err != nil {
		h.failStorage(c, err, "Machine")
		return nil, false
	}
	return m, true
}

// machineParam resolves the :name path parameter through machineInScope.
func (h *Handler) machineParam(c *gin.Context, name string) (*model.Machine, bool) {
	id, ok := h.uuidParam(c, name)
	if !ok {
		return nil, false
	}
	return h.machineInScope(c, id)
}

// machineFilter reads an optional machine_id query filter. The machine must
// belong to the calling user.
func (h *Handler) machineFilter(c *gin.Context, ownerID uuid.UUID) (*uuid.UUID, bool) {
	raw := c.Query("machine_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.fail(c, invalidParam("Invalid machine_id"))
		return nil, false
	}
	if _, ok := h.ownedMachine(c, ownerID, id); !ok {
		return nil, false
	}
	return &id, true
}

// currentUser is only called behind mw.RequireUser.
func currentUser(c *gin.Context) *model.User {
	return mw.UserFrom(c).User
}
