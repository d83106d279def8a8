package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
)

type createLogRequest struct {
	Action  string        `json:"action" binding:"required,min=1,max=255"`
	Details *string       `json:"details"`
	Type    model.LogType `json:"type" binding:"required,oneof=login client config manager system"`
}

type logListResponse struct {
	Logs       []logResponse `json:"logs"`
	Pagination pagination    `json:"pagination"`
}

func logTypeParam(c *gin.Context) (model.LogType, bool) {
	t := model.LogType(strings.ToLower(c.Query("type")))
	return t, t == "" || t.Valid()
}

// ListLogs handles GET /machines/:id/logs.
func (h *Handler) ListLogs(c *gin.Context) {
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	logType, ok := logTypeParam(c)
	if !ok {
		h.fail(c, invalidParam("invalid log type"))
		return
	}
	page, err := parse.ParsePage(c.Query("page"), c.Query("limit"), 50, 100)
	if err != nil {
		h.fail(c, invalidParam(err.Error()))
		return
	}

	result, err := h.store.ListLogs(c.Request.Context(), m.ID, logType, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	logs := make([]logResponse, len(result.Items))
	for i := range result.Items {
		logs[i] = logDTO(&result.Items[i], m.Name)
	}
	respond(c, http.StatusOK, logListResponse{Logs: logs, Pagination: paginationOf(result)})
}

// CreateLog handles POST /machines/:id/logs.
func (h *Handler) CreateLog(c *gin.Context) {
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	var req createLogRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry := &model.Log{
		MachineID: m.ID,
		Action:    strings.TrimSpace(req.Action),
		Details:   req.Details,
		Type:      req.Type,
	}
	if err := h.store.CreateLog(c.Request.Context(), entry); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, logDTO(entry, m.Name))
}

// RecentLogs handles GET /logs/recent.
func (h *Handler) RecentLogs(c *gin.Context) {
	logType, ok := logTypeParam(c)
	if !ok {
		h.fail(c, invalidParam("invalid log type"))
		return
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			h.fail(c, invalidParam("limit must be an integer between 1 and 100"))
			return
		}
		limit = n
	}

	rows, err := h.store.RecentLogs(c.Request.Context(), currentUser(c).ID, logType, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	logs := make([]logResponse, len(rows))
	for i := range rows {
		logs[i] = logDTO(&rows[i].Log, rows[i].MachineName)
	}
	respond(c, http.StatusOK, logs)
}
