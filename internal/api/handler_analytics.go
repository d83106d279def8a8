package api

import (
	"encoding/csv"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"billing-admin-backend/internal/aggregate"
	"billing-admin-backend/internal/apperr"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
	"billing-admin-backend/internal/store"
)

type bucketResponse struct {
	Period           string  `json:"period"`
	Revenue          float64 `json:"revenue"`
	TransactionCount int64   `json:"transaction_count"`
}

type topMachineResponse struct {
	MachineID        uuid.UUID `json:"machine_id"`
	MachineName      string    `json:"machine_name"`
	Revenue          float64   `json:"revenue"`
	TransactionCount int64     `json:"transaction_count"`
}

type revenueResponse struct {
	TotalRevenue       float64              `json:"total_revenue"`
	TotalTransactions  int64                `json:"total_transactions"`
	AverageTransaction float64              `json:"average_transaction"`
	RevenueByPeriod    []bucketResponse     `json:"revenue_by_period"`
	RevenueByMethod    map[string]float64   `json:"revenue_by_method"`
	TopMachines        []topMachineResponse `json:"top_machines"`
}

type performanceResponse struct {
	MachineID          uuid.UUID           `json:"machine_id"`
	MachineName        string              `json:"machine_name"`
	Status             model.MachineStatus `json:"status"`
	Revenue            float64             `json:"revenue"`
	TransactionCount   int64               `json:"transaction_count"`
	UptimePercentage   float64             `json:"uptime_percentage"`
	LastSync           *time.Time          `json:"last_sync"`
	AverageTransaction float64             `json:"average_transaction"`
}

// RevenueAnalytics handles GET /analytics/revenue.
func (h *Handler) RevenueAnalytics(c *gin.Context) {
	owner := currentUser(c).ID
	q := aggregate.RevenueQuery{OwnerID: owner, Period: parse.PeriodMonth, GroupBy: aggregate.GroupDay}

	if raw := c.Query("period"); raw != "" {
		p, err := parse.ParsePeriod(raw)
		if err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
		q.Period = p
	}
	switch g := aggregate.Grouping(strings.ToLower(c.DefaultQuery("group_by", "day"))); g {
	case aggregate.GroupDay, aggregate.GroupWeek, aggregate.GroupMonth:
		q.GroupBy = g
	default:
		h.fail(c, invalidParam("group_by must be day, week, or month"))
		return
	}
	if rawStart, rawEnd := c.Query("start_date"), c.Query("end_date"); rawStart != "" && rawEnd != "" {
		since, _, err := parse.Date(rawStart, h.location())
		if err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
		until, err := parse.RangeEnd(rawEnd, h.location())
		if err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
		q.Since, q.Until = &since, &until
	}
	machineID, ok := h.machineFilter(c, owner)
	if !ok {
		return
	}
	q.MachineID = machineID

	report, err := h.aggregate.Revenue(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := revenueResponse{
		TotalRevenue:       money(report.TotalRevenue),
		TotalTransactions:  report.TotalTransactions,
		AverageTransaction: money(report.AverageTransaction),
		RevenueByPeriod:    make([]bucketResponse, len(report.ByPeriod)),
		RevenueByMethod:    make(map[string]float64, len(report.ByMethod)),
		TopMachines:        make([]topMachineResponse, len(report.TopMachines)),
	}
	for i, b := range report.ByPeriod {
		resp.RevenueByPeriod[i] = bucketResponse{Period: b.Period, Revenue: money(b.Revenue), TransactionCount: b.TransactionCount}
	}
	for method, amount := range report.ByMethod {
		resp.RevenueByMethod[string(method)] = money(amount)
	}
	for i, m := range report.TopMachines {
		resp.TopMachines[i] = topMachineResponse{
			MachineID:        m.MachineID,
			MachineName:      m.MachineName,
			Revenue:          money(m.Revenue),
			TransactionCount: m.TransactionCount,
		}
	}
	respond(c, http.StatusOK, resp)
}

// MachinePerformance handles GET /analytics/machines/performance.
func (h *Handler) MachinePerformance(c *gin.Context) {
	period, err := parse.ParsePeriod(c.DefaultQuery("period", "month"), parse.PeriodDay, parse.PeriodWeek, parse.PeriodMonth)
	if err != nil {
		h.fail(c, invalidParam(err.Error()))
		return
	}
	sortBy := aggregate.PerformanceSort(c.DefaultQuery("sort_by", "revenue"))
	switch sortBy {
	case aggregate.SortRevenue, aggregate.SortTransactions, aggregate.SortUptime:
	default:
		h.fail(c, invalidParam("sort_by must be revenue, transactions, or uptime"))
		return
	}

	rows, err := h.aggregate.MachinePerformance(c.Request.Context(), currentUser(c).ID, period, sortBy)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]performanceResponse, len(rows))
	for i, r := range rows {
		out[i] = performanceResponse{
			MachineID:          r.MachineID,
			MachineName:        r.MachineName,
			Status:             r.Status,
			Revenue:            money(r.Revenue),
			TransactionCount:   r.TransactionCount,
			UptimePercentage:   r.UptimePercentage,
			LastSync:           r.LastSync,
			AverageTransaction: money(r.AverageTransaction),
		}
	}
	respond(c, http.StatusOK, out)
}

// Export handles GET /analytics/export/:type. Only csv exports of payments
// and machines are supported.
func (h *Handler) Export(c *gin.Context) {
	exportType := c.Param("type")
	format := strings.ToLower(c.DefaultQuery("format", "csv"))

	switch exportType {
	case "payments", "machines", "services", "logs":
	default:
		h.fail(c, invalidParam("export type must be payments, machines, services, or logs"))
		return
	}
	if format != "csv" {
		h.fail(c, apperr.Unimplemented(format+" export is not implemented"))
		return
	}

	owner := currentUser(c).ID
	var header []string
	var records [][]string
	switch exportType {
	case "payments":
		since, until, err := h.timeWindow(c)
		if err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
		machineID, ok := h.machineFilter(c, owner)
		if !ok {
			return
		}
		payments, err := h.store.ExportPayments(c.Request.Context(), store.PaymentWindow{
			OwnerID: owner, MachineID: machineID, Since: since, Until: until,
		})
		if err != nil {
			h.fail(c, err)
			return
		}
		header = []string{"ID", "Machine ID", "Amount", "Method", "Status", "Created At"}
		for _, p := range payments {
			records = append(records, []string{
				p.ID.String(), p.MachineID.String(), p.Amount.StringFixed(2),
				string(p.Method), string(p.Status), p.CreatedAt.Format(time.RFC3339),
			})
		}
	case "machines":
		machines, err := h.store.OwnedMachines(c.Request.Context(), owner)
		if err != nil {
			h.fail(c, err)
			return
		}
		header = []string{"ID", "Name", "Location", "Status", "Online Collection", "Offline Collection", "Last Sync"}
		for _, m := range machines {
			lastSync := ""
			if m.LastSync != nil {
				lastSync = m.LastSync.Format(time.RFC3339)
			}
			records = append(records, []string{
				m.ID.String(), m.Name, m.Location, string(m.Status),
				m.OnlineCollection.StringFixed(2), m.OfflineCollection.StringFixed(2), lastSync,
			})
		}
	default:
		h.fail(c, apperr.Unimplemented(exportType+" export is not implemented"))
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+exportType+"_export.csv")
	c.Status(http.StatusOK)
	w := csv.NewWriter(c.Writer)
	err := w.Write(header)
	if err == nil {
		err = w.WriteAll(records)
	}
	if err != nil {
		h.logger.Warn("failed to stream export", zap.String("type", exportType), zap.Error(err))
	}
}
