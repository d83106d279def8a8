package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"billing-admin-backend/internal/model"
)

type statsResponse struct {
	TotalMachines          int64   `json:"total_machines"`
	OnlineMachines         int64   `json:"online_machines"`
	OfflineMachines        int64   `json:"offline_machines"`
	MaintenanceMachines    int64   `json:"maintenance_machines"`
	TodayCollection        float64 `json:"today_collection"`
	MonthlyCollection      float64 `json:"monthly_collection"`
	TotalTransactionsToday int64   `json:"total_transactions_today"`
	TotalTransactionsMonth int64   `json:"total_transactions_month"`
	AverageTransaction     float64 `json:"average_transaction_value"`
}

type weeklyRevenueResponse struct {
	Date             string  `json:"date"`
	DayName          string  `json:"day_name"`
	Revenue          float64 `json:"revenue"`
	TransactionCount int64   `json:"transaction_count"`
}

type dashboardMachineResponse struct {
	ID                uuid.UUID           `json:"id"`
	Name              string              `json:"name"`
	Location          string              `json:"location"`
	Status            model.MachineStatus `json:"status"`
	LastSync          *time.Time          `json:"last_sync"`
	OnlineCollection  float64             `json:"online_collection"`
	OfflineCollection float64             `json:"offline_collection"`
}

type chartPointResponse struct {
	CreatedAt string  `json:"created_at"`
	Amount    float64 `json:"amount"`
}

// DashboardStats handles GET /dashboard/stats. The period query parameter
// is accepted for compatibility and has no effect.
func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.aggregate.DashboardStats(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, statsResponse{
		TotalMachines:          stats.TotalMachines,
		OnlineMachines:         stats.OnlineMachines,
		OfflineMachines:        stats.OfflineMachines,
		MaintenanceMachines:    stats.MaintenanceMachines,
		TodayCollection:        money(stats.TodayCollection),
		MonthlyCollection:      money(stats.MonthlyCollection),
		TotalTransactionsToday: stats.TransactionsToday,
		TotalTransactionsMonth: stats.TransactionsMonth,
		AverageTransaction:     money(stats.AverageTransaction),
	})
}

// WeeklyRevenue handles GET /dashboard/revenue/weekly.
func (h *Handler) WeeklyRevenue(c *gin.Context) {
	days, err := h.aggregate.WeeklyRevenue(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]weeklyRevenueResponse, len(days))
	for i, d := range days {
		out[i] = weeklyRevenueResponse{
			Date:             d.Date.Format("2006-01-02"),
			DayName:          d.Date.Format("Mon"),
			Revenue:          money(d.Revenue),
			TransactionCount: d.TransactionCount,
		}
	}
	respond(c, http.StatusOK, out)
}

// PaymentsChart handles GET /dashboard/payments/chart, the older shape of
// the weekly revenue series.
func (h *Handler) PaymentsChart(c *gin.Context) {
	days, err := h.aggregate.WeeklyRevenue(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]chartPointResponse, len(days))
	for i, d := range days {
		out[i] = chartPointResponse{
			CreatedAt: d.Date.Format("2006-01-02") + "T00:00:00",
			Amount:    money(d.Revenue),
		}
	}
	respond(c, http.StatusOK, out)
}

// DashboardMachines handles GET /dashboard/machines.
func (h *Handler) DashboardMachines(c *gin.Context) {
	machines, err := h.store.OwnedMachines(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]dashboardMachineResponse, len(machines))
	for i, m := range machines {
		out[i] = dashboardMachineResponse{
			ID:                m.ID,
			Name:              m.Name,
			Location:          m.Location,
			Status:            m.Status,
			LastSync:          m.LastSync,
			OnlineCollection:  money(m.OnlineCollection),
			OfflineCollection: money(m.OfflineCollection),
		}
	}
	respond(c, http.StatusOK, out)
}

// DashboardAlerts handles GET /dashboard/alerts. Reading derives any new
// alerts first.
func (h *Handler) DashboardAlerts(c *gin.Context) {
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			h.fail(c, invalidParam("limit must be an integer between 1 and 50"))
			return
		}
		limit = n
	}
	severity := model.Severity(c.Query("severity"))
	if severity != "" && !severity.Valid() {
		h.fail(c, invalidParam("severity must be critical, warning, or info"))
		return
	}

	entries, err := h.alerts.Dashboard(c.Request.Context(), currentUser(c).ID, severity, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]alertResponse, len(entries))
	for i, e := range entries {
		out[i] = alertDTO(e)
	}
	respond(c, http.StatusOK, out)
}
