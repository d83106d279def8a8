package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billing-admin-backend/internal/apperr"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
	"billing-admin-backend/internal/store"
)

type createPaymentRequest struct {
	MachineID  uuid.UUID       `json:"machine_id" binding:"required"`
	BillNumber string          `json:"bill_number" binding:"required,min=1,max=100"`
	Amount     decimal.Decimal `json:"amount" binding:"positive_decimal"`
	Method     string          `json:"method" binding:"required"`
	Status     string          `json:"status"`
	CreatedAt  *time.Time      `json:"created_at"`
}

type paymentSummaryResponse struct {
	TotalAmount  float64 `json:"total_amount"`
	TotalCount   int64   `json:"total_count"`
	UPIAmount    float64 `json:"upi_amount"`
	CardAmount   float64 `json:"card_amount"`
	CashAmount   float64 `json:"cash_amount"`
	SuccessCount int64   `json:"success_count"`
	PendingCount int64   `json:"pending_count"`
	FailedCount  int64   `json:"failed_count"`
}

type paymentListResponse struct {
	Payments   []paymentResponse      `json:"payments"`
	Pagination pagination             `json:"pagination"`
	Summary    paymentSummaryResponse `json:"summary"`
}

// timeWindow reads period, start_date and end_date. start_date overrides
// the period; a bare end_date covers the whole day.
func (h *Handler) timeWindow(c *gin.Context, allowed ...parse.Period) (since, until *time.Time, err error) {
	loc := h.location()
	if raw := c.Query("period"); raw != "" {
		p, err := parse.ParsePeriod(raw, allowed...)
		if err != nil {
			return nil, nil, err
		}
		t := p.Start(time.Now())
		since = &t
	}
	if raw := c.Query("start_date"); raw != "" {
		t, _, err := parse.Date(raw, loc)
		if err != nil {
			return nil, nil, err
		}
		since = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parse.RangeEnd(raw, loc)
		if err != nil {
			return nil, nil, err
		}
		until = &t
	}
	return since, until, nil
}

func (h *Handler) location() *time.Location {
	if h.cfg != nil && h.cfg.Server.Location != nil {
		return h.cfg.Server.Location
	}
	return time.UTC
}

// ListPayments handles GET /payments.
func (h *Handler) ListPayments(c *gin.Context) {
	owner := currentUser(c).ID
	machineID, ok := h.machineFilter(c, owner)
	if !ok {
		return
	}
	h.listPayments(c, owner, machineID)
}

// ListMachinePayments handles GET /machines/:id/payments.
func (h *Handler) ListMachinePayments(c *gin.Context) {
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	h.listPayments(c, currentUser(c).ID, &m.ID)
}

func (h *Handler) listPayments(c *gin.Context, owner uuid.UUID, machineID *uuid.UUID) {
	filter := store.PaymentFilter{OwnerID: owner, MachineID: machineID}

	var err error
	if filter.Page, err = parse.ParsePage(c.Query("page"), c.Query("limit"), 50, 100); err != nil {
		h.fail(c, invalidParam(err.Error()))
		return
	}
	if filter.Since, filter.Until, err = h.timeWindow(c); err != nil {
		h.fail(c, invalidParam(err.Error()))
		return
	}
	if raw := c.Query("method"); raw != "" {
		if filter.Method, err = parse.PaymentMethod(raw); err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
	}
	if raw := c.Query("status"); raw != "" {
		if filter.Status, err = parse.PaymentStatus(raw); err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
	}

	result, summary, err := h.store.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}

	payments := make([]paymentResponse, len(result.Items))
	for i := range result.Items {
		payments[i] = paymentDTO(&result.Items[i].Payment, result.Items[i].MachineName)
	}
	respond(c, http.StatusOK, paymentListResponse{
		Payments:   payments,
		Pagination: paginationOf(result),
		Summary: paymentSummaryResponse{
			TotalAmount:  money(summary.TotalAmount),
			TotalCount:   summary.TotalCount,
			UPIAmount:    money(summary.ByMethod[model.MethodUPI]),
			CardAmount:   money(summary.ByMethod[model.MethodCard]),
			CashAmount:   money(summary.ByMethod[model.MethodCash]),
			SuccessCount: summary.ByStatus[model.PaymentSuccess],
			PendingCount: summary.ByStatus[model.PaymentPending],
			FailedCount:  summary.ByStatus[model.PaymentFailed],
		},
	})
}

// GetPayment handles GET /payments/:id.
func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	row, err := h.store.PaymentByID(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		h.failStorage(c, err, "Payment")
		return
	}
	respond(c, http.StatusOK, paymentDTO(&row.Payment, row.MachineName))
}

// CreatePayment handles POST /payments. A bill number already on record is
// a conflict.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	method, err := parse.PaymentMethod(req.Method)
	if err != nil {
		h.fail(c, apperr.Validation("Validation error", []FieldError{{Field: "method", Rule: "oneof", Param: "UPI Card Cash"}}))
		return
	}
	status, err := parse.PaymentStatus(req.Status)
	if err != nil {
		h.fail(c, apperr.Validation("Validation error", []FieldError{{Field: "status", Rule: "oneof", Param: "success pending failed"}}))
		return
	}
	m, ok := h.ownedMachine(c, currentUser(c).ID, req.MachineID)
	if !ok {
		return
	}

	p := &model.Payment{
		MachineID:  m.ID,
		BillNumber: strings.TrimSpace(req.BillNumber),
		Amount:     req.Amount,
		Method:     method,
		Status:     status,
	}
	if req.CreatedAt != nil {
		p.CreatedAt = req.CreatedAt.UTC()
	}
	if err := h.store.CreatePayment(c.Request.Context(), p); err != nil {
		h.failStorage(c, err, "Payment with this bill number")
		return
	}
	respond(c, http.StatusCreated, paymentDTO(p, m.Name))
}
