package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
)

// Page is one page of a filtered listing. Total counts the whole filtered
// set, not just Items.
type Page[T any] struct {
	Items []T
	Total int64
	Page  parse.Page
}

// TotalPages returns ceil(Total / Limit).
func (p Page[T]) TotalPages() int {
	if p.Page.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Page.Limit) - 1) / int64(p.Page.Limit))
}

// MachineFilter narrows a machine listing. OwnerID is always applied.
type MachineFilter struct {
	OwnerID uuid.UUID
	Status  model.MachineStatus
	Search  string
	Page    parse.Page
}

// PaymentFilter narrows a payment listing. OwnerID is always applied; the
// remaining fields are optional.
type PaymentFilter struct {
	OwnerID   uuid.UUID
	MachineID *uuid.UUID
	Since     *time.Time
	Until     *time.Time
	Method    model.PaymentMethod
	Status    model.PaymentStatus
	Page      parse.Page
}

// PaymentWindow selects payments for aggregation and export.
type PaymentWindow struct {
	OwnerID   uuid.UUID
	MachineID *uuid.UUID
	Since     *time.Time
	Until     *time.Time
}

// PaymentRow is a payment joined with its machine's name.
type PaymentRow struct {
	model.Payment
	MachineName string
}

// PaymentSummary aggregates a filtered payment set before pagination.
type PaymentSummary struct {
	TotalAmount decimal.Decimal
	TotalCount  int64
	ByMethod    map[model.PaymentMethod]decimal.Decimal
	ByStatus    map[model.PaymentStatus]int64
}

// PaymentTotal is a count and sum of successful payments.
type PaymentTotal struct {
	Count int64
	Sum   decimal.Decimal
}

// LogRow is a log entry joined with its machine's name.
type LogRow struct {
	model.Log
	MachineName string
}

// AlertFilter narrows an alert listing. OwnerID is always applied.
type AlertFilter struct {
	OwnerID   uuid.UUID
	Severity  model.Severity
	Resolved  *bool
	MachineID *uuid.UUID
	Since     *time.Time
	Until     *time.Time
	Page      parse.Page
}

// AlertRow is an alert joined with its machine's name, if any.
type AlertRow struct {
	model.SystemAlert
	MachineName *string
}

// BillConfigPatch carries the fields supplied to a bill config upsert. Nil
// fields are left unchanged.
type BillConfigPatch struct {
	OrgName       *string
	Tagline       *string
	LogoURL       *string
	UnitName      *string
	Territory     *string
	GSTNumber     *string
	POSID         *string
	CGSTPercent   *decimal.Decimal
	SGSTPercent   *decimal.Decimal
	FooterMessage *string
	Website       *string
	TollFree      *string
}

// Apply copies the supplied fields onto cfg.
func (p BillConfigPatch) Apply(cfg *model.BillConfig) {
	if p.OrgName != nil {
		cfg.OrgName = *p.OrgName
	}
	setOpt(&cfg.Tagline, p.Tagline)
	setOpt(&cfg.LogoURL, p.LogoURL)
	setOpt(&cfg.UnitName, p.UnitName)
	setOpt(&cfg.Territory, p.Territory)
	setOpt(&cfg.GSTNumber, p.GSTNumber)
	setOpt(&cfg.POSID, p.POSID)
	if p.CGSTPercent != nil {
		cfg.CGSTPercent = *p.CGSTPercent
	}
	if p.SGSTPercent != nil {
		cfg.SGSTPercent = *p.SGSTPercent
	}
	setOpt(&cfg.FooterMessage, p.FooterMessage)
	setOpt(&cfg.Website, p.Website)
	setOpt(&cfg.TollFree, p.TollFree)
}

func setOpt(dst **string, v *string) {
	if v != nil {
		s := *v
		*dst = &s
	}
}
