package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"billing-admin-backend/internal/model"
)

// ownedPayments scopes the payments table to machines owned by ownerID.
func (s *gormStore) ownedPayments(ctx context.Context, ownerID uuid.UUID) *gorm.DB {
	return s.conn(ctx).
		Model(&model.Payment{}).
		Joins("JOIN machines ON machines.id = payments.machine_id").
		Where("machines.user_id = ?", ownerID)
}

func (s *gormStore) filteredPayments(ctx context.Context, f PaymentFilter) *gorm.DB {
	q := s.ownedPayments(ctx, f.OwnerID)
	q = applyWindow(q, f.MachineID, f.Since, f.Until)
	if f.Method != "" {
		q = q.Where("payments.method = ?", f.Method)
	}
	if f.Status != "" {
		q = q.Where("payments.status = ?", f.Status)
	}
	return q
}

func applyWindow(q *gorm.DB, machineID *uuid.UUID, since, until *time.Time) *gorm.DB {
	if machineID != nil {
		q = q.Where("payments.machine_id = ?", *machineID)
	}
	if since != nil {
		q = q.Where("payments.created_at >= ?", since.UTC())
	}
	if until != nil {
		q = q.Where("payments.created_at <= ?", until.UTC())
	}
	return q
}

// ListPayments returns one page of the filtered payments plus a summary of
// the whole filtered set.
func (s *gormStore) ListPayments(ctx context.Context, f PaymentFilter) (Page[PaymentRow], PaymentSummary, error) {
	page := Page[PaymentRow]{Page: f.Page}

	summary, err := s.summarise(ctx, f)
	if err != nil {
		return page, summary, err
	}
	page.Total = summary.TotalCount

	if err := s.filteredPayments(ctx, f).
		Select("payments.*, machines.name AS machine_name").
		Order("payments.created_at DESC, payments.id").
		Offset(f.Page.Offset()).
		Limit(f.Page.Limit).
		Scan(&page.Items).Error; err != nil {
		return page, summary, errors.Wrap(err, "list payments")
	}
	return page, summary, nil
}

func (s *gormStore) summarise(ctx context.Context, f PaymentFilter) (PaymentSummary, error) {
	type aggRow struct {
		Method model.PaymentMethod
		Status model.PaymentStatus
		Count  int64
		Total  decimal.Decimal
	}
	var rows []aggRow
	if err := s.filteredPayments(ctx, f).
		Select("payments.method AS method, payments.status AS status, COUNT(*) AS count, COALESCE(SUM(payments.amount), 0) AS total").
		Group("payments.method, payments.status").
		Scan(&rows).Error; err != nil {
		return PaymentSummary{}, errors.Wrap(err, "summarise payments")
	}

	summary := PaymentSummary{
		TotalAmount: decimal.Zero,
		ByMethod:    make(map[model.PaymentMethod]decimal.Decimal, len(model.PaymentMethods)),
		ByStatus:    make(map[model.PaymentStatus]int64, 3),
	}
	for _, m := range model.PaymentMethods {
		summary.ByMethod[m] = decimal.Zero
	}
	for _, r := range rows {
		r.Total = cents(r.Total)
		summary.TotalAmount = summary.TotalAmount.Add(r.Total)
		summary.TotalCount += r.Count
		summary.ByMethod[r.Method] = summary.ByMethod[r.Method].Add(r.Total)
		summary.ByStatus[r.Status] += r.Count
	}
	return summary, nil
}

func (s *gormStore) PaymentByID(ctx context.Context, ownerID, id uuid.UUID) (*PaymentRow, error) {
	var rows []PaymentRow
	if err := s.ownedPayments(ctx, ownerID).
		Select("payments.*, machines.name AS machine_name").
		Where("payments.id = ?", id).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "find payment %s", id)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(gorm.ErrRecordNotFound, "find payment %s", id)
	}
	return &rows[0], nil
}

// CreatePayment inserts p, reporting gorm.ErrDuplicatedKey when the bill
// number is already taken.
func (s *gormStore) CreatePayment(ctx context.Context, p *model.Payment) error {
	exists, err := s.BillNumberExists(ctx, p.BillNumber)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrapf(gorm.ErrDuplicatedKey, "bill number %q", p.BillNumber)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := s.conn(ctx).Create(p).Error; err != nil {
		// Lost a race against a concurrent insert of the same bill number.
		if again, checkErr := s.BillNumberExists(ctx, p.BillNumber); checkErr == nil && again {
			return errors.Wrapf(gorm.ErrDuplicatedKey, "bill number %q", p.BillNumber)
		}
		return errors.Wrap(err, "create payment")
	}
	return nil
}

func (s *gormStore) BillNumberExists(ctx context.Context, billNumber string) (bool, error) {
	var n int64
	if err := s.conn(ctx).Model(&model.Payment{}).Where("bill_number = ?", billNumber).Count(&n).Error; err != nil {
		return false, errors.Wrapf(err, "check bill number %q", billNumber)
	}
	return n > 0, nil
}

func (s *gormStore) PaymentTotals(ctx context.Context, ownerID uuid.UUID, since time.Time) (PaymentTotal, error) {
	var total PaymentTotal
	if err := s.ownedPayments(ctx, ownerID).
		Select("COUNT(payments.id) AS count, COALESCE(SUM(payments.amount), 0) AS sum").
		Where("payments.status = ? AND payments.created_at >= ?", model.PaymentSuccess, since.UTC()).
		Scan(&total).Error; err != nil {
		return PaymentTotal{}, errors.Wrap(err, "total payments")
	}
	total.Sum = cents(total.Sum)
	return total, nil
}

// cents rounds a SUM over amount columns back to their two decimal places.
// sqlite sums numeric columns as REAL and returns float noise.
func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func (s *gormStore) SuccessfulPayments(ctx context.Context, w PaymentWindow) ([]model.Payment, error) {
	var payments []model.Payment
	q := applyWindow(s.ownedPayments(ctx, w.OwnerID), w.MachineID, w.Since, w.Until).
		Where("payments.status = ?", model.PaymentSuccess)
	if err := q.Select("payments.*").Order("payments.created_at, payments.id").Find(&payments).Error; err != nil {
		return nil, errors.Wrap(err, "load successful payments")
	}
	return payments, nil
}

func (s *gormStore) ExportPayments(ctx context.Context, w PaymentWindow) ([]model.Payment, error) {
	var payments []model.Payment
	q := applyWindow(s.ownedPayments(ctx, w.OwnerID), w.MachineID, w.Since, w.Until)
	if err := q.Select("payments.*").Order("payments.created_at DESC, payments.id").Find(&payments).Error; err != nil {
		return nil, errors.Wrap(err, "export payments")
	}
	return payments, nil
}
