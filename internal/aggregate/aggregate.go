// Package aggregate computes dashboard and analytics rollups over payments.
// Money stays in decimal here; rounding happens at the response boundary.
package aggregate

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
	"billing-admin-backend/internal/store"
)

// Placeholder uptime figures. Real history is not tracked.
const (
	UptimeOnline = 99.5
	UptimeOther  = 85.0
)

// TopMachines bounds the top machines list of a revenue report.
const TopMachines = 5

// Engine computes rollups. Calendar days are taken in loc.
type Engine struct {
	store store.Store
	loc   *time.Location
	now   func() time.Time
}

// NewEngine creates an Engine. A nil loc means UTC.
func NewEngine(s store.Store, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: s, loc: loc, now: time.Now}
}

// Stats is the dashboard headline.
type Stats struct {
	TotalMachines       int64
	OnlineMachines      int64
	OfflineMachines     int64
	MaintenanceMachines int64
	TodayCollection     decimal.Decimal
	MonthlyCollection   decimal.Decimal
	TransactionsToday   int64
	TransactionsMonth   int64
	AverageTransaction  decimal.Decimal
}

// DashboardStats counts the owner's machines by status and totals today's
// and this month's successful payments.
func (e *Engine) DashboardStats(ctx context.Context, ownerID uuid.UUID) (Stats, error) {
	var stats Stats

	counts, err := e.store.CountMachinesByStatus(ctx, ownerID)
	if err != nil {
		return stats, err
	}
	stats.OnlineMachines = counts[model.MachineOnline]
	stats.OfflineMachines = counts[model.MachineOffline]
	stats.MaintenanceMachines = counts[model.MachineMaintenance]
	for _, n := range counts {
		stats.TotalMachines += n
	}

	now := e.now().In(e.loc)
	today, err := e.store.PaymentTotals(ctx, ownerID, parse.StartOfDay(now, e.loc))
	if err != nil {
		return stats, err
	}
	month, err := e.store.PaymentTotals(ctx, ownerID, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, e.loc))
	if err != nil {
		return stats, err
	}

	stats.TodayCollection = today.Sum
	stats.TransactionsToday = today.Count
	stats.MonthlyCollection = month.Sum
	stats.TransactionsMonth = month.Count
	stats.AverageTransaction = average(month.Sum, month.Count)
	return stats, nil
}

// DayRevenue is one calendar day of the weekly chart.
type DayRevenue struct {
	Date             time.Time
	Revenue          decimal.Decimal
	TransactionCount int64
}

// WeeklyRevenue returns exactly seven days ending today, oldest first. Days
// without payments are zero.
func (e *Engine) WeeklyRevenue(ctx context.Context, ownerID uuid.UUID) ([]DayRevenue, error) {
	start := parse.StartOfDay(e.now(), e.loc).AddDate(0, 0, -6)
	payments, err := e.store.SuccessfulPayments(ctx, store.PaymentWindow{OwnerID: ownerID, Since: &start})
	if err != nil {
		return nil, err
	}

	days := make([]DayRevenue, 7)
	index := make(map[string]int, 7)
	for i := range days {
		d := start.AddDate(0, 0, i)
		days[i] = DayRevenue{Date: d, Revenue: decimal.Zero}
		index[d.Format(dayKey)] = i
	}
	for _, p := range payments {
		i, ok := index[p.CreatedAt.In(e.loc).Format(dayKey)]
		if !ok {
			continue
		}
		days[i].Revenue = days[i].Revenue.Add(p.Amount)
		days[i].TransactionCount++
	}
	return days, nil
}

const dayKey = "2006-01-02"

// Bucket is revenue over one period key.
type Bucket struct {
	Period           string
	Revenue          decimal.Decimal
	TransactionCount int64
}

// MachineRevenue is one entry of the top machines list.
type MachineRevenue struct {
	MachineID        uuid.UUID
	MachineName      string
	Revenue          decimal.Decimal
	TransactionCount int64
}

// Grouping selects the bucket size of a revenue report.
type Grouping string

const (
	GroupDay   Grouping = "day"
	GroupWeek  Grouping = "week"
	GroupMonth Grouping = "month"
)

// RevenueQuery selects the window of a revenue report. Since and Until
// override Period when both are set.
type RevenueQuery struct {
	OwnerID   uuid.UUID
	Period    parse.Period
	Since     *time.Time
	Until     *time.Time
	MachineID *uuid.UUID
	GroupBy   Grouping
}

// RevenueReport is the analytics revenue rollup.
type RevenueReport struct {
	TotalRevenue       decimal.Decimal
	TotalTransactions  int64
	AverageTransaction decimal.Decimal
	ByPeriod           []Bucket
	ByMethod           map[model.PaymentMethod]decimal.Decimal
	TopMachines        []MachineRevenue
}

// Revenue totals successful payments in the query window, grouped by period,
// by method and by machine. Top machines tie on revenue by machine id.
func (e *Engine) Revenue(ctx context.Context, q RevenueQuery) (RevenueReport, error) {
	w := store.PaymentWindow{OwnerID: q.OwnerID, MachineID: q.MachineID}
	if q.Since != nil && q.Until != nil {
		w.Since, w.Until = q.Since, q.Until
	} else {
		period := q.Period
		if period == "" {
			period = parse.PeriodMonth
		}
		since := period.Start(e.now())
		w.Since = &since
	}

	payments, err := e.store.SuccessfulPayments(ctx, w)
	if err != nil {
		return RevenueReport{}, err
	}

	report := RevenueReport{
		TotalRevenue: decimal.Zero,
		ByMethod:     make(map[model.PaymentMethod]decimal.Decimal, len(model.PaymentMethods)),
	}
	for _, m := range model.PaymentMethods {
		report.ByMethod[m] = decimal.Zero
	}

	buckets := map[string]*Bucket{}
	machines := map[uuid.UUID]*MachineRevenue{}
	for _, p := range payments {
		report.TotalRevenue = report.TotalRevenue.Add(p.Amount)
		report.TotalTransactions++
		report.ByMethod[p.Method] = report.ByMethod[p.Method].Add(p.Amount)

		key := e.bucketKey(p.CreatedAt, q.GroupBy)
		b, ok := buckets[key]
		if !ok {
			b = &Bucket{Period: key, Revenue: decimal.Zero}
			buckets[key] = b
		}
		b.Revenue = b.Revenue.Add(p.Amount)
		b.TransactionCount++

		mr, ok := machines[p.MachineID]
		if !ok {
			mr = &MachineRevenue{MachineID: p.MachineID, Revenue: decimal.Zero}
			machines[p.MachineID] = mr
		}
		mr.Revenue = mr.Revenue.Add(p.Amount)
		mr.TransactionCount++
	}
	report.AverageTransaction = average(report.TotalRevenue, report.TotalTransactions)

	report.ByPeriod = make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		report.ByPeriod = append(report.ByPeriod, *b)
	}
	sort.Slice(report.ByPeriod, func(i, j int) bool {
		return report.ByPeriod[i].Period < report.ByPeriod[j].Period
	})

	top := make([]MachineRevenue, 0, len(machines))
	for _, mr := range machines {
		top = append(top, *mr)
	}
	sort.Slice(top, func(i, j int) bool {
		if c := top[i].Revenue.Cmp(top[j].Revenue); c != 0 {
			return c > 0
		}
		return top[i].MachineID.String() < top[j].MachineID.String()
	})
	if len(top) > TopMachines {
		top = top[:TopMachines]
	}
	if err := e.nameMachines(ctx, top); err != nil {
		return RevenueReport{}, err
	}
	report.TopMachines = top
	return report, nil
}

func (e *Engine) nameMachines(ctx context.Context, rows []MachineRevenue) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].MachineID
	}
	names, err := e.store.MachineNames(ctx, ids)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].MachineName = names[rows[i].MachineID]
	}
	return nil
}

// bucketKey names the group a payment falls in. Weeks are keyed by their
// Monday.
func (e *Engine) bucketKey(at time.Time, g Grouping) string {
	local := at.In(e.loc)
	switch g {
	case GroupMonth:
		return local.Format("2006-01")
	case GroupWeek:
		offset := (int(local.Weekday()) + 6) % 7
		return parse.StartOfDay(local, e.loc).AddDate(0, 0, -offset).Format(dayKey)
	default:
		return local.Format(dayKey)
	}
}

// Performance is one machine's standing over a period.
type Performance struct {
	MachineID          uuid.UUID
	MachineName        string
	Status             model.MachineStatus
	Revenue            decimal.Decimal
	TransactionCount   int64
	UptimePercentage   float64
	LastSync           *time.Time
	AverageTransaction decimal.Decimal
}

// PerformanceSort orders a performance listing, largest first.
type PerformanceSort string

const (
	SortRevenue      PerformanceSort = "revenue"
	SortTransactions PerformanceSort = "transactions"
	SortUptime       PerformanceSort = "uptime"
)

// MachinePerformance lists every owned machine with its successful revenue
// over period.
func (e *Engine) MachinePerformance(ctx context.Context, ownerID uuid.UUID, period parse.Period, sortBy PerformanceSort) ([]Performance, error) {
	machines, err := e.store.OwnedMachines(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = parse.PeriodMonth
	}
	since := period.Start(e.now())
	payments, err := e.store.SuccessfulPayments(ctx, store.PaymentWindow{OwnerID: ownerID, Since: &since})
	if err != nil {
		return nil, err
	}

	type totals struct {
		sum   decimal.Decimal
		count int64
	}
	byMachine := make(map[uuid.UUID]*totals, len(machines))
	for _, p := range payments {
		t, ok := byMachine[p.MachineID]
		if !ok {
			t = &totals{sum: decimal.Zero}
			byMachine[p.MachineID] = t
		}
		t.sum = t.sum.Add(p.Amount)
		t.count++
	}

	out := make([]Performance, 0, len(machines))
	for _, m := range machines {
		perf := Performance{
			MachineID:        m.ID,
			MachineName:      m.Name,
			Status:           m.Status,
			Revenue:          decimal.Zero,
			UptimePercentage: UptimeOther,
			LastSync:         m.LastSync,
		}
		if m.Status == model.MachineOnline {
			perf.UptimePercentage = UptimeOnline
		}
		if t, ok := byMachine[m.ID]; ok {
			perf.Revenue = t.sum
			perf.TransactionCount = t.count
		}
		perf.AverageTransaction = average(perf.Revenue, perf.TransactionCount)
		out = append(out, perf)
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch sortBy {
		case SortTransactions:
			return out[i].TransactionCount > out[j].TransactionCount
		case SortUptime:
			return out[i].UptimePercentage > out[j].UptimePercentage
		default:
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
	})
	return out, nil
}

func average(sum decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(count))
}
