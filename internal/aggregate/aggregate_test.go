package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
	"billing-admin-backend/internal/store"
	"billing-admin-backend/internal/storetest"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	engine *Engine
	owner  *model.User
	a, b   *model.Machine
}

func newFixture(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	gormDB := storetest.DB(t)
	f := &fixture{db: gormDB, engine: NewEngine(store.NewGormStore(gormDB), loc)}
	f.engine.now = func() time.Time { return now }
	f.owner = storetest.User(t, gormDB, "alice", model.RoleOperator)
	f.a = storetest.Machine(t, gormDB, f.owner, "a001", model.MachineOnline, &now)
	f.b = storetest.Machine(t, gormDB, f.owner, "a002", model.MachineOffline, nil)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDashboardStats(t *testing.T) {
	f := newFixture(t, time.UTC)
	storetest.Payment(t, f.db, f.a, "B1", "100.00", model.MethodUPI, model.PaymentSuccess, now.Add(-time.Hour))
	storetest.Payment(t, f.db, f.a, "B2", "50.00", model.MethodCash, model.PaymentSuccess, now.AddDate(0, 0, -5))
	storetest.Payment(t, f.db, f.b, "B3", "25.50", model.MethodCard, model.PaymentFailed, now.Add(-time.Hour))
	storetest.Payment(t, f.db, f.b, "B4", "10.00", model.MethodCard, model.PaymentSuccess, now.AddDate(0, -1, 0))

	other := storetest.User(t, f.db, "bob", model.RoleOperator)
	om := storetest.Machine(t, f.db, other, "b001", model.MachineMaintenance, nil)
	storetest.Payment(t, f.db, om, "B5", "999.00", model.MethodUPI, model.PaymentSuccess, now.Add(-time.Hour))

	stats, err := f.engine.DashboardStats(context.Background(), f.owner.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.TotalMachines)
	assert.EqualValues(t, 1, stats.OnlineMachines)
	assert.EqualValues(t, 1, stats.OfflineMachines)
	assert.EqualValues(t, 0, stats.MaintenanceMachines)
	assert.Equal(t, "100.00", stats.TodayCollection.StringFixed(2))
	assert.EqualValues(t, 1, stats.TransactionsToday)
	assert.Equal(t, "150.00", stats.MonthlyCollection.StringFixed(2))
	assert.EqualValues(t, 2, stats.TransactionsMonth)
	assert.Equal(t, "75.00", stats.AverageTransaction.StringFixed(2))
}

func TestDashboardStats_Empty(t *testing.T) {
	f := newFixture(t, time.UTC)
	stats, err := f.engine.DashboardStats(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.True(t, stats.AverageTransaction.IsZero())
	assert.True(t, stats.MonthlyCollection.IsZero())
}

func TestWeeklyRevenue_ZeroFilled(t *testing.T) {
	f := newFixture(t, time.UTC)
	days := []int{0, 0, 0, 2, 2, 5, 5}
	for i, d := range days {
		storetest.Payment(t, f.db, f.a, "W"+string(rune('A'+i)), "10.00", model.MethodUPI, model.PaymentSuccess, now.AddDate(0, 0, -d))
	}
	storetest.Payment(t, f.db, f.a, "OLD", "10.00", model.MethodUPI, model.PaymentSuccess, now.AddDate(0, 0, -7))
	storetest.Payment(t, f.db, f.a, "FAIL", "10.00", model.MethodUPI, model.PaymentFailed, now)

	week, err := f.engine.WeeklyRevenue(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, week, 7)

	assert.Equal(t, "2026-03-04", week[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2026-03-10", week[6].Date.Format("2006-01-02"))

	zeros := 0
	for _, d := range week {
		if d.TransactionCount == 0 {
			zeros++
			assert.True(t, d.Revenue.IsZero())
		}
	}
	assert.Equal(t, 4, zeros)
	assert.EqualValues(t, 3, week[6].TransactionCount)
	assert.Equal(t, "30.00", week[6].Revenue.StringFixed(2))
	assert.EqualValues(t, 2, week[4].TransactionCount)
	assert.EqualValues(t, 2, week[1].TransactionCount)
}

func TestWeeklyRevenue_LocalCalendarDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	f := newFixture(t, ist)
	// 20:00 UTC on the 9th is already the 10th in IST.
	storetest.Payment(t, f.db, f.a, "LATE", "5.00", model.MethodCash, model.PaymentSuccess,
		time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC))

	week, err := f.engine.WeeklyRevenue(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, week, 7)
	assert.EqualValues(t, 1, week[6].TransactionCount)
	assert.EqualValues(t, 0, week[5].TransactionCount)
}

func TestRevenue(t *testing.T) {
	f := newFixture(t, time.UTC)
	storetest.Payment(t, f.db, f.a, "R1", "100.00", model.MethodUPI, model.PaymentSuccess, now.Add(-time.Hour))
	storetest.Payment(t, f.db, f.a, "R2", "20.00", model.MethodCash, model.PaymentSuccess, now.AddDate(0, 0, -1))
	storetest.Payment(t, f.db, f.b, "R3", "30.00", model.MethodUPI, model.PaymentSuccess, now.AddDate(0, 0, -1))
	storetest.Payment(t, f.db, f.b, "R4", "70.00", model.MethodUPI, model.PaymentPending, now)
	storetest.Payment(t, f.db, f.b, "R5", "40.00", model.MethodUPI, model.PaymentSuccess, now.AddDate(0, 0, -40))

	report, err := f.engine.Revenue(context.Background(), RevenueQuery{OwnerID: f.owner.ID})
	require.NoError(t, err)

	assert.Equal(t, "150.00", report.TotalRevenue.StringFixed(2))
	assert.EqualValues(t, 3, report.TotalTransactions)
	assert.Equal(t, "50.00", report.AverageTransaction.StringFixed(2))
	assert.Equal(t, "130.00", report.ByMethod[model.MethodUPI].StringFixed(2))
	assert.Equal(t, "20.00", report.ByMethod[model.MethodCash].StringFixed(2))
	assert.True(t, report.ByMethod[model.MethodCard].IsZero())

	require.Len(t, report.ByPeriod, 2)
	assert.Equal(t, "2026-03-09", report.ByPeriod[0].Period)
	assert.EqualValues(t, 2, report.ByPeriod[0].TransactionCount)
	assert.Equal(t, "2026-03-10", report.ByPeriod[1].Period)

	require.Len(t, report.TopMachines, 2)
	assert.Equal(t, f.a.ID, report.TopMachines[0].MachineID)
	assert.Equal(t, f.a.Name, report.TopMachines[0].MachineName)
	assert.Equal(t, "120.00", report.TopMachines[0].Revenue.StringFixed(2))
}

func TestRevenue_ExplicitRangeAndMachine(t *testing.T) {
	f := newFixture(t, time.UTC)
	storetest.Payment(t, f.db, f.a, "X1", "10.00", model.MethodUPI, model.PaymentSuccess, now.AddDate(0, 0, -40))
	storetest.Payment(t, f.db, f.b, "X2", "15.00", model.MethodUPI, model.PaymentSuccess, now.AddDate(0, 0, -40))
	storetest.Payment(t, f.db, f.a, "X3", "99.00", model.MethodUPI, model.PaymentSuccess, now)

	since := now.AddDate(0, 0, -45)
	until := now.AddDate(0, 0, -35)
	report, err := f.engine.Revenue(context.Background(), RevenueQuery{
		OwnerID:   f.owner.ID,
		Since:     &since,
		Until:     &until,
		MachineID: &f.a.ID,
		GroupBy:   GroupMonth,
	})
	require.NoError(t, err)
	assert.Equal(t, "10.00", report.TotalRevenue.StringFixed(2))
	require.Len(t, report.ByPeriod, 1)
	assert.Equal(t, "2026-01", report.ByPeriod[0].Period)
}

func TestRevenue_TopMachinesTieBreak(t *testing.T) {
	f := newFixture(t, time.UTC)
	storetest.Payment(t, f.db, f.a, "T1", "10.00", model.MethodCash, model.PaymentSuccess, now)
	storetest.Payment(t, f.db, f.b, "T2", "10.00", model.MethodCash, model.PaymentSuccess, now)

	report, err := f.engine.Revenue(context.Background(), RevenueQuery{OwnerID: f.owner.ID, Period: parse.PeriodDay})
	require.NoError(t, err)
	require.Len(t, report.TopMachines, 2)
	assert.Less(t, report.TopMachines[0].MachineID.String(), report.TopMachines[1].MachineID.String())
}

func TestBucketKey_Week(t *testing.T) {
	e := NewEngine(nil, time.UTC)
	// 2026-03-10 is a Tuesday.
	assert.Equal(t, "2026-03-09", e.bucketKey(now, GroupWeek))
	assert.Equal(t, "2026-03-09", e.bucketKey(time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC), GroupWeek))
	assert.Equal(t, "2026-03-16", e.bucketKey(time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), GroupWeek))
}

func TestMachinePerformance(t *testing.T) {
	f := newFixture(t, time.UTC)
	storetest.Payment(t, f.db, f.b, "P1", "80.00", model.MethodUPI, model.PaymentSuccess, now)
	storetest.Payment(t, f.db, f.a, "P2", "10.00", model.MethodUPI, model.PaymentSuccess, now)
	storetest.Payment(t, f.db, f.a, "P3", "20.00", model.MethodUPI, model.PaymentSuccess, now)

	perf, err := f.engine.MachinePerformance(context.Background(), f.owner.ID, parse.PeriodMonth, SortRevenue)
	require.NoError(t, err)
	require.Len(t, perf, 2)
	assert.Equal(t, f.b.ID, perf[0].MachineID)
	assert.Equal(t, UptimeOther, perf[0].UptimePercentage)
	assert.Equal(t, "15.00", perf[1].AverageTransaction.StringFixed(2))

	perf, err = f.engine.MachinePerformance(context.Background(), f.owner.ID, parse.PeriodMonth, SortTransactions)
	require.NoError(t, err)
	assert.Equal(t, f.a.ID, perf[0].MachineID)

	perf, err = f.engine.MachinePerformance(context.Background(), f.owner.ID, parse.PeriodMonth, SortUptime)
	require.NoError(t, err)
	assert.Equal(t, UptimeOnline, perf[0].UptimePercentage)
}
