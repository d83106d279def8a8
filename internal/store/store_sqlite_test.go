package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
	"billing-admin-backend/internal/storetest"
)

func TestCreateMachine_AssignsNextUsername(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	owner := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	storetest.Machine(t, gormDB, owner, "admin001", model.MachineOffline, nil)
	storetest.Machine(t, gormDB, owner, "admin002", model.MachineOffline, nil)
	storetest.Machine(t, gormDB, owner, "kiosk007", model.MachineOffline, nil)

	m := &model.Machine{UserID: owner.ID, Name: "New", Location: "Hall", HashedPassword: "x"}
	require.NoError(t, s.CreateMachine(ctx, m, "admin"))
	assert.Equal(t, "admin003", m.Username)
	assert.Equal(t, model.MachineOffline, m.Status)

	k := &model.Machine{UserID: owner.ID, Name: "Kiosk", Location: "Hall", HashedPassword: "x"}
	require.NoError(t, s.CreateMachine(ctx, k, "kiosk"))
	assert.Equal(t, "kiosk008", k.Username)
}

func TestListMachines_ScopedAndSearched(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	bob := storetest.User(t, gormDB, "bob", model.RoleAdmin)
	storetest.Machine(t, gormDB, alice, "north01", model.MachineOnline, nil)
	storetest.Machine(t, gormDB, alice, "south01", model.MachineOffline, nil)
	storetest.Machine(t, gormDB, bob, "north02", model.MachineOnline, nil)

	page, err := s.ListMachines(ctx, MachineFilter{OwnerID: alice.ID, Page: parse.Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = s.ListMachines(ctx, MachineFilter{OwnerID: alice.ID, Search: "NORTH", Page: parse.Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "north01", page.Items[0].Username)

	page, err = s.ListMachines(ctx, MachineFilter{OwnerID: alice.ID, Status: model.MachineOffline, Page: parse.Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "south01", page.Items[0].Username)

	_, err = s.OwnedMachine(ctx, alice.ID, page.Items[0].ID)
	require.NoError(t, err)
	_, err = s.OwnedMachine(ctx, bob.ID, page.Items[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListPayments_SummaryCoversWholeFilteredSet(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	bob := storetest.User(t, gormDB, "bob", model.RoleAdmin)
	m := storetest.Machine(t, gormDB, alice, "m1", model.MachineOnline, nil)
	other := storetest.Machine(t, gormDB, bob, "m2", model.MachineOnline, nil)

	now := time.Now().UTC()
	storetest.Payment(t, gormDB, m, "B1", "100.50", model.MethodUPI, model.PaymentSuccess, now.Add(-time.Hour))
	storetest.Payment(t, gormDB, m, "B2", "20.25", model.MethodCard, model.PaymentSuccess, now.Add(-2*time.Hour))
	storetest.Payment(t, gormDB, m, "B3", "5.00", model.MethodCash, model.PaymentPending, now.Add(-3*time.Hour))
	storetest.Payment(t, gormDB, m, "B4", "9.99", model.MethodUPI, model.PaymentFailed, now.Add(-4*time.Hour))
	storetest.Payment(t, gormDB, other, "B5", "999.00", model.MethodUPI, model.PaymentSuccess, now)

	for _, limit := range []int{1, 2, 3, 50} {
		page, summary, err := s.ListPayments(ctx, PaymentFilter{OwnerID: alice.ID, Page: parse.Page{Page: 1, Limit: limit}})
		require.NoError(t, err)

		assert.Equal(t, int64(4), page.Total)
		assert.LessOrEqual(t, len(page.Items), limit)
		assert.Equal(t, "135.74", summary.TotalAmount.StringFixed(2))
		assert.Equal(t, int64(4), summary.TotalCount)
		assert.Equal(t, "110.49", summary.ByMethod[model.MethodUPI].StringFixed(2))
		assert.Equal(t, "20.25", summary.ByMethod[model.MethodCard].StringFixed(2))
		assert.Equal(t, "5.00", summary.ByMethod[model.MethodCash].StringFixed(2))
		assert.Equal(t, int64(2), summary.ByStatus[model.PaymentSuccess])
		assert.Equal(t, int64(1), summary.ByStatus[model.PaymentPending])
		assert.Equal(t, int64(1), summary.ByStatus[model.PaymentFailed])
	}

	page, _, err := s.ListPayments(ctx, PaymentFilter{OwnerID: alice.ID, Page: parse.Page{Page: 1, Limit: 1}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B1", page.Items[0].BillNumber)
	assert.Equal(t, m.Name, page.Items[0].MachineName)

	_, summary, err := s.ListPayments(ctx, PaymentFilter{OwnerID: alice.ID, Method: model.MethodUPI, Page: parse.Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalCount)
}

func TestCreatePayment_DuplicateBillNumber(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	m := storetest.Machine(t, gormDB, alice, "m1", model.MachineOnline, nil)

	p := &model.Payment{MachineID: m.ID, BillNumber: "X-1", Amount: decimal.RequireFromString("10"), Method: model.MethodCash}
	require.NoError(t, s.CreatePayment(ctx, p))
	assert.Equal(t, model.PaymentSuccess, p.Status)

	dup := &model.Payment{MachineID: m.ID, BillNumber: "X-1", Amount: decimal.RequireFromString("11"), Method: model.MethodCash}
	assert.ErrorIs(t, s.CreatePayment(ctx, dup), gorm.ErrDuplicatedKey)

	var n int64
	require.NoError(t, gormDB.Model(&model.Payment{}).Where("bill_number = ?", "X-1").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestAlerts_DedupAndResolve(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	bob := storetest.User(t, gormDB, "bob", model.RoleAdmin)
	m := storetest.Machine(t, gormDB, alice, "m1", model.MachineOffline, nil)
	storetest.Machine(t, gormDB, bob, "m2", model.MachineOffline, nil)

	newAlert := func() *model.SystemAlert {
		id := m.ID
		return &model.SystemAlert{MachineID: &id, Title: "Machine Offline", Message: "Machine has never synced", Severity: model.SeverityCritical}
	}

	first, created, err := s.CreateAlertIfNotExists(ctx, newAlert())
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.CreateAlertIfNotExists(ctx, newAlert())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	count, err := s.CountUnresolvedAlerts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	count, err = s.CountUnresolvedAlerts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	n, err := s.ResolveMachineAlerts(ctx, m.ID, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	row, err := s.AlertByID(ctx, alice.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, row.Resolved)
	assert.NotNil(t, row.ResolvedAt)
	assert.Nil(t, row.ResolvedBy)
	require.NotNil(t, row.MachineName)
	assert.Equal(t, m.Name, *row.MachineName)

	_, err = s.AlertByID(ctx, bob.ID, first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Resolution frees the (machine, title) slot.
	_, created, err = s.CreateAlertIfNotExists(ctx, newAlert())
	require.NoError(t, err)
	assert.True(t, created)
}

func TestListAlerts_Filters(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	m := storetest.Machine(t, gormDB, alice, "m1", model.MachineOffline, nil)
	id := m.ID

	_, _, err := s.CreateAlertIfNotExists(ctx, &model.SystemAlert{MachineID: &id, Title: "Machine Offline", Message: "a", Severity: model.SeverityCritical})
	require.NoError(t, err)
	warn, _, err := s.CreateAlertIfNotExists(ctx, &model.SystemAlert{MachineID: &id, Title: "Sync Delayed", Message: "b", Severity: model.SeverityWarning})
	require.NoError(t, err)
	require.NoError(t, s.ResolveAlert(ctx, warn, alice.ID, time.Now()))

	page, err := s.ListAlerts(ctx, AlertFilter{OwnerID: alice.ID, Page: parse.Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	resolved := true
	page, err = s.ListAlerts(ctx, AlertFilter{OwnerID: alice.ID, Resolved: &resolved, Page: parse.Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Sync Delayed", page.Items[0].Title)
	require.NotNil(t, page.Items[0].ResolvedBy)
	assert.Equal(t, alice.ID, *page.Items[0].ResolvedBy)

	page, err = s.ListAlerts(ctx, AlertFilter{OwnerID: alice.ID, Severity: model.SeverityCritical, Page: parse.Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Machine Offline", page.Items[0].Title)

	future := time.Now().Add(time.Hour)
	page, err = s.ListAlerts(ctx, AlertFilter{OwnerID: alice.ID, Since: &future, Page: parse.Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
}

func TestAlerts_ScopedToOwnerAcrossPages(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	bob := storetest.User(t, gormDB, "bob", model.RoleAdmin)
	mine := storetest.Machine(t, gormDB, alice, "m1", model.MachineOffline, nil)
	theirs := storetest.Machine(t, gormDB, bob, "m2", model.MachineOffline, nil)

	for _, m := range []*model.Machine{mine, theirs} {
		id := m.ID
		for _, title := range []string{"Machine Offline", "Sync Delayed", "Maintenance Mode"} {
			_, created, err := s.CreateAlertIfNotExists(ctx, &model.SystemAlert{MachineID: &id, Title: title, Message: title, Severity: model.SeverityWarning})
			require.NoError(t, err)
			require.True(t, created)
		}
	}

	seen := map[uuid.UUID]bool{}
	for pageNo := 1; pageNo <= 2; pageNo++ {
		page, err := s.ListAlerts(ctx, AlertFilter{OwnerID: alice.ID, Page: parse.Page{Page: pageNo, Limit: 2}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		for _, a := range page.Items {
			require.NotNil(t, a.MachineID)
			assert.Equal(t, mine.ID, *a.MachineID)
			seen[a.ID] = true
		}
	}
	assert.Len(t, seen, 3)

	open, err := s.UnresolvedAlerts(ctx, alice.ID, "")
	require.NoError(t, err)
	require.Len(t, open, 3)
	for _, a := range open {
		assert.Equal(t, mine.ID, *a.MachineID)
	}

	count, err := s.CountUnresolvedAlerts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPaymentSums_StayExactOnSqlite(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	m := storetest.Machine(t, gormDB, alice, "m1", model.MachineOnline, nil)

	now := time.Now().UTC()
	storetest.Payment(t, gormDB, m, "C1", "0.10", model.MethodUPI, model.PaymentSuccess, now.Add(-time.Minute))
	storetest.Payment(t, gormDB, m, "C2", "0.20", model.MethodUPI, model.PaymentSuccess, now.Add(-2*time.Minute))
	want := decimal.RequireFromString("0.30")

	_, summary, err := s.ListPayments(ctx, PaymentFilter{OwnerID: alice.ID, Page: parse.Page{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.True(t, want.Equal(summary.TotalAmount), summary.TotalAmount.String())
	assert.True(t, want.Equal(summary.ByMethod[model.MethodUPI]), summary.ByMethod[model.MethodUPI].String())

	total, err := s.PaymentTotals(ctx, alice.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total.Count)
	assert.True(t, want.Equal(total.Sum), total.Sum.String())
}

func TestUpsertBillConfig(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	m := storetest.Machine(t, gormDB, alice, "m1", model.MachineOnline, nil)

	cfg, err := s.BillConfig(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	org := "Park Central"
	cfg, err = s.UpsertBillConfig(ctx, m.ID, BillConfigPatch{OrgName: &org})
	require.NoError(t, err)
	assert.Equal(t, "Park Central", cfg.OrgName)
	require.NotNil(t, cfg.FooterMessage)
	assert.Equal(t, model.DefaultFooterMessage, *cfg.FooterMessage)
	assert.True(t, cfg.CGSTPercent.IsZero())

	cgst := decimal.RequireFromString("9")
	tagline := "Welcome"
	updated, err := s.UpsertBillConfig(ctx, m.ID, BillConfigPatch{CGSTPercent: &cgst, Tagline: &tagline})
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, updated.ID)
	assert.Equal(t, "Park Central", updated.OrgName)
	assert.Equal(t, "9.00", updated.CGSTPercent.StringFixed(2))
	require.NotNil(t, updated.Tagline)
	assert.Equal(t, "Welcome", *updated.Tagline)

	var n int64
	require.NoError(t, gormDB.Model(&model.BillConfig{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDeleteMachine_Cascades(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	m := storetest.Machine(t, gormDB, alice, "m1", model.MachineOnline, nil)
	keep := storetest.Machine(t, gormDB, alice, "m2", model.MachineOnline, nil)
	storetest.Payment(t, gormDB, m, "B1", "1", model.MethodCash, model.PaymentSuccess, time.Now())
	storetest.Payment(t, gormDB, keep, "B2", "1", model.MethodCash, model.PaymentSuccess, time.Now())
	require.NoError(t, s.CreateService(ctx, &model.Service{MachineID: m.ID, Name: "Wash", Price: decimal.RequireFromString("10")}, &model.CatalogHistory{Action: "create", Type: model.HistoryCreate}))
	require.NoError(t, s.CreateLog(ctx, &model.Log{MachineID: m.ID, Action: "boot", Type: model.LogSystem}))

	require.NoError(t, s.DeleteMachine(ctx, m.ID))

	for _, tbl := range []any{&model.Payment{}, &model.Service{}, &model.Log{}, &model.CatalogHistory{}} {
		var n int64
		require.NoError(t, gormDB.Model(tbl).Where("machine_id = ?", m.ID).Count(&n).Error)
		assert.Zero(t, n, "%T rows left behind", tbl)
	}
	var kept int64
	require.NoError(t, gormDB.Model(&model.Payment{}).Where("machine_id = ?", keep.ID).Count(&kept).Error)
	assert.Equal(t, int64(1), kept)

	assert.ErrorIs(t, s.DeleteMachine(ctx, m.ID), gorm.ErrRecordNotFound)
}

func TestUpdateService_RecordsHistory(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)
	m := storetest.Machine(t, gormDB, alice, "m1", model.MachineOnline, nil)

	svc := &model.Service{MachineID: m.ID, Name: "Wash", Price: decimal.RequireFromString("150.00")}
	require.NoError(t, s.CreateService(ctx, svc, nil))

	price := decimal.RequireFromString("199.99")
	sameName := "Wash"
	fields, changes := ServicePatch{Name: &sameName, Price: &price}.Diff(svc)
	assert.Equal(t, map[string]any{"price": price}, fields)
	assert.Equal(t, map[string]any{"old": "150.00", "new": "199.99"}, changes["price"])

	require.NoError(t, s.UpdateService(ctx, svc, fields, &model.CatalogHistory{Action: "update", Type: model.HistoryUpdate, Changes: changes, UserName: "alice"}))

	got, err := s.ServiceByID(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, "199.99", got.Price.StringFixed(2))

	history, err := s.ListCatalogHistory(ctx, m.ID, parse.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, history.Items, 1)
	assert.Equal(t, model.HistoryUpdate, history.Items[0].Type)
	require.NotNil(t, history.Items[0].ServiceID)
	assert.Equal(t, svc.ID, *history.Items[0].ServiceID)
}

func TestSubscriptions(t *testing.T) {
	gormDB := storetest.DB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()
	alice := storetest.User(t, gormDB, "alice", model.RoleAdmin)

	sub := &model.PushSubscription{Endpoint: "https://push.test/1", P256DH: "k1", Auth: "a1", UserID: alice.ID}
	require.NoError(t, s.UpsertSubscription(ctx, sub))
	sub2 := &model.PushSubscription{Endpoint: "https://push.test/1", P256DH: "k2", Auth: "a2", UserID: alice.ID}
	require.NoError(t, s.UpsertSubscription(ctx, sub2))

	subs, err := s.SubscriptionsForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "k2", subs[0].P256DH)

	assert.ErrorIs(t, s.DeleteSubscription(ctx, uuid.New(), sub.Endpoint), gorm.ErrRecordNotFound)
	require.NoError(t, s.DeleteSubscription(ctx, alice.ID, sub.Endpoint))
}
