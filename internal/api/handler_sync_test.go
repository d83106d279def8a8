package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/observe"
	"billing-admin-backend/internal/storetest"
)

func TestSyncPush_SkipsKnownBillNumbers(t *testing.T) {
	f := newFixture(t)
	storetest.Payment(t, f.db, f.machine, "OFF-1", "10.00", model.MethodCash, model.PaymentSuccess, time.Now())
	taken := time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC)

	w := f.do(http.MethodPost, "/v1/sync/push", f.machineToken(f.machine), map[string]any{
		"machine_id": f.machine.ID,
		"payments": []map[string]any{
			{"bill_number": "OFF-1", "amount": "10.00", "method": "Cash"},
			{"bill_number": "OFF-2", "amount": "42.00", "method": "upi", "created_at": taken},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := data[syncPushResponse](t, w)
	assert.Equal(t, 1, got.SyncedPayments)
	assert.Equal(t, 1, got.FailedPayments)

	var count int64
	require.NoError(t, f.db.Model(&model.Payment{}).Where("bill_number = ?", "OFF-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var pushed model.Payment
	require.NoError(t, f.db.First(&pushed, "bill_number = ?", "OFF-2").Error)
	assert.True(t, pushed.CreatedAt.Equal(taken))
	assert.Equal(t, model.MethodUPI, pushed.Method)

	var m model.Machine
	require.NoError(t, f.db.First(&m, "id = ?", f.machine.ID).Error)
	require.NotNil(t, m.LastSync)
	assert.Contains(t, f.recorder.Kinds(), observe.EventSyncPush)
}

func TestSyncPush_OtherMachine(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/v1/sync/push", f.machineToken(f.machine), map[string]any{
		"machine_id": f.foreign.ID,
		"payments":   []map[string]any{},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncPush_RejectsBadRecord(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/v1/sync/push", f.machineToken(f.machine), map[string]any{
		"machine_id": f.machine.ID,
		"payments":   []map[string]any{{"bill_number": "X", "amount": "-1", "method": "Cash"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var count int64
	require.NoError(t, f.db.Model(&model.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSyncPullAndStatus(t *testing.T) {
	f := newFixture(t)
	token := f.machineToken(f.machine)
	require.NoError(t, f.db.Create(&model.Service{MachineID: f.machine.ID, Name: "Tea", Price: decimal.RequireFromString("10"), Status: model.ServiceActive}).Error)
	require.NoError(t, f.db.Create(&model.Service{MachineID: f.machine.ID, Name: "Old", Price: decimal.RequireFromString("5"), Status: model.ServiceInactive}).Error)

	w := f.do(http.MethodPost, "/v1/sync/pull?machine_id="+f.machine.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pull := data[syncPullResponse](t, w)
	require.Len(t, pull.Services, 1)
	assert.Equal(t, "Tea", pull.Services[0].Name)
	assert.Equal(t, model.MachineOnline, pull.MachineStatus)

	w = f.do(http.MethodGet, "/v1/sync/status/"+f.machine.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := data[syncStatusResponse](t, w)
	assert.Equal(t, f.machine.ID, status.MachineID)
	assert.NotNil(t, status.LastSync)
	assert.Zero(t, status.PendingUploads)

	w = f.do(http.MethodPost, "/v1/sync/pull?machine_id=bogus", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
