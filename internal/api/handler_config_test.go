package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/observe"
)

func TestBillConfig(t *testing.T) {
	f := newFixture(t)
	path := "/v1/config/machine/" + f.machine.ID.String()
	admin := f.userToken(f.admin)

	w := f.do(http.MethodGet, path, f.machineToken(f.machine), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":null}`, w.Body.String())

	w = f.do(http.MethodPut, path, admin, map[string]any{"org_name": "Campus Canteen", "cgst_percent": "2.5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := data[billConfigResponse](t, w)
	assert.Equal(t, "Campus Canteen", saved.OrgName)
	assert.InDelta(t, 2.5, saved.CGSTPercent, 0.001)
	assert.Zero(t, saved.SGSTPercent)
	require.NotNil(t, saved.FooterMessage)
	assert.Equal(t, model.DefaultFooterMessage, *saved.FooterMessage)

	w = f.do(http.MethodPut, path, admin, map[string]any{"sgst_percent": "9"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := data[billConfigResponse](t, w)
	assert.Equal(t, "Campus Canteen", updated.OrgName)
	assert.Equal(t, saved.ID, updated.ID)

	w = f.do(http.MethodGet, path, f.machineToken(f.machine), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 9.0, data[billConfigResponse](t, w).SGSTPercent, 0.001)

	var logs int64
	require.NoError(t, f.db.Model(&model.Log{}).Where("machine_id = ? AND type = ?", f.machine.ID, model.LogConfig).Count(&logs).Error)
	assert.EqualValues(t, 2, logs)
	assert.Contains(t, f.recorder.Kinds(), observe.EventConfigUpdated)
}

func TestBillConfig_Rejected(t *testing.T) {
	f := newFixture(t)
	path := "/v1/config/machine/" + f.machine.ID.String()

	w := f.do(http.MethodPut, path, f.userToken(f.admin), map[string]any{"cgst_percent": "150"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodPut, path, f.userToken(f.operator), map[string]any{"org_name": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/v1/config/machine/"+f.foreign.ID.String(), f.machineToken(f.machine), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptions(t *testing.T) {
	f := newFixture(t)
	token := f.userToken(f.admin)
	sub := map[string]any{"endpoint": "https://push.example.test/abc", "p256dh": "key", "auth": "secret"}

	w := f.do(http.MethodPut, "/v1/notifications/subscriptions", token, sub)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored model.PushSubscription
	require.NoError(t, f.db.First(&stored, "endpoint = ?", sub["endpoint"]).Error)
	assert.Equal(t, f.admin.ID, stored.UserID)

	w = f.do(http.MethodPut, "/v1/notifications/subscriptions", token, map[string]any{"endpoint": "https://push.example.test/abc"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodDelete, "/v1/notifications/subscriptions", f.userToken(f.operator), map[string]any{"endpoint": sub["endpoint"]})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodDelete, "/v1/notifications/subscriptions", token, map[string]any{"endpoint": sub["endpoint"]})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVAPIDPublicKey_NotConfigured(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/v1/notifications/vapid-public-key", f.userToken(f.admin), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
