package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"billing-admin-backend/config"
	"billing-admin-backend/internal/aggregate"
	"billing-admin-backend/internal/alert"
	"billing-admin-backend/internal/api"
	"billing-admin-backend/internal/auth"
	"billing-admin-backend/internal/db"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/observe"
	"billing-admin-backend/internal/offline"
	"billing-admin-backend/internal/store"
)

type notified struct {
	mu     sync.Mutex
	titles []string
}

func (n *notified) NotifyAlert(_ uuid.UUID, a *model.SystemAlert, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, a.Title)
}

type client struct {
	t      *testing.T
	server *httptest.Server
}

func (c client) call(method, path, token string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		env := struct {
			Data any `json:"data"`
		}{Data: out}
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode
}

// TestBillingLifecycle drives a machine from creation through offline
// sync and alerting, and reads the owner's dashboards along the way.
func TestBillingLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  api_prefix: "/api/v1"
  rate_limit_per_sec: 1000
  rate_limit_burst: 1000
database:
  dsn: "sqlite:file:lifecycle?mode=memory&cache=shared"
auth:
  secret_key: "integration-secret"
  bcrypt_cost: 4
  bootstrap_admin:
    username: "owner"
    password: "owner-pass"
alerts:
  sync_delay_minutes: 30
`), 0o600))
	t.Setenv("SECRET_KEY", "")
	t.Setenv("DATABASE_URL", "")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Server.CacheTTLSeconds = 0

	logger := zap.NewNop()
	gormDB, err := db.Init(&cfg.Database, logger, false)
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	seeded, err := db.SeedAdmin(context.Background(), gormDB, cfg.Auth.BootstrapAdmin, hasher)
	require.NoError(t, err)
	require.True(t, seeded)

	s := store.NewGormStore(gormDB)
	recorder := &observe.Memory{}
	spy := &notified{}
	router := api.NewRouter(api.Options{
		Config:    cfg,
		Store:     s,
		Tokens:    auth.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL()),
		Creds:     auth.NewCredentialStore(s, hasher),
		Hasher:    hasher,
		Alerts:    alert.NewEngine(s, alert.Thresholds{SyncDelay: 30 * time.Minute}, recorder, spy, logger),
		Aggregate: aggregate.NewEngine(s, cfg.Server.Location),
		Sync:      offline.NewCoordinator(s, recorder, logger),
		Recorder:  recorder,
		Logger:    logger,
	})
	server := httptest.NewServer(router)
	defer server.Close()
	c := client{t: t, server: server}

	// 1. The bootstrap admin logs in and registers a machine.
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "owner", "password": "owner-pass",
	}, &login))
	admin := login.AccessToken

	var machine struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
		Status   string    `json:"status"`
	}
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/api/v1/machines", admin, map[string]string{
		"name": "Library POS", "location": "Ground floor", "password": "pos-pass",
	}, &machine))
	assert.Equal(t, "admin001", machine.Username)
	assert.Equal(t, "offline", machine.Status)

	// 2. A machine that never synced raises exactly one critical alert.
	var alerts struct {
		Alerts []struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Severity string `json:"severity"`
		} `json:"alerts"`
		UnresolvedCount int64 `json:"unresolved_count"`
	}
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/api/v1/alerts", admin, nil, &alerts))
		require.Len(t, alerts.Alerts, 1)
	}
	assert.Equal(t, alert.TitleOffline, alerts.Alerts[0].Title)
	assert.Equal(t, "critical", alerts.Alerts[0].Severity)
	assert.Equal(t, []string{alert.TitleOffline}, spy.titles)

	// 3. The machine logs in, which resolves the alert, and adds a catalog item.
	var machineLogin struct {
		AccessToken string `json:"access_token"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/api/v1/auth/machine-login", "", map[string]string{
		"username": machine.Username, "password": "pos-pass",
	}, &machineLogin))
	pos := machineLogin.AccessToken

	var count struct {
		Count int64 `json:"count"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/api/v1/alerts/unresolved-count", admin, nil, &count))
	assert.Zero(t, count.Count)

	servicesPath := "/api/v1/machines/" + machine.ID.String() + "/services"
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, servicesPath, admin, map[string]string{
		"name": "Photocopy", "price": "2.00",
	}, nil))

	// 4. The machine pulls its catalog and pushes bills taken offline.
	var pull struct {
		Services []struct {
			Name string `json:"name"`
		} `json:"services"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/api/v1/sync/pull?machine_id="+machine.ID.String(), pos, nil, &pull))
	require.Len(t, pull.Services, 1)

	push := map[string]any{
		"machine_id": machine.ID,
		"payments": []map[string]any{
			{"bill_number": "LIB-1", "amount": "20.00", "method": "UPI"},
			{"bill_number": "LIB-2", "amount": "10.00", "method": "Cash"},
		},
	}
	var pushed struct {
		Synced int `json:"synced_payments"`
		Failed int `json:"failed_payments"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/api/v1/sync/push", pos, push, &pushed))
	assert.Equal(t, 2, pushed.Synced)

	// Replaying the same batch is harmless.
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/api/v1/sync/push", pos, push, &pushed))
	assert.Equal(t, 0, pushed.Synced)
	assert.Equal(t, 2, pushed.Failed)

	// 5. The owner's dashboard reflects the synced revenue.
	var stats struct {
		OnlineMachines  int64   `json:"online_machines"`
		TodayCollection float64 `json:"today_collection"`
		TodayCount      int64   `json:"total_transactions_today"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/api/v1/dashboard/stats", admin, nil, &stats))
	assert.EqualValues(t, 1, stats.OnlineMachines)
	assert.InDelta(t, 30.0, stats.TodayCollection, 0.001)
	assert.EqualValues(t, 2, stats.TodayCount)

	var dashAlerts []struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/api/v1/dashboard/alerts", admin, nil, &dashAlerts))
	require.Len(t, dashAlerts, 1)
	assert.Equal(t, alert.AllOKID, dashAlerts[0].ID)

	// 6. The machine cannot reach owner-only data.
	assert.Equal(t, http.StatusForbidden, c.call(http.MethodGet, "/api/v1/dashboard/stats", pos, nil, nil))

	assert.Contains(t, recorder.Kinds(), observe.EventSyncPush)
	assert.Contains(t, recorder.Kinds(), observe.EventAlertResolved)

	resp, err := server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
