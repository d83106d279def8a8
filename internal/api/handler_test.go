package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"billing-admin-backend/config"
	"billing-admin-backend/internal/aggregate"
	"billing-admin-backend/internal/alert"
	"billing-admin-backend/internal/auth"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/observe"
	"billing-admin-backend/internal/offline"
	"billing-admin-backend/internal/store"
	"billing-admin-backend/internal/storetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "secret-pass"

type fixture struct {
	t        *testing.T
	db       *gorm.DB
	router   *gin.Engine
	tokens   *auth.TokenService
	hasher   auth.PasswordHasher
	recorder *observe.Memory

	admin    *model.User
	operator *model.User
	machine  *model.Machine // owned by admin
	foreign  *model.Machine // owned by operator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gormDB := storetest.DB(t)
	s := store.NewGormStore(gormDB)
	hasher := auth.NewBcryptHasher(4)
	tokens := auth.NewTokenService("test-secret", 30*time.Minute, 24*time.Hour)
	recorder := &observe.Memory{}
	logger := zap.NewNop()

	f := &fixture{t: t, db: gormDB, tokens: tokens, hasher: hasher, recorder: recorder}
	f.admin = storetest.User(t, gormDB, "root", model.RoleAdmin)
	f.operator = storetest.User(t, gormDB, "clerk", model.RoleOperator)
	f.machine = storetest.Machine(t, gormDB, f.admin, "pos-a", model.MachineOnline, nil)
	f.foreign = storetest.Machine(t, gormDB, f.operator, "pos-b", model.MachineOnline, nil)

	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)
	require.NoError(t, gormDB.Model(&model.User{}).Where("id = ?", f.admin.ID).Update("hashed_password", hash).Error)
	require.NoError(t, gormDB.Model(&model.Machine{}).Where("id = ?", f.machine.ID).Update("hashed_password", hash).Error)

	cfg := &config.Config{Server: config.ServerConfig{APIPrefix: "/v1", Location: time.UTC}}
	f.router = NewRouter(Options{
		Config:    cfg,
		Store:     s,
		Tokens:    tokens,
		Creds:     auth.NewCredentialStore(s, hasher),
		Hasher:    hasher,
		Alerts:    alert.NewEngine(s, alert.Thresholds{SyncDelay: 30 * time.Minute}, recorder, nil, logger),
		Aggregate: aggregate.NewEngine(s, time.UTC),
		Sync:      offline.NewCoordinator(s, recorder, logger),
		Recorder:  recorder,
		Logger:    logger,
	})
	return f
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) userToken(u *model.User) string {
	f.t.Helper()
	token, err := f.tokens.IssueUserAccess(u)
	require.NoError(f.t, err)
	return token
}

func (f *fixture) machineToken(m *model.Machine) string {
	f.t.Helper()
	token, err := f.tokens.IssueMachineAccess(m)
	require.NoError(f.t, err)
	return token
}

// data decodes the success envelope's data into T.
func data[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.True(t, env.Success, w.Body.String())
	return env.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.False(t, env.Success)
	return env.Error.Code
}
