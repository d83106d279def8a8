package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"billing-admin-backend/config"
	"billing-admin-backend/internal/aggregate"
	"billing-admin-backend/internal/alert"
	"billing-admin-backend/internal/auth"
	"billing-admin-backend/internal/observe"
	"billing-admin-backend/internal/offline"
	"billing-admin-backend/internal/store"
)

// Options lists the dependencies of the API handlers.
type Options struct {
	Config    *config.Config
	Store     store.Store
	Tokens    *auth.TokenService
	Creds     *auth.CredentialStore
	Hasher    auth.PasswordHasher
	Alerts    *alert.Engine
	Aggregate *aggregate.Engine
	Sync      *offline.Coordinator
	Recorder  observe.Recorder
	Logger    *zap.Logger
	Webpush   *webpush.Options
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	store     store.Store
	tokens    *auth.TokenService
	creds     *auth.CredentialStore
	hasher    auth.PasswordHasher
	alerts    *alert.Engine
	aggregate *aggregate.Engine
	sync      *offline.Coordinator
	recorder  observe.Recorder
	logger    *zap.Logger
	webpush   *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(opts Options) *Handler {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = observe.Nop
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:       opts.Config,
		store:     opts.Store,
		tokens:    opts.Tokens,
		creds:     opts.Creds,
		hasher:    opts.Hasher,
		alerts:    opts.Alerts,
		aggregate: opts.Aggregate,
		sync:      opts.Sync,
		recorder:  recorder,
		logger:    logger.Named("api"),
		webpush:   opts.Webpush,
	}
}
