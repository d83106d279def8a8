package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"billing-admin-backend/internal/metrics"
	"billing-admin-backend/internal/mw"
)

// authRateLimit bounds credential guessing per client IP.
const (
	authRateLimit = 1
	authBurst     = 10
)

// NewRouter creates and configures a new Gin router.
func NewRouter(opts Options) *gin.Engine {
	RegisterValidators()

	handler := NewHandler(opts)
	cfg := opts.Config.Server

	r := gin.New()
	r.Use(
		mw.Recovery(handler.logger),
		mw.RequestLog(handler.logger),
		mw.Metrics(),
		mw.CORS(cfg.AllowedOrigins),
	)
	if cfg.RateLimitPerSec > 0 {
		r.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))
	}

	// Responses cached per principal. A zero TTL disables caching.
	caching := func(c *gin.Context) { c.Next() }
	if cfg.CacheTTLSeconds > 0 {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		caching = mw.Cache(cache.New(ttl, 2*ttl), ttl)
	}

	r.GET("/", handler.Health)
	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group(cfg.APIPrefix)

	public := api.Group("/auth", mw.RateLimiter(authRateLimit, authBurst))
	{
		public.POST("/login", handler.Login)
		public.POST("/machine-login", handler.MachineLogin)
		public.POST("/refresh", handler.Refresh)
	}

	// Users and machines. Machines only reach their own machine id.
	anyone := api.Group("", mw.Authenticate(opts.Tokens, opts.Creds))
	{
		anyone.GET("/auth/me", handler.Me)
		anyone.POST("/auth/logout", handler.Logout)

		anyone.POST("/sync/push", handler.SyncPush)
		anyone.POST("/sync/pull", handler.SyncPull)
		anyone.GET("/sync/status/:machine_id", handler.SyncStatus)

		anyone.GET("/machines/:id/services", handler.ListServices)
		anyone.GET("/machines/:id/services/active", handler.ListActiveServices)
		anyone.GET("/services/:id", handler.GetService)
		anyone.POST("/machines/:id/logs", handler.CreateLog)
		anyone.GET("/config/machine/:machine_id", handler.GetBillConfig)
	}

	users := anyone.Group("", mw.RequireUser())
	{
		users.GET("/machines", handler.ListMachines)
		users.GET("/machines/:id", handler.GetMachine)
		users.PATCH("/machines/:id/status", handler.UpdateMachineStatus)
		users.GET("/machines/:id/catalog-history", handler.ListCatalogHistory)

		users.GET("/payments", handler.ListPayments)
		users.POST("/payments", handler.CreatePayment)
		users.GET("/payments/:id", handler.GetPayment)
		users.GET("/machines/:id/payments", handler.ListMachinePayments)

		users.GET("/machines/:id/logs", handler.ListLogs)
		users.GET("/logs/recent", handler.RecentLogs)

		dashboard := users.Group("/dashboard", caching)
		dashboard.GET("/stats", handler.DashboardStats)
		dashboard.GET("/revenue/weekly", handler.WeeklyRevenue)
		dashboard.GET("/payments/chart", handler.PaymentsChart)
		dashboard.GET("/machines", handler.DashboardMachines)
		// Alerts are derived on read, so the alert panel is never cached.
		users.GET("/dashboard/alerts", handler.DashboardAlerts)

		analytics := users.Group("/analytics", caching)
		analytics.GET("/revenue", handler.RevenueAnalytics)
		analytics.GET("/machines/performance", handler.MachinePerformance)
		users.GET("/analytics/export/:type", handler.Export)

		users.GET("/alerts", handler.ListAlerts)
		users.GET("/alerts/unresolved-count", handler.UnresolvedAlertCount)
		users.PATCH("/alerts/:id/resolve", handler.ResolveAlert)

		users.PUT("/notifications/subscriptions", handler.PutSubscription)
		users.DELETE("/notifications/subscriptions", handler.DeleteSubscription)
		users.GET("/notifications/vapid-public-key", handler.GetVAPIDPublicKey)
	}

	admin := users.Group("", mw.RequireAdmin())
	{
		admin.POST("/machines", handler.CreateMachine)
		admin.PUT("/machines/:id", handler.UpdateMachine)
		admin.PATCH("/machines/:id", handler.UpdateMachine)
		admin.DELETE("/machines/:id", handler.DeleteMachine)

		admin.POST("/machines/:id/services", handler.CreateService)
		admin.PUT("/services/:id", handler.UpdateService)
		admin.DELETE("/services/:id", handler.DeleteService)

		admin.PUT("/config/machine/:machine_id", handler.PutBillConfig)
		admin.DELETE("/alerts/:id", handler.DeleteAlert)
	}

	return r
}
