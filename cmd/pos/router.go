package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/pos-terminal/internal/analytics"
	"github.com/noah-isme/pos-terminal/internal/app"
	"github.com/noah-isme/pos-terminal/internal/billing"
	"github.com/noah-isme/pos-terminal/internal/catalog"
	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/health"
	"github.com/noah-isme/pos-terminal/internal/invoice"
	"github.com/noah-isme/pos-terminal/internal/obs"
	"github.com/noah-isme/pos-terminal/internal/ratelimit"
	"github.com/noah-isme/pos-terminal/internal/security"
	"github.com/noah-isme/pos-terminal/internal/session"
	"github.com/noah-isme/pos-terminal/internal/user"
	"github.com/noah-isme/pos-terminal/internal/voucher"
)

const adminRole = "admin"

type routerOptions struct {
	Metrics *obs.HTTPMetrics
	Tracing bool
}

func newRouter(deps *app.Dependencies, opts routerOptions) http.Handler {
	cfg := deps.Config
	logger := deps.Logger

	mw := session.Middleware{Manager: deps.Sessions, CookieName: cfg.SessionCookieName}
	sessionHandler := &session.Handler{
		Manager:        deps.Sessions,
		Middleware:     mw,
		CookieDomain:   cfg.CookieDomain,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: cfg.CookieSameSite,
	}
	loginLimit := ratelimit.Handler{
		Limiter: deps.LoginLimiter,
		OnError: func(err error) { logger.Warn().Err(err).Msg("login_rate_limit_unavailable") },
	}

	var idemStore redis.UniversalClient
	if deps.Redis != nil {
		idemStore = deps.Redis
	}
	idem := common.Idem{R: idemStore, TTL: cfg.IdempotencyTTL}

	billingHandler := &billing.Handler{Registry: deps.Terminals}
	productHandler := &catalog.Handler{Service: deps.Catalog}
	userHandler := &user.Handler{Service: deps.Users}
	voucherHandler := &voucher.Handler{Service: deps.Vouchers}
	invoiceHandler := &invoice.Handler{Service: deps.Invoices}
	analyticsHandler := &analytics.Handler{Svc: deps.Analytics}
	healthHandler := health.Handler{Checker: deps.Probes, StoreAPITimeout: cfg.StoreAPITimeout}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins, session.HeaderName))
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.CookieSecure}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/session", func(s chi.Router) {
			s.With(loginLimit.Middleware).Post("/login", sessionHandler.Login)
			s.Post("/logout", sessionHandler.Logout)
			s.Get("/me", sessionHandler.Me)
		})

		v.Group(func(authed chi.Router) {
			authed.Use(mw.Require)

			authed.Route("/billing", func(b chi.Router) {
				b.Get("/", billingHandler.Get)
				b.Put("/search", billingHandler.Search)
				b.Post("/items", billingHandler.AddItem)
				b.Patch("/items/{productID}", billingHandler.UpdateItem)
				b.Delete("/items/{productID}", billingHandler.RemoveItem)
				b.Put("/customer", billingHandler.SetCustomer)
				b.Put("/voucher", billingHandler.SetVoucher)
				b.Post("/voucher/apply", billingHandler.ApplyVoucher)
				b.With(idem.Middleware).Post("/sale", billingHandler.CompleteSale)
				b.Post("/reset", billingHandler.Reset)
				b.Delete("/notices/{id}", billingHandler.DismissNotice)
			})

			authed.Get("/analytics/overview", analyticsHandler.Overview)
			authed.Get("/products", productHandler.List)
			authed.Get("/vouchers", voucherHandler.List)

			authed.Group(func(admin chi.Router) {
				admin.Use(session.RequireRole(adminRole))
				admin.Get("/products/report", productHandler.Report)
				admin.Post("/products", productHandler.Create)
				admin.Put("/products/{id}", productHandler.Update)
				admin.Delete("/products/{id}", productHandler.Delete)

				admin.Post("/vouchers", voucherHandler.Create)
				admin.Delete("/vouchers/{id}", voucherHandler.Delete)

				admin.Get("/users", userHandler.List)
				admin.Post("/users", userHandler.Create)
				admin.Put("/users/{id}", userHandler.Update)
				admin.Delete("/users/{id}", userHandler.Delete)

				admin.Get("/invoices", invoiceHandler.List)
				admin.Get("/invoices/{id}", invoiceHandler.Get)
				admin.With(idem.Middleware).Post("/invoices/{id}/print", invoiceHandler.Print)
			})
		})
	})

	return r
}
