package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sneha1789/timeless-tribe-checkout/internal/auth"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/coupon"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
	"github.com/sneha1789/timeless-tribe-checkout/internal/gateway/esewa"
	"github.com/sneha1789/timeless-tribe-checkout/internal/handler"
	"github.com/sneha1789/timeless-tribe-checkout/internal/storage/postgres"
	"github.com/sneha1789/timeless-tribe-checkout/pkg/health"
	"github.com/sneha1789/timeless-tribe-checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the draft expiry
// sweeper, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	cartRepo := postgres.NewCartRepository(pool, productRepo)
	addressRepo := postgres.NewAddressRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Payment gateway.
	gateway := esewa.New(esewa.Config{
		FormURL:     cfg.ESewa.FormURL,
		ProductCode: cfg.ESewa.ProductCode,
		SecretKey:   cfg.ESewa.SecretKey,
		SuccessURL:  cfg.ESewa.SuccessURL,
		FailureURL:  cfg.ESewa.FailureURL,
	})

	// Domain services.
	couponValidator := coupon.NewRepoValidator(couponRepo)
	orderService := order.NewService(
		cartRepo, productRepo, addressRepo, couponValidator, orderRepo,
		gateway, cfg.Checkout.PricingOptions(),
	)

	// HTTP handlers.
	tokenService := auth.NewService(cfg.JWTSecret, cfg.JWTTTL)
	h := handler.NewHandler(orderService, tokenService)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	instrumented := otelhttp.NewHandler(
		httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
		"checkout-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           instrumented,
	}

	// Draft expiry sweeper: abandoned gateway redirects would otherwise hold
	// stock reservations forever.
	if cfg.Checkout.DraftTTL > 0 {
		go runSweeper(ctx, orderService, cfg.Checkout)
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// runSweeper periodically expires stale pending_payment drafts. It stops when
// ctx is cancelled.
func runSweeper(ctx context.Context, orders *order.Service, cfg CheckoutConfig) {
	lg := zctx.From(ctx)
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := orders.ExpireStaleDrafts(ctx, cfg.DraftTTL, cfg.SweepLimit)
			if err != nil {
				lg.Error("draft expiry sweep", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("expired stale drafts", zap.Int("count", n))
			}
		}
	}
}
