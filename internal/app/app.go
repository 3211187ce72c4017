// Package app wires the storefront's dependencies together and runs the API
// server.
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

	"github.com/karibushop/storefront/internal/auth"
	"github.com/karibushop/storefront/internal/cache"
	"github.com/karibushop/storefront/internal/domain/analytics"
	"github.com/karibushop/storefront/internal/domain/cart"
	"github.com/karibushop/storefront/internal/domain/checkout"
	"github.com/karibushop/storefront/internal/domain/coupon"
	"github.com/karibushop/storefront/internal/domain/product"
	"github.com/karibushop/storefront/internal/handler"
	"github.com/karibushop/storefront/internal/media"
	"github.com/karibushop/storefront/internal/payment"
	storemongo "github.com/karibushop/storefront/internal/storage/mongo"
	"github.com/karibushop/storefront/pkg/health"
	"github.com/karibushop/storefront/pkg/httpmiddleware"
)

// pingFunc adapts a closure to the health.Pinger interface.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// MongoDB connection + index creation.
	db, err := storemongo.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
	if err != nil {
		return errors.Wrap(err, "connect mongo")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			lg.Error("Mongo disconnect error", zap.Error(err))
		}
	}()

	if err := storemongo.EnsureIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	// Redis: featured-products cache + refresh token store.
	rdb, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			lg.Error("Redis close error", zap.Error(err))
		}
	}()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("mongo", 5*time.Second, health.PingCheck("mongo", pingFunc(func(ctx context.Context) error {
		return db.Client().Ping(ctx, nil)
	})))
	healthSvc.AddReadinessCheck("redis", 5*time.Second, health.PingCheck("redis", pingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	userRepo := storemongo.NewUserRepository(db)
	productRepo := storemongo.NewProductRepository(db)
	couponRepo := storemongo.NewCouponRepository(db)
	orderRepo := storemongo.NewOrderRepository(db)

	// External services.
	images, err := media.NewCloudinaryStore(cfg.CloudinaryURL)
	if err != nil {
		return errors.Wrap(err, "create cloudinary store")
	}
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.Currency)

	// Domain services.
	tokens := auth.NewTokens([]byte(cfg.AccessTokenSecret), []byte(cfg.RefreshTokenSecret), cache.NewTokenStore(rdb))
	productSvc := product.NewService(productRepo, cache.NewFeaturedCache(rdb, cfg.FeaturedCacheTTL), images)
	cartSvc := cart.NewService(userRepo, productRepo)
	couponValidator := coupon.NewRepoValidator(couponRepo)
	checkoutSvc := checkout.NewService(
		checkout.Config{
			SuccessURL:         cfg.ClientURL + "/purchase-success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:          cfg.ClientURL + "/purchase-cancel",
			GiftThresholdMinor: cfg.GiftThresholdMinor,
		},
		gateway,
		couponValidator,
		coupon.NewRepoIssuer(couponRepo),
		couponRepo,
		orderRepo,
	)
	statsSvc := analytics.NewService(userRepo, productRepo, orderRepo)

	// HTTP handlers.
	h := handler.New(
		handler.Config{SecureCookies: cfg.SecureCookies},
		userRepo,
		tokens,
		productSvc,
		cartSvc,
		couponValidator,
		couponRepo,
		checkoutSvc,
		statsSvc,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", otelhttp.NewHandler(h.Routes(), "storefront-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
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
