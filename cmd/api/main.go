package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arjunvnair/modakart-backend/api"
	"github.com/arjunvnair/modakart-backend/api/routes"
	addresssvc "github.com/arjunvnair/modakart-backend/internal/address"
	authsvc "github.com/arjunvnair/modakart-backend/internal/auth"
	cartsvc "github.com/arjunvnair/modakart-backend/internal/cart"
	"github.com/arjunvnair/modakart-backend/internal/coupons"
	"github.com/arjunvnair/modakart-backend/internal/inventory"
	"github.com/arjunvnair/modakart-backend/internal/offers"
	"github.com/arjunvnair/modakart-backend/internal/orders"
	"github.com/arjunvnair/modakart-backend/internal/products"
	"github.com/arjunvnair/modakart-backend/internal/wallet"
	"github.com/arjunvnair/modakart-backend/internal/wishlist"
	"github.com/arjunvnair/modakart-backend/pkg/config"
	"github.com/arjunvnair/modakart-backend/pkg/db"
	"github.com/arjunvnair/modakart-backend/pkg/gateway"
	"github.com/arjunvnair/modakart-backend/pkg/logger"
	"github.com/arjunvnair/modakart-backend/pkg/metrics"
	"github.com/arjunvnair/modakart-backend/pkg/migrate"
	"github.com/arjunvnair/modakart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if cfg.FeatureFlags.AutoMigrate {
		sqlDB, err := dbClient.DB().DB()
		if err != nil {
			logg.Error(context.Background(), "failed to unwrap sql database", err)
			os.Exit(1)
		}
		if err := migrate.Up(context.Background(), sqlDB, migrate.DefaultDir); err != nil {
			logg.Error(context.Background(), "failed to run migrations", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.New(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payment gateway", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	gormDB := dbClient.DB()

	authService, err := authsvc.NewService(authsvc.Deps{
		Repo:        authsvc.NewRepository(gormDB),
		OTPStore:    redisClient,
		JWTConfig:   cfg.JWT,
		PasswordCfg: cfg.Password,
		OTPConfig:   cfg.OTP,
		Logger:      logg,
	})
	requireService(logg, "auth", err)

	productService, err := products.NewService(products.NewRepository(gormDB))
	requireService(logg, "products", err)

	cartService, err := cartsvc.NewService(cartsvc.NewRepository(gormDB), productService)
	requireService(logg, "cart", err)

	wishlistService, err := wishlist.NewService(wishlist.NewRepository(gormDB), productService)
	requireService(logg, "wishlist", err)

	walletService, err := wallet.NewService(wallet.Deps{
		Repo:    wallet.NewRepository(gormDB),
		Tx:      dbClient,
		Gateway: gatewayClient,
		Secret:  cfg.Gateway.Secret,
	})
	requireService(logg, "wallet", err)

	couponService, err := coupons.NewService(coupons.NewRepository(gormDB))
	requireService(logg, "coupons", err)

	offerService, err := offers.NewService(offers.Deps{
		Repo: offers.NewRepository(gormDB),
		Tx:   dbClient,
	})
	requireService(logg, "offers", err)

	addressService, err := addresssvc.NewService(addresssvc.NewRepository(gormDB))
	requireService(logg, "addresses", err)

	stockAdjuster, err := inventory.NewAdjuster(inventory.NewRepository(gormDB))
	requireService(logg, "inventory", err)

	orderService, err := orders.NewService(orders.Deps{
		Repo:      orders.NewRepository(gormDB),
		Tx:        dbClient,
		Stock:     stockAdjuster,
		Wallet:    walletService,
		Coupons:   couponService,
		Carts:     cartService,
		Addresses: addressService,
		Gateway:   gatewayClient,
		Secret:    cfg.Gateway.Secret,
		Flags:     cfg.FeatureFlags,
		Metrics:   lifecycleMetrics,
		Logger:    logg,
	})
	requireService(logg, "orders", err)

	handler := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Auth:      authService,
		Products:  productService,
		Cart:      cartService,
		Wishlist:  wishlistService,
		Orders:    orderService,
		Wallet:    walletService,
		Coupons:   couponService,
		Offers:    offerService,
		Addresses: addressService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := api.NewServer(addr, handler)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create service: "+name, err)
	os.Exit(1)
}
