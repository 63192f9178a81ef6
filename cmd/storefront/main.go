package main

import (
	"context"
	"database/sql"
	"flag"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"FoodMart/internal/admin"
	"FoodMart/internal/app"
	"FoodMart/internal/config"
	"FoodMart/internal/order"
	"FoodMart/internal/store"
	"FoodMart/pkg/kit"
)

func main() {
	configPath := flag.String("config", os.Getenv("FOODMART_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath, os.Environ())
	if err != nil {
		// No logger yet: the level comes from the config.
		zap.NewExample().Fatal("load config failed", zap.Error(err))
	}

	log, err := kit.NewLogger(cfg.Env.Service, cfg.Env.LogLevel, cfg.Env.Development)
	if err != nil {
		zap.NewExample().Fatal("init logger failed", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	st, orders, closeDB, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err))
	}
	defer closeDB()

	if err := store.Seed(ctx, st, store.SeedOptions{
		AdminEmail:    cfg.Seed.AdminEmail,
		AdminPassword: cfg.Seed.AdminPassword,
	}); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := app.NewHandler(
		app.Deps{
			Store:            st,
			Orders:           orders,
			JWT:              admin.NewTokenMaker(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
			AdminCookie:      cfg.Auth.CookieName,
			LoginLimitPerMin: cfg.Auth.LoginLimitPerMin,
			SessionCookie:    cfg.Session.CookieName,
			SessionMaxAge:    cfg.Session.MaxAge,
			MaxBodyBytes:     cfg.HTTP.MaxBodyBytes,
		},
		app.HTTPDeps{
			Log:            log,
			Service:        cfg.Env.Service,
			Registry:       reg,
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsToken:   cfg.Metrics.Token,
		},
	)

	if err := kit.RunHTTPServer(ctx, kit.ServerOptions{
		Addr:              cfg.Addr(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, order.Store, func(), error) {
	opts := []store.Option{store.WithBcryptCost(cfg.Store.BcryptCost)}

	if cfg.Store.Driver == config.DriverMemory {
		log.Info("using in-memory store")
		return store.NewMemStore(opts...), order.NewMemStore(), func() {}, nil
	}

	db, err := store.OpenPostgres(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() { closeQuietly(db, log) }

	ps := store.NewPostgresStore(db, opts...)
	if err := ps.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	po := order.NewPostgresStore(db)
	if err := po.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, nil, err
	}

	log.Info("using postgres store")
	return ps, po, closeDB, nil
}

func closeQuietly(db *sql.DB, log *zap.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("close db failed", zap.Error(err))
	}
}
