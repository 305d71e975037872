package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"watchtower.dev/internal/alerts"
	"watchtower.dev/internal/auth"
	"watchtower.dev/internal/config"
	"watchtower.dev/internal/httpapi"
	"watchtower.dev/internal/migrate"
	"watchtower.dev/internal/obs"
	"watchtower.dev/internal/settings"
	"watchtower.dev/internal/store/sqlstore"
	"watchtower.dev/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatal("load config", zap.Error(err))
	}
	if logger, err := obs.NewLogger(cfg.LogLevel); err == nil {
		obs.SetLogger(logger)
	}
	log := obs.Logger()
	defer func() { _ = log.Sync() }()

	obs.Init()
	build := obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer store.Close()

	if err := prepareDatabase(ctx, store, cfg); err != nil {
		log.Fatal("prepare database", zap.Error(err))
	}

	tokens, err := auth.NewTokens(cfg.AccessSecret, cfg.RefreshSecret,
		auth.WithIssuer(cfg.Issuer),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatal("token signer", zap.Error(err))
	}
	authSvc, err := auth.NewService(store, tokens)
	if err != nil {
		log.Fatal("auth service", zap.Error(err))
	}
	directory, err := auth.NewDirectory(store)
	if err != nil {
		log.Fatal("user directory", zap.Error(err))
	}
	settingsSvc, err := settings.NewService(store)
	if err != nil {
		log.Fatal("settings service", zap.Error(err))
	}

	probe := httpapi.ReadyProbe{Store: store}
	source, err := alertSource(cfg)
	if err != nil {
		log.Fatal("alert source", zap.Error(err))
	}
	events := stream.New()
	if source != nil {
		if sc, ok := source.(*alerts.SearchClient); ok {
			probe.Alerts = sc
		}
		go stream.NewPoller(events, source, cfg.AlertPoll).Run(ctx)
	} else {
		log.Warn("no alert source configured; alert routes answer 503")
	}

	api, err := httpapi.New(httpapi.Options{
		Auth:        authSvc,
		Directory:   directory,
		Settings:    settingsSvc,
		Alerts:      source,
		Stream:      events,
		Ready:       probe,
		Build:       build,
		CORSOrigins: cfg.CORSOrigins,
		RateBurst:   cfg.RateBurst,
		RatePerSec:  cfg.RatePerSec,
	})
	if err != nil {
		log.Fatal("build api", zap.Error(err))
	}

	// No WriteTimeout: alert streams stay open.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	health := httpapi.NewGRPCHealth(probe)
	grpcSrv := grpc.NewServer()
	health.Register(grpcSrv)
	go health.Watch(ctx, 10*time.Second)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal("listen grpc", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}
	go func() {
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc serve", zap.Error(err))
			stop()
		}
	}()

	go func() {
		log.Info("starting watchtower-api",
			zap.String("version", build.Version),
			zap.String("commit", build.Commit),
			zap.String("addr", srv.Addr),
			zap.String("grpc_addr", cfg.GRPCAddr),
			zap.String("db_driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http listen", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
	log.Info("stopped")
}

func prepareDatabase(ctx context.Context, store *sqlstore.Store, cfg *config.Config) error {
	log := obs.Logger()
	mgr, err := migrate.NewManager(store.DB(), store.Dialect())
	if err != nil {
		return err
	}
	applied, err := mgr.Up(ctx)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		log.Info("migrations applied", zap.Strings("files", applied))
	}
	if err := mgr.Seed(ctx); err != nil {
		return err
	}
	n, err := store.NormalizeLegacyRoles(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info("legacy roles normalized", zap.Int64("accounts", n))
	}
	if cfg.SeedFile != "" {
		created, err := store.SeedFromFile(ctx, cfg.SeedFile)
		if err != nil {
			return err
		}
		log.Info("accounts seeded", zap.String("file", cfg.SeedFile), zap.Int("created", created))
	}
	return nil
}

func alertSource(cfg *config.Config) (alerts.Source, error) {
	switch {
	case cfg.AlertsURL != "":
		return alerts.NewSearchClient(cfg.AlertsURL)
	case cfg.AlertsFile != "":
		return alerts.LoadStaticSource(cfg.AlertsFile)
	default:
		return nil, nil
	}
}
