package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sited-io/websites/internal/api"
	"github.com/sited-io/websites/internal/auth"
	"github.com/sited-io/websites/internal/cloudflare"
	"github.com/sited-io/websites/internal/dns"
	"github.com/sited-io/websites/internal/images"
	"github.com/sited-io/websites/internal/logging"
	"github.com/sited-io/websites/internal/migrations"
	"github.com/sited-io/websites/internal/publisher"
	"github.com/sited-io/websites/internal/repository"
	"github.com/sited-io/websites/internal/scheduler"
	"github.com/sited-io/websites/internal/service"
	"github.com/sited-io/websites/internal/upstream"
	"github.com/sited-io/websites/internal/verification"
	"github.com/sited-io/websites/internal/zitadel"
	"github.com/sited-io/websites/pkg/migration"
	"github.com/sited-io/websites/pkg/runtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the domain sweep",
	Long: `Run the HTTP API and the pending domain sweep until SIGINT or SIGTERM.

Examples:
  websites serve                        # config.yaml, .env and WEBSITES_* variables
  websites serve -c /etc/websites.yaml  # explicit config file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Dir: cfg.Log.Dir, Console: cfg.Log.Console, Level: level})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := runtime.Connect(ctx, &runtime.Config{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := migrateOnStart(ctx, db, logger); err != nil {
			return err
		}
	}
	store := repository.NewStore(db, logger)

	rdb, err := publisher.Connect(cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	s3Client, err := images.NewS3Client(ctx, cfg.Images)
	if err != nil {
		return err
	}

	cdn := cloudflare.New(cfg.Cloudflare.APIURL, cfg.Cloudflare.ZoneID, cfg.Cloudflare.APIToken,
		upstream.Options{Timeout: cfg.Cloudflare.Timeout})
	resolver := dns.NewClient(cfg.DNS.ResolverURL, cfg.DNS.Timeout, nil)
	engine := verification.NewEngine(resolver, cdn, store.Domains, cfg.FallbackDomain, logger)

	sweeps, err := scheduler.New(engine, cfg.Scheduler.Spec, cfg.Scheduler.Timeout, logger)
	if err != nil {
		return err
	}

	svc := service.New(service.Deps{
		Storage:        service.NewStorage(store),
		Apps:           zitadel.New(cfg.Zitadel.APIURL, cfg.Zitadel.ProjectID, cfg.Zitadel.APIToken, upstream.Options{}),
		CDN:            cdn,
		Logos:          images.NewStorage(s3Client, cfg.Images.Bucket, cfg.Images.BaseURL, cfg.Images.MaxSize),
		Events:         publisher.New(rdb, logger),
		Checker:        engine,
		Logger:         logger.Named("service"),
		MainDomain:     cfg.MainDomain,
		FallbackDomain: cfg.FallbackDomain,
	})
	verifier := auth.NewVerifier(cfg.Auth.JWKSURL, cfg.Auth.JWKSHost, cfg.Auth.CacheTTL, nil)

	srv := &http.Server{
		Addr: cfg.HTTP.ListenAddr,
		Handler: api.NewRouter(svc, verifier, store, logger.Named("http"), api.Options{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			MaxUploadSize:  cfg.Images.MaxSize,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	sweeps.Start()
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), sweeps.Shutdown())
	})
	return g.Wait()
}

func migrateOnStart(ctx context.Context, db *runtime.DB, logger *zap.Logger) error {
	all, err := migrations.All()
	if err != nil {
		return err
	}
	executor := migration.NewExecutor(db.Pool())
	if err := executor.Initialize(ctx); err != nil {
		return err
	}
	applied, err := executor.ApplyAll(ctx, all)
	for _, m := range applied {
		logger.Info("migration applied", zap.String("version", m.Version), zap.String("name", m.Name))
	}
	return err
}
