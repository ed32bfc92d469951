package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/example/flexspace/internal/accesstoken"
	"github.com/example/flexspace/internal/application"
	"github.com/example/flexspace/internal/config"
	httptransport "github.com/example/flexspace/internal/http"
	"github.com/example/flexspace/internal/locking"
	"github.com/example/flexspace/internal/persistence/sqlstore"
)

const tokenIssuer = "flexspace"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("flexspace stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until ctx is cancelled or a signal
// arrives. Deferred cleanups always run before it returns.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		configPath  string
		seed        bool
		migrateOnly bool
	)
	flags := pflag.NewFlagSet("flexspace", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to a YAML configuration file")
	flags.BoolVar(&seed, "seed", false, "insert the demo users and spaces when missing")
	flags.BoolVar(&migrateOnly, "migrate-only", false, "apply migrations (and the seed when requested) then exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: cfg.Log.Level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	applied, err := storage.Migrate(ctx, logger)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("database schema ready", "driver", storage.Pool().Dialect(), "applied", len(applied))

	idGenerator := uuid.NewString
	now := time.Now

	if seed {
		created, err := seedDemoData(ctx, seedRepositories{users: storage.Users, spaces: storage.Spaces}, application.HashPassword, idGenerator, now, logger)
		if err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info("demo data seeded", "created", created)
	}
	if migrateOnly {
		return nil
	}

	locker, closeLocker, err := newSpaceLocker(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer closeLocker()

	signer, err := accesstoken.NewSigner(cfg.QR.Secret)
	if err != nil {
		return fmt.Errorf("create access token signer: %w", err)
	}
	tokens, err := application.NewTokenIssuer(cfg.Auth.JWTSecret, tokenIssuer, cfg.Auth.JWTTTL, now)
	if err != nil {
		return fmt.Errorf("create token issuer: %w", err)
	}

	userRepo := newUserRepositoryAdapter(storage.Users)
	spaceRepo := newSpaceRepositoryAdapter(storage.Spaces)
	reservationRepo := newReservationRepositoryAdapter(storage.Reservations)
	accessLogRepo := newAccessLogRepositoryAdapter(storage.AccessLogs)

	authService := application.NewAuthServiceWithLogger(userRepo, tokens, nil, nil, idGenerator, now, logger)
	spaceService := application.NewSpaceServiceWithLogger(spaceRepo, reservationRepo, idGenerator, now, cfg.Location, logger)
	accessService := application.NewAccessService(reservationRepo, accessLogRepo, signer, accesstoken.NewPNGRenderer(), idGenerator, now,
		application.WithDeniedAudit(cfg.QR.AuditDenied),
		application.WithAccessLogger(logger),
	)
	reservationService := application.NewReservationService(reservationRepo, spaceRepo, idGenerator, now,
		application.WithSpaceLocker(locker),
		application.WithQRIssuer(accessService),
		application.WithNotifier(application.NewLogNotifier(logger)),
		application.WithLocation(cfg.Location),
		application.WithReservationLogger(logger),
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, logger),
		Spaces:        httptransport.NewSpaceHandler(spaceService, logger),
		Reservations:  httptransport.NewReservationHandler(reservationService, logger),
		Access:        httptransport.NewAccessHandler(accessService, logger),
		System:        httptransport.NewSystemHandler(storage, now, logger),
		Authenticator: authService,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		Logger:        logger,
		Compress:      true,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("flexspace API listening", "addr", server.Addr, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	// In-flight requests drain before storage is closed.
	<-shutdownDone
	return nil
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig) (*sqlstore.Store, error) {
	dialect, err := sqlstore.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return sqlstore.Open(ctx, sqlstore.Config{Dialect: dialect, DSN: cfg.DSN})
}

// newSpaceLocker returns a Redis lock when an address is configured and an
// in-process keyed mutex otherwise.
func newSpaceLocker(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (application.SpaceLocker, func(), error) {
	if cfg.Addr == "" {
		return locking.NewKeyedMutex(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", cfg.Addr, err)
	}
	logger.Info("using redis admission lock", "addr", cfg.Addr, "db", cfg.DB)

	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}
	return locking.NewRedisLocker(client, locking.RedisOptions{}, logger), closeClient, nil
}
