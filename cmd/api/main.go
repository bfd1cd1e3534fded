package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/config"
	"github.com/georgemunganga/tillkeeper/internal/middleware"
	"github.com/georgemunganga/tillkeeper/internal/modules/audit"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
	"github.com/georgemunganga/tillkeeper/internal/modules/businessday"
	"github.com/georgemunganga/tillkeeper/internal/modules/pos"
	"github.com/georgemunganga/tillkeeper/internal/modules/shift"
	"github.com/georgemunganga/tillkeeper/internal/modules/store"
	"github.com/georgemunganga/tillkeeper/internal/modules/user"
	"github.com/georgemunganga/tillkeeper/internal/platform/cache"
	"github.com/georgemunganga/tillkeeper/internal/platform/database"
	"github.com/georgemunganga/tillkeeper/internal/platform/lock"
	"github.com/georgemunganga/tillkeeper/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to postgres")

	if cfg.MigrateOnStart {
		migrator, err := database.NewMigrator(db, logger)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			return err
		}
	}

	// ── Redis: report cache and optional lock backend ───────
	var (
		reports cache.Cache = cache.Noop{}
		locker  lock.Locker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		reports = cache.NewRedis(rdb, cfg.ReportCacheTTL, logger)
		if cfg.LockBackend == config.LockBackendRedis {
			lockOpts := lock.DefaultRedisOptions()
			lockOpts.Expiry = cfg.LockExpiry()
			locker = lock.NewRedisLocker(rdb, lockOpts, logger)
		}
	}
	logger.Info("terminal lock backend", zap.String("backend", cfg.LockBackend), zap.Duration("redis_lock_expiry", cfg.LockExpiry()))

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(logging.RequestLogger(logger))
	router.Use(chimw.Recoverer)

	access := auth.NewRoleAccessControl()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo, logger)
	authService := auth.NewService(userRepo, tokens, logger)
	auth.NewHandler(authService, logger).RegisterRoutes(router)

	// ── Directory ───────────────────────────────────────────
	stores := store.NewStorePostgresRepository(db)
	terminals := store.NewTerminalPostgresRepository(db)
	cashiers := store.NewCashierPostgresRepository(db)
	storeService := store.NewService(stores, terminals, cashiers, logger)

	// ── Shifts, business days and sales ─────────────────────
	shiftService := shift.NewService(shift.Dependencies{
		Shifts: shift.NewPostgresRepository(db),
		UnitOfWork: shift.NewPostgresUnitOfWork(db, locker, shift.Timeouts{
			Tx:        cfg.TxTimeout,
			Lock:      cfg.LockTimeout,
			Statement: cfg.StatementTimeout,
		}, logger),
		Directory:  store.NewDirectory(stores, terminals, cashiers),
		Access:     access,
		Associator: businessday.NewAssociator(logger),
		Engine: shift.NewEngine(shift.VariancePolicy{
			AbsoluteThreshold: cfg.VarianceAbsoluteThreshold,
			PercentThreshold:  cfg.VariancePercentThreshold,
		}),
		Cache:  reports,
		Logger: logger,
	})
	posService := pos.NewService(pos.Dependencies{
		Transactions: pos.NewPostgresRepository(db),
		Transactor:   pos.NewPostgresTransactor(db, cfg.LockTimeout, cfg.StatementTimeout, logger),
		Shifts:       shiftService,
		Access:       access,
		Cache:        reports,
		Currency:     cfg.Currency,
		Logger:       logger,
	})
	businessDayService := businessday.NewService(businessday.NewPostgresRepository(db), access)
	auditService := audit.NewService(audit.NewPostgresRepository(db), access)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(tokens, logger))

		store.NewHandler(storeService, logger).RegisterRoutes(r)
		shift.NewHandler(shiftService, logger).RegisterRoutes(r)
		pos.NewHandler(posService, logger).RegisterRoutes(r)
		businessday.NewHandler(businessDayService, logger).RegisterRoutes(r)
		audit.NewHandler(auditService, logger).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(access, auth.ScopeStaffManage, logger))
			user.NewHandler(userService, logger).RegisterRoutes(r)
		})
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// ── Start Server ─────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("tillkeeper api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
