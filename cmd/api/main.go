package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/assignment"
	"campus-sentinel/internal/audit"
	"campus-sentinel/internal/auth"
	"campus-sentinel/internal/config"
	"campus-sentinel/internal/demo"
	"campus-sentinel/internal/httpapi"
	"campus-sentinel/internal/notify"
	"campus-sentinel/internal/staff"
	"campus-sentinel/internal/zones"
	"campus-sentinel/pkg/logger"
	"campus-sentinel/pkg/utils"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	rootCtx = logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres open failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis open failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	staffSvc := staff.NewService(db)
	alertSvc := alerts.NewService(db, auditSvc, staffSvc, cfg.Alerts.MaxEscalations)

	zoneSrc := zones.NewCachedSource(zones.MustDefault(), rdb)

	notifySvc := notify.NewService(rdb, staffSvc, notify.Config{
		MaxRetries:  cfg.Notify.MaxRetries,
		BurstLimit:  cfg.Notify.BurstLimit,
		BurstWindow: cfg.Notify.BurstWindow,
	},
		notify.NewLogProvider(notify.ChannelEmail),
		notify.NewLogProvider(notify.ChannelSMS),
		notify.NewLogProvider(notify.ChannelPush),
	)

	engine := assignment.NewEngine(staffSvc, alertSvc, zoneSrc, notifySvc, cfg.Alerts)
	checker := assignment.NewEscalationChecker(engine, alertSvc, cfg.Alerts)
	player := demo.NewPlayer(rootCtx, alertSvc, engine)

	// Background workers stop with the root context.
	go checker.Run(rootCtx, time.Minute)
	go notifySvc.Run(rootCtx, 5*time.Second, 50)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:    authManager,
		Alerts:  alertSvc,
		Staff:   staffSvc,
		Audit:   auditSvc,
		Engine:  engine,
		Checker: checker,
		Notify:  notifySvc,
		Demo:    player,
	}
	registerRoutes(r, h, authManager, db, rdb)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
