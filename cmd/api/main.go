package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/auth"
	"github.com/SandLosT/Attendant/internal/config"
	"github.com/SandLosT/Attendant/internal/dedup"
	"github.com/SandLosT/Attendant/internal/estimation"
	"github.com/SandLosT/Attendant/internal/history"
	"github.com/SandLosT/Attendant/internal/httpapi"
	"github.com/SandLosT/Attendant/internal/jobs"
	"github.com/SandLosT/Attendant/internal/media"
	"github.com/SandLosT/Attendant/internal/quote"
	"github.com/SandLosT/Attendant/internal/rbac"
	"github.com/SandLosT/Attendant/internal/reply"
	"github.com/SandLosT/Attendant/internal/reporting"
	"github.com/SandLosT/Attendant/internal/whatsapp"
	"github.com/SandLosT/Attendant/internal/workflow"
	"github.com/SandLosT/Attendant/pkg/logger"
	"github.com/SandLosT/Attendant/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var dedupCache dedup.Cache
	var sweeper jobs.Sweeper
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer closeRedis(rdb)
		dedupCache = dedup.NewRedisCache(rdb, "attendant:dedup:")
	} else {
		mem := dedup.NewMemoryCache()
		dedupCache, sweeper = mem, mem
	}

	var objects media.ObjectStore
	if cfg.MinIOEnabled() {
		store, err := media.NewMinioStore(rootCtx, media.MinioConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			log.Error("minio init failed", "err", err)
			os.Exit(1)
		}
		objects = store
	} else {
		log.Warn("MINIO_ENDPOINT not set; photos kept in memory")
		objects = media.NewMemoryStore()
	}

	agendaSvc := agenda.NewService(agenda.NewPostgresStore(db), agenda.Config{
		WeeklyLimit:     cfg.Agenda.WeeklyLimit,
		LookaheadDays:   cfg.Agenda.LookaheadDays,
		DefaultCapacity: cfg.Agenda.DefaultCapacity,
		GenerateDays:    cfg.Agenda.GenerateDays,
		Location:        cfg.Location(),
	}, log)

	quoteSvc := quote.NewService(quote.NewPostgresRepo(db), log)

	engine, err := workflow.NewEngine(workflow.Deps{
		Attendance: attendance.NewService(attendance.NewPostgresRepo(db), cfg.Manual.DefaultMinutes, log),
		Quotes:     quoteSvc,
		Agenda:     agendaSvc,
		Media:      media.NewService(media.NewPostgresRepo(db), objects, log),
		History:    history.NewService(history.NewPostgresRepo(db)),
		Estimator: estimation.NewClient(estimation.Config{
			BaseURL: cfg.Estimation.BaseURL,
			TopK:    cfg.Estimation.TopK,
			Timeout: cfg.Estimation.Timeout,
		}),
		Replies: reply.New(reply.Config{
			APIKey:      cfg.Reply.APIKey,
			BaseURL:     cfg.Reply.BaseURL,
			Model:       cfg.Reply.Model,
			Temperature: cfg.Reply.Temperature,
			Timeout:     cfg.Reply.Timeout,
			ShopContext: cfg.Reply.ShopContext,
		}, log),
		Sender: whatsapp.NewWPPConnectSender(whatsapp.Config{
			BaseURL: cfg.WhatsApp.BaseURL,
			Session: cfg.WhatsApp.Session,
			Token:   cfg.WhatsApp.Token,
		}),
		Logger: log,
	})
	if err != nil {
		log.Error("workflow init failed", "err", err)
		os.Exit(1)
	}

	scheduler := jobs.New(jobs.Config{
		GenerateSchedule: cfg.Agenda.GenerateSchedule,
		SweepSchedule:    cfg.Dedup.SweepSchedule,
		Location:         cfg.Location(),
	}, agendaSvc, sweeper, log)
	if res, err := scheduler.GenerateNow(rootCtx); err != nil {
		log.Warn("initial slot generation failed", "err", err)
	} else {
		log.Info("slot horizon ready", "created", res.Created, "existing", res.Existing)
	}
	if err := scheduler.Start(); err != nil {
		log.Error("scheduler start failed", "err", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log, "/healthz"))

	registerPublicRoutes(r, db, whatsapp.WebhookHandler{
		Dispatcher: engine,
		Filter: dedup.NewFilter(dedupCache, dedup.Config{
			IDWindow:   cfg.Dedup.IDWindow,
			HashWindow: cfg.Dedup.HashWindow,
		}),
	})
	registerOwnerRoutes(r, httpapi.Handlers{
		Auth: authManager,
		Owner: auth.Owner{
			Username:     cfg.Auth.OwnerUsername,
			PasswordHash: cfg.Auth.OwnerPasswordHash,
			ShopID:       cfg.Auth.ShopID,
			Role:         rbac.RoleOwner,
		},
		Engine:  engine,
		Agenda:  agendaSvc,
		Reports: reporting.NewService(quoteSvc, agendaSvc, cfg.Location()),
	}, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	log.Info("shutdown complete")
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		slog.Warn("redis close failed", "err", err)
	}
}

func pingDB(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
