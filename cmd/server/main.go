// Command server runs the complaints API.
//
// @title                      Complaints API
// @version                    1.0
// @description                Bilingual complaint intake: anonymous submission and tracking, and an admin dashboard.
// @BasePath                   /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       apikey
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/HussamZG/shakaoy-650/internal/auth"
	"github.com/HussamZG/shakaoy-650/internal/config"
	"github.com/HussamZG/shakaoy-650/internal/gateway"
	httpapi "github.com/HussamZG/shakaoy-650/internal/http"
	"github.com/HussamZG/shakaoy-650/internal/http/handlers"
	"github.com/HussamZG/shakaoy-650/internal/observability"
	"github.com/HussamZG/shakaoy-650/internal/realtime"
	"github.com/HussamZG/shakaoy-650/internal/repo"
	"github.com/HussamZG/shakaoy-650/internal/services"
	"github.com/HussamZG/shakaoy-650/internal/storage"
	"github.com/HussamZG/shakaoy-650/internal/sysutil"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}
	cfg := config.MustLoad()

	logs := sysutil.SetupLogging(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		File:    cfg.LogFile,
		Service: cfg.OTEL.ServiceName,
	})
	defer logs.Close()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server stopped")
		_ = logs.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, observability.DeploymentOf(cfg))
	if err != nil {
		return err
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(c)
	}()

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(db); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}()
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	authSvc := auth.NewService(db, cfg.Admin.JWTSecret, cfg.Admin.SessionTTL)
	if cfg.Admin.BootstrapEmail != "" {
		created, err := authSvc.EnsureAdmin(ctx, cfg.Admin.BootstrapEmail, cfg.Admin.BootstrapPassword)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("email", cfg.Admin.BootstrapEmail).Msg("bootstrap admin created")
		}
	}

	objects, err := storage.New(ctx, cfg.Storage, cfg.PublicBaseURL)
	if err != nil {
		return err
	}
	broker, err := realtime.New(ctx, cfg.Realtime)
	if err != nil {
		return err
	}
	defer broker.Close()

	gw := gateway.New(db, objects, broker)

	store := services.NewComplaintStore(gw)
	store.MaxMessageRunes = cfg.MaxMessageRunes
	if err := store.SubscribeToChanges(ctx); err != nil {
		return err
	}
	defer store.Close()

	idem := &services.DBIdempotency{DB: db, TTL: cfg.IdempotencyTTL}
	submit := services.NewSubmissionService(gw)
	submit.Idem = idem
	submit.MaxAttachmentBytes = cfg.Storage.MaxBytes
	submit.PhoneRegion = cfg.ContactPhoneRegion

	track := services.NewTrackingService(gw, store)
	admin := services.NewAdminService(gw, store)
	guard := services.NewSessionGuard(authSvc, cfg.Admin.AllowedEmails, cfg.Admin.AllowSessionIdentity)

	var files handlers.FileResolver
	if local, ok := objects.(*storage.LocalStore); ok {
		files = local
	}
	h := handlers.New(submit, track, admin, guard, gw, httpapi.HandlerOptions(cfg, files))

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{Handlers: h, Guard: guard, Idem: idem}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeSessions(ctx, authSvc, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// purgeSessions drops expired admin sessions every interval.
func purgeSessions(ctx context.Context, a *auth.Service, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.PurgeExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired sessions removed")
			}
		}
	}
}
