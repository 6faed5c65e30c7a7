// Command server runs the portfolio contact relay.
//
//	@title			Portfolio Contact API
//	@version		1.0
//	@description	Relays portfolio contact-form submissions to the site owner by email.
//	@BasePath		/api
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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Aman-02003/portfolio-contact/internal/config"
	httpapi "github.com/Aman-02003/portfolio-contact/internal/http"
	"github.com/Aman-02003/portfolio-contact/internal/mail"
	"github.com/Aman-02003/portfolio-contact/internal/observability"
	"github.com/Aman-02003/portfolio-contact/internal/ratelimit"
	"github.com/Aman-02003/portfolio-contact/internal/repo"
	"github.com/Aman-02003/portfolio-contact/internal/services"
	"github.com/Aman-02003/portfolio-contact/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	logger, closeLog, err := sysutil.SetupLogger(sysutil.LogOptions{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	}, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("logger setup failed")
	}
	defer func() { _ = closeLog() }()
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version))
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(sctx)
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open delivery log")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate delivery log")
	}

	store, closeStore := limiterStore(ctx, cfg.ContactRate)
	defer closeStore()

	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Service: cfg.Mail.Service,
		Host:    cfg.Mail.Host,
		Port:    cfg.Mail.Port,
		User:    cfg.Mail.User,
		Pass:    cfg.Mail.Pass,
		From:    cfg.Mail.From,
		Timeout: cfg.Mail.Timeout,
	})
	if !sender.Configured() {
		log.Warn().Msg("EMAIL_USER/EMAIL_PASS not set: contact submissions will fail to send")
	} else if p, err := mail.ResolveProvider(cfg.Mail.Service, cfg.Mail.Host, cfg.Mail.Port); err != nil {
		log.Warn().Err(err).Msg("mail provider unresolved: contact submissions will fail to send")
	} else {
		log.Info().Str("smtp_host", p.Host).Int("smtp_port", p.Port).Msg("mail provider")
	}

	svc := &services.ContactService{
		DB:      db,
		Limiter: ratelimit.New(store, cfg.ContactRate.Window, cfg.ContactRate.Max),
		Dispatcher: mail.NewDispatcher(sender, mail.DispatcherConfig{
			OwnerAddr: cfg.Mail.OwnerAddr,
			OwnerName: cfg.Mail.OwnerName,
			Timeout:   cfg.Mail.Timeout,
		}),
		IdempotencyTTL: cfg.IdempotencyTTL,
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	httpapi.RegisterRoutes(r, db, svc, cfg)

	go purgeIdempotency(ctx, db, time.Hour)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return logger.WithContext(context.Background()) },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("api", cfg.APIBasePath).
			Str("version", version).
			Msg("contact server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// limiterStore builds the contact window store. Redis failures at startup
// fall back to the in-process store so the form keeps working.
func limiterStore(ctx context.Context, rc config.RateLimitConfig) (ratelimit.Store, func()) {
	if rc.Store != "redis" {
		return ratelimit.NewMemoryStore(), func() {}
	}
	rdb, err := ratelimit.NewRedisClient(rc.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid REDIS_URL, using in-memory rate limit store")
		return ratelimit.NewMemoryStore(), func() {}
	}
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, using in-memory rate limit store")
		_ = rdb.Close()
		return ratelimit.NewMemoryStore(), func() {}
	}
	log.Info().Msg("rate limit store: redis")
	return ratelimit.NewRedisStore(rdb), func() { _ = rdb.Close() }
}

// purgeIdempotency drops expired idempotency records every interval until
// ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			l := zerolog.Ctx(ctx)
			if err != nil {
				l.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				l.Debug().Int64("purged", n).Msg("idempotency records expired")
			}
		}
	}
}
