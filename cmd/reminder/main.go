// Command reminder envia os lembretes de sessão por WhatsApp.
//
//	reminder          roda uma vez para a data-alvo e sai (cron)
//	reminder serve    expõe POST /trigger para um agendador externo
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/consultorio/backend/internal/config"
	"github.com/consultorio/backend/internal/db"
	"github.com/consultorio/backend/internal/logging"
	"github.com/consultorio/backend/internal/migrate"
	"github.com/consultorio/backend/internal/reminder"
	"github.com/consultorio/backend/migrations"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("reminder")

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: 4}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer d.Close()
	if _, err := migrate.Run(ctx, d.Gorm, migrations.FS); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.ReminderTZ)
	if err != nil {
		logger.Warn("REMINDER_CRON_TZ inválido, usando UTC", zap.String("tz", cfg.ReminderTZ), zap.Error(err))
		loc = time.UTC
	}
	svc := &reminder.Service{
		Store:          reminder.DBStore{DB: d.Gorm, Pool: d.Pool},
		Sender:         reminder.DefaultSender(cfg.TwilioAccountSid, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom),
		Logger:         logger,
		ConfirmBaseURL: cfg.AppPublicURL + "/confirmar",
		Location:       loc,
		DaysAhead:      cfg.ReminderDaysAhead,
	}

	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve(ctx, svc, cfg, logger)
		return
	}

	res, err := svc.Run(ctx, nil)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		d.Close()
		os.Exit(1)
	}
	logger.Info("done", zap.Int("sent", res.Sent), zap.Int("skipped", res.Skipped), zap.String("date", res.Date))
}

func serve(ctx context.Context, svc *reminder.Service, cfg *config.Config, logger *zap.Logger) {
	if cfg.ReminderAPIKey == "" {
		logger.Warn("REMINDER_API_KEY vazio: /trigger aceita qualquer chamada")
	}
	srv := &http.Server{
		Addr:         ":" + cfg.ReminderPort,
		Handler:      reminder.NewServer(svc, cfg.ReminderAPIKey, logger).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
	go func() {
		logger.Info("listening", zap.String("port", cfg.ReminderPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
