package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/consultorio/backend/internal/api"
	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/cache"
	"github.com/consultorio/backend/internal/config"
	"github.com/consultorio/backend/internal/crypto"
	"github.com/consultorio/backend/internal/db"
	"github.com/consultorio/backend/internal/email"
	"github.com/consultorio/backend/internal/insights"
	"github.com/consultorio/backend/internal/logging"
	"github.com/consultorio/backend/internal/meet"
	"github.com/consultorio/backend/internal/middleware"
	"github.com/consultorio/backend/internal/migrate"
	"github.com/consultorio/backend/internal/payments"
	"github.com/consultorio/backend/internal/reminder"
	"github.com/consultorio/backend/internal/seed"
	"github.com/consultorio/backend/internal/storage"
	"github.com/consultorio/backend/migrations"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := db.Open(ctx, cfg.DatabaseURL, db.Options{
		MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns, MaxConnLifetime: cfg.DBMaxConnLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer d.Close()
	applied, err := migrate.Run(ctx, d.Gorm, migrations.FS)
	if err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}
	if len(applied) > 0 {
		logger.Info("migrations aplicadas", zap.Strings("versions", applied))
	}

	loc, err := time.LoadLocation(cfg.ReminderTZ)
	if err != nil {
		logger.Warn("fuso inválido, usando UTC", zap.String("tz", cfg.ReminderTZ), zap.Error(err))
		loc = time.UTC
	}

	if cfg.IsDevelopment() {
		if _, err := seed.Run(ctx, d.Gorm, d.Pool, time.Now().In(loc), logger); err != nil && !errors.Is(err, seed.ErrAlreadySeeded) {
			logger.Warn("seed", zap.Error(err))
		}
	}

	c := newCache(ctx, cfg, logger)

	cipher, err := crypto.NewFieldCipher(cfg.DataEncryptionKeys, cfg.CurrentDataKeyVer)
	if err != nil {
		// sem cifra, CPF e prontuário respondem 503
		logger.Error("chaves de criptografia inválidas", zap.Error(err))
	}

	store, err := storage.NewLocal(cfg.StorageDir, cfg.StoragePublicURL)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}

	mailCfg := email.FromEnv(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFromName, cfg.SMTPFromEmail, logger)
	mailCfg.LogConfigSummary()

	reminderSvc := &reminder.Service{
		Store:          reminder.DBStore{DB: d.Gorm, Pool: d.Pool},
		Sender:         reminder.DefaultSender(cfg.TwilioAccountSid, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom),
		Logger:         logger.Named("reminder"),
		ConfirmBaseURL: cfg.AppPublicURL + "/confirmar",
		Location:       loc,
		DaysAhead:      cfg.ReminderDaysAhead,
	}

	h := &api.Handler{
		DB:       d.Gorm,
		Pool:     d.Pool,
		Cfg:      cfg,
		Logger:   logger,
		Cache:    c,
		Cipher:   cipher,
		Storage:  store,
		Mailer:   mailCfg,
		Payments: &payments.Service{Gateway: payments.NewStripeGateway(cfg.StripeSecretKey), DefaultPriceID: cfg.StripeSubscriptionPriceID},
		Meet:     meet.Local{},
		Reminder: reminderSvc,
		Insights: &insights.Service{
			Source:   insights.DBSource{Pool: d.Pool, DB: d.Gorm},
			Cache:    c,
			Location: loc,
			Logger:   logger.Named("insights"),
		},
		Location: loc,
	}
	h.SetHashPassword(auth.HashPassword)

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Fatal("TRUSTED_PROXIES", zap.Error(err))
	}
	loginLimiter := middleware.NewLimiterStore(cfg.LoginRateRPS, cfg.LoginRateBurst)
	loginLimiter.StartJanitor(ctx, 5*time.Minute)

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.Ping(pingCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	r.PathPrefix("/files/").Handler(http.StripPrefix("/files/", store.Handler()))

	h.Routes(r, loginLimiter)

	chain := middleware.Recover(logger)(
		middleware.RealIP(proxies)(middleware.RequestID(
			middleware.AccessLog(logger)(
				middleware.Timeout(cfg.RequestTimeoutSec)(
					middleware.CORS(cfg.CORSOrigins)(
						middleware.Gzip(r)))))))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("backend listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
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
	logger.Info("backend stopped")
}

// newCache usa Redis quando REDIS_URL está definida; se a conexão falhar, cai para memória.
func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) cache.Cache {
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, time.Minute, logger)
		if err == nil {
			logger.Info("cache: redis")
			return rc
		}
		logger.Warn("cache: redis indisponível, usando memória", zap.Error(err))
	}
	return cache.New(time.Minute)
}
