package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env               string
	LogLevel          string
	Port              string
	DatabaseURL       string
	DBMaxConns        int
	DBMinConns        int
	DBMaxConnLifetime time.Duration
	RequestTimeoutSec int
	JWTSecret         []byte
	CORSOrigins       []string
	// Criptografia de campos sensíveis (CPF, prontuário)
	DataEncryptionKeys string
	CurrentDataKeyVer  string
	SMTPHost           string
	SMTPPort           string
	SMTPUser           string
	SMTPPass           string
	SMTPFromName       string
	SMTPFromEmail      string
	AppPublicURL       string
	BackendPublicURL   string
	// WhatsApp (Twilio) para lembretes de sessão
	TwilioAccountSid   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string
	// Job de lembretes
	ReminderAPIKey    string
	ReminderTZ        string
	ReminderDaysAhead int
	ReminderPort      string
	// Stripe
	StripeSecretKey           string
	StripeSubscriptionPriceID string
	// Cache: vazio = memória local
	RedisURL string
	// Arquivos (avatar, materiais)
	StorageDir       string
	StoragePublicURL string
	// Proxies cujo X-Forwarded-For é confiável (CIDR ou IP)
	TrustedProxies   []string
	LoginRateRPS     float64
	LoginRateBurst   int
	DefaultPixKey    string
}

// Load lê o ambiente. Um .env no diretório atual é carregado antes, se existir;
// variáveis já definidas no processo têm precedência.
func Load() *Config {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		jwtSecret = "default-secret-min-32-chars-required!!"
	}
	backendURL := getEnv("BACKEND_PUBLIC_URL", "http://localhost:8080")
	return &Config{
		Env:                       getEnv("APP_ENV", "production"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		Port:                      getEnv("PORT", "8080"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		DBMaxConns:                getInt("DB_MAX_CONNS", 10),
		DBMinConns:                getInt("DB_MIN_CONNS", 0),
		DBMaxConnLifetime:         getDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		RequestTimeoutSec:         getInt("REQUEST_TIMEOUT_SEC", 30),
		JWTSecret:                 []byte(jwtSecret),
		CORSOrigins:               splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		DataEncryptionKeys:        getEnv("DATA_ENCRYPTION_KEYS", "v1:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="),
		CurrentDataKeyVer:         getEnv("CURRENT_DATA_KEY_VERSION", "v1"),
		SMTPHost:                  getEnv("SMTP_HOST", "localhost"),
		SMTPPort:                  getEnv("SMTP_PORT", "1025"),
		SMTPUser:                  os.Getenv("SMTP_USER"),
		SMTPPass:                  os.Getenv("SMTP_PASS"),
		SMTPFromName:              getEnv("SMTP_FROM_NAME", "Consultório"),
		SMTPFromEmail:             getEnv("SMTP_FROM_EMAIL", "noreply@localhost"),
		AppPublicURL:              getEnv("APP_PUBLIC_URL", "http://localhost:5173"),
		BackendPublicURL:          backendURL,
		TwilioAccountSid:          os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:           os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom:        os.Getenv("TWILIO_WHATSAPP_FROM"),
		ReminderAPIKey:            os.Getenv("REMINDER_API_KEY"),
		ReminderTZ:                getEnv("REMINDER_CRON_TZ", "America/Sao_Paulo"),
		ReminderDaysAhead:         getInt("REMINDER_DAYS_AHEAD", 1),
		ReminderPort:              getEnv("REMINDER_PORT", "8081"),
		StripeSecretKey:           os.Getenv("STRIPE_SECRET_KEY"),
		StripeSubscriptionPriceID: getEnv("STRIPE_SUBSCRIPTION_PRICE_ID", "price_1Sx3a5DP2JlTk2Et44emMCVn"),
		RedisURL:                  os.Getenv("REDIS_URL"),
		StorageDir:                getEnv("STORAGE_DIR", "data/uploads"),
		StoragePublicURL:          getEnv("STORAGE_PUBLIC_URL", backendURL+"/files"),
		TrustedProxies:            splitList(os.Getenv("TRUSTED_PROXIES")),
		LoginRateRPS:              getFloat("LOGIN_RATE_RPS", 0.2),
		LoginRateBurst:            getInt("LOGIN_RATE_BURST", 5),
		DefaultPixKey:             os.Getenv("PIX_KEY"),
	}
}

// IsDevelopment indica ambiente local (logs em console, sem JSON).
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return d
}

func getFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return d
}

func getDuration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return dur
		}
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if t := strings.TrimSpace(o); t != "" {
			out = append(out, t)
		}
	}
	return out
}
