package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultMaxUploadBytes  = 10 << 20
	defaultContextMaxChars = 6000
	defaultSessionTTL      = 7 * 24 * time.Hour
	defaultDevJWTSecret    = "dev-secret"
)

// Config holds application configuration. It is assembled once by Load and
// passed by value into every component constructor.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string
	DB              DBPool

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	JWTSecret  string
	SessionTTL time.Duration
	CookieName string

	MaxUploadBytes  int64
	ContextMaxChars int

	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMMaxTokens  int
	LLMTimeout    time.Duration
	LLMRatePerSec float64
	PromptVersion string

	ChatRatePerMinute int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// DBPool overrides database pool defaults. Zero fields keep the defaults of
// whichever process opens the pool.
type DBPool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	ConnectAttempts int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	if path := strings.TrimSpace(os.Getenv("ENV_FILE")); path != "" {
		loadEnvFiles(path)
	} else {
		loadEnvFiles(".env", "cmd/.env")
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" && env != "production" {
		jwtSecret = defaultDevJWTSecret
	}

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:        dbURL,
		DB: DBPool{
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 0),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 0),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 0),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 0),
			PingTimeout:     getEnvDuration("DB_PING_TIMEOUT", 0),
			ConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 0),
		},
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./uploads"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		JWTSecret:          jwtSecret,
		SessionTTL:         getEnvDuration("SESSION_TTL", defaultSessionTTL),
		CookieName:         getEnv("SESSION_COOKIE", "token"),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		ContextMaxChars:    getEnvInt("CONTEXT_MAX_CHARS", defaultContextMaxChars),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:          apiKey,
		LLMModel:           getEnv("LLM_MODEL", "openai/gpt-oss-20b"),
		LLMMaxTokens:       getEnvInt("LLM_MAX_TOKENS", 700),
		LLMTimeout:         getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		LLMRatePerSec:      getEnvFloat("LLM_RATE_PER_SECOND", 5),
		PromptVersion:      getEnv("PROMPT_VERSION", "grounded-v1"),
		ChatRatePerMinute:  getEnvInt("CHAT_RATE_PER_MINUTE", 30),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

// IsProduction reports whether cookies and secrets must be hardened.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local", "":
		return true
	default:
		return false
	}
}

// loadEnvFiles loads KEY=VALUE pairs from the given files if they exist.
// Variables already present in the environment win.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("config env file %s unreadable: %v", path, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config env %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
