package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Invoice parser providers accepted by INVOICE_PARSER_PROVIDER.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config captures the runtime configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Session  SessionConfig
	Parser   ParserConfig
	Upload   UploadConfig
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains the database connection settings. UseMock swaps the
// configured database for a seeded in-memory sqlite catalog.
type DatabaseConfig struct {
	URL             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	UseMock         bool
	SeedDemo        bool
}

// LoggingConfig controls the global log level.
type LoggingConfig struct {
	Level string
}

// SessionConfig configures the cookie session that holds invoice drafts.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// ParserConfig selects and configures the invoice parsing provider.
type ParserConfig struct {
	Provider     string
	OpenAIAPIKey string
	OpenAIURL    string
	GeminiAPIKey string
	Model        string
	Timeout      time.Duration
}

// UploadConfig bounds invoice uploads.
type UploadConfig struct {
	MaxBytes int64
}

// Load inspects the environment, after applying any .env files found in the
// working directory, and builds a Config value.
func Load() (Config, error) {
	if err := loadDotEnv(".env.local", ".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{}

	cfg.Server = ServerConfig{
		Addr: firstNonEmpty(
			os.Getenv("SERVER_ADDR"),
			os.Getenv("ADDR"),
			":8080",
		),
		ReadTimeout:     parseDurationWithDefault(os.Getenv("SERVER_READ_TIMEOUT"), 15*time.Second),
		WriteTimeout:    parseDurationWithDefault(os.Getenv("SERVER_WRITE_TIMEOUT"), 2*time.Minute),
		ShutdownTimeout: parseDurationWithDefault(os.Getenv("SERVER_SHUTDOWN_TIMEOUT"), 10*time.Second),
	}

	dbURL := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("DB_URL"),
		"",
	)
	cfg.Database = DatabaseConfig{
		URL:             dbURL,
		MaxIdleConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_IDLE_CONNS"), 5),
		MaxOpenConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_OPEN_CONNS"), 20),
		ConnMaxLifetime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), time.Hour),
		ConnMaxIdleTime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), 15*time.Minute),
		UseMock:         parseBoolWithDefault(os.Getenv("DATABASE_USE_MOCK"), strings.TrimSpace(dbURL) == ""),
		SeedDemo:        parseBoolWithDefault(os.Getenv("DATABASE_SEED_DEMO"), false),
	}

	cfg.Logging = LoggingConfig{
		Level: strings.ToLower(firstNonEmpty(os.Getenv("LOG_LEVEL"), "info")),
	}

	cfg.Session = SessionConfig{
		Lifetime:     parseDurationWithDefault(os.Getenv("SESSION_LIFETIME"), 12*time.Hour),
		CookieName:   firstNonEmpty(os.Getenv("SESSION_COOKIE_NAME"), "subrecetas_session"),
		CookieDomain: strings.TrimSpace(os.Getenv("SESSION_COOKIE_DOMAIN")),
		CookieSecure: parseBoolWithDefault(os.Getenv("SESSION_COOKIE_SECURE"), true),
	}

	cfg.Parser = ParserConfig{
		Provider:     strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("INVOICE_PARSER_PROVIDER"), ProviderMock))),
		OpenAIAPIKey: strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIURL:    strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		GeminiAPIKey: strings.TrimSpace(firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))),
		Model:        strings.TrimSpace(os.Getenv("INVOICE_PARSER_MODEL")),
		Timeout:      parseDurationWithDefault(os.Getenv("INVOICE_PARSER_TIMEOUT"), 90*time.Second),
	}

	cfg.Upload = UploadConfig{
		MaxBytes: int64(parseIntWithDefault(os.Getenv("UPLOAD_MAX_BYTES"), 10<<20)),
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, fmt.Errorf("server address must not be empty")
	}
	if !cfg.Database.UseMock && strings.TrimSpace(cfg.Database.URL) == "" {
		return Config{}, errors.New("database url must be set when DATABASE_USE_MOCK is disabled")
	}
	switch cfg.Parser.Provider {
	case ProviderMock, ProviderOpenAI, ProviderGemini:
	default:
		return Config{}, fmt.Errorf("unsupported invoice parser provider: %s", cfg.Parser.Provider)
	}
	if cfg.Upload.MaxBytes <= 0 {
		return Config{}, fmt.Errorf("upload max bytes must be positive, got %d", cfg.Upload.MaxBytes)
	}

	return cfg, nil
}

// loadDotEnv applies the first-found values of each file. Variables already
// present in the environment win.
func loadDotEnv(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}
