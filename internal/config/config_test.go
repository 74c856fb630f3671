package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so a developer's shell or .env
// file does not leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_ADDR", "ADDR", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_SHUTDOWN_TIMEOUT",
		"DATABASE_URL", "DB_URL", "DATABASE_MAX_IDLE_CONNS", "DATABASE_MAX_OPEN_CONNS",
		"DATABASE_CONN_MAX_LIFETIME", "DATABASE_CONN_MAX_IDLE_TIME", "DATABASE_USE_MOCK", "DATABASE_SEED_DEMO",
		"LOG_LEVEL", "SESSION_LIFETIME", "SESSION_COOKIE_NAME", "SESSION_COOKIE_DOMAIN", "SESSION_COOKIE_SECURE",
		"INVOICE_PARSER_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"INVOICE_PARSER_MODEL", "INVOICE_PARSER_TIMEOUT", "UPLOAD_MAX_BYTES",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestEnvHelpers(t *testing.T) {
	t.Parallel()

	if got := firstNonEmpty("", "  ", "postgres://db", "sqlite://x"); got != "postgres://db" {
		t.Fatalf("firstNonEmpty = %q, want first non blank value", got)
	}
	if got := firstNonEmpty(" ", ""); got != "" {
		t.Fatalf("firstNonEmpty = %q, want empty", got)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"int blank", parseIntWithDefault("", 5), 5},
		{"int garbage", parseIntWithDefault("10MB", 5), 5},
		{"int padded", parseIntWithDefault(" 2048 ", 5), 2048},
		{"duration blank", parseDurationWithDefault("", 90*time.Second), 90 * time.Second},
		{"duration garbage", parseDurationWithDefault("ninety", 90*time.Second), 90 * time.Second},
		{"duration valid", parseDurationWithDefault("45m", time.Hour), 45 * time.Minute},
		{"bool blank keeps true", parseBoolWithDefault("", true), true},
		{"bool garbage keeps false", parseBoolWithDefault("si", false), false},
		{"bool valid", parseBoolWithDefault("1", false), true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":8080" || cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if !cfg.Database.UseMock || cfg.Database.SeedDemo {
		t.Fatalf("expected the mock catalog without a database url: %+v", cfg.Database)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Session.CookieName != "subrecetas_session" || !cfg.Session.CookieSecure || cfg.Session.Lifetime != 12*time.Hour {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Parser.Provider != ProviderMock || cfg.Parser.Timeout != 90*time.Second {
		t.Fatalf("unexpected parser defaults: %+v", cfg.Parser)
	}
	if cfg.Upload.MaxBytes != 10<<20 {
		t.Fatalf("Upload.MaxBytes = %d", cfg.Upload.MaxBytes)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADDR", ":9000")
	t.Setenv("SERVER_ADDR", "127.0.0.1:9100")
	t.Setenv("DB_URL", "postgres://example")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "40")
	t.Setenv("DATABASE_CONN_MAX_IDLE_TIME", "30m")
	t.Setenv("DATABASE_SEED_DEMO", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SESSION_LIFETIME", "45m")
	t.Setenv("SESSION_COOKIE_DOMAIN", " cocina.example.com ")
	t.Setenv("SESSION_COOKIE_SECURE", "false")
	t.Setenv("INVOICE_PARSER_PROVIDER", " Gemini ")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("INVOICE_PARSER_MODEL", "gemini-2.5-flash")
	t.Setenv("INVOICE_PARSER_TIMEOUT", "30s")
	t.Setenv("UPLOAD_MAX_BYTES", "2048")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9100" {
		t.Fatalf("Server.Addr = %q, want SERVER_ADDR to win over ADDR", cfg.Server.Addr)
	}
	if cfg.Database.URL != "postgres://example" || cfg.Database.UseMock || !cfg.Database.SeedDemo {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Database.MaxOpenConns != 40 || cfg.Database.ConnMaxIdleTime != 30*time.Minute {
		t.Fatalf("unexpected pool config: %+v", cfg.Database)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Session.Lifetime != 45*time.Minute || cfg.Session.CookieDomain != "cocina.example.com" || cfg.Session.CookieSecure {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Parser.Provider != ProviderGemini || cfg.Parser.GeminiAPIKey != "g-key" || cfg.Parser.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected parser config: %+v", cfg.Parser)
	}
	if cfg.Parser.Timeout != 30*time.Second || cfg.Upload.MaxBytes != 2048 {
		t.Fatalf("unexpected timeout or upload size: %s %d", cfg.Parser.Timeout, cfg.Upload.MaxBytes)
	}
}

func TestLoadAppliesDotEnvFiles(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that is present, even when empty.
	fromFile := []string{"INVOICE_PARSER_PROVIDER", "OPENAI_API_KEY", "INVOICE_PARSER_MODEL"}
	for _, key := range fromFile {
		os.Unsetenv(key)
	}
	t.Cleanup(func() {
		for _, key := range fromFile {
			os.Unsetenv(key)
		}
	})
	t.Setenv("UPLOAD_MAX_BYTES", "4096")

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	writeEnv := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	writeEnv(".env.local", "INVOICE_PARSER_MODEL=gpt-4.1\n")
	writeEnv(".env", "INVOICE_PARSER_PROVIDER=openai\nOPENAI_API_KEY=sk-from-file\nINVOICE_PARSER_MODEL=gpt-4o-mini\nUPLOAD_MAX_BYTES=1\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Parser.Provider != ProviderOpenAI || cfg.Parser.OpenAIAPIKey != "sk-from-file" {
		t.Fatalf("expected .env values to be applied: %+v", cfg.Parser)
	}
	if cfg.Parser.Model != "gpt-4.1" {
		t.Fatalf("expected .env.local to win over .env, got %q", cfg.Parser.Model)
	}
	if cfg.Upload.MaxBytes != 4096 {
		t.Fatalf("expected the process environment to win over .env, got %d", cfg.Upload.MaxBytes)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown provider", map[string]string{"INVOICE_PARSER_PROVIDER": "tesseract"}},
		{"mock disabled without url", map[string]string{"DATABASE_USE_MOCK": "false"}},
		{"non positive upload size", map[string]string{"UPLOAD_MAX_BYTES": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("Load() error = nil, want error")
			}
		})
	}
}
