package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"newsflash-bot/internal/registry"
)

func validConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			UserAgent:        "newsflash-test",
			ConnectTimeoutMS: 1000,
			TotalTimeoutMS:   5000,
			MaxRetries:       1,
		},
		Backoff:    BackoffConfig{MinMS: 100, MaxMS: 1000, JitterPct: 10},
		RateLimit:  RateLimitConfig{MaxConcurrentPerHost: 2, RPM: 60},
		Aggregator: AggregatorConfig{Concurrency: 4, SourceTimeoutS: 10, CategoryTimeoutS: 30},
		Storage:    StorageConfig{Driver: "file", Path: "usage.json"},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing user agent", func(c *Config) { c.HTTP.UserAgent = "" }, "http.user_agent"},
		{"backoff inverted", func(c *Config) { c.Backoff.MinMS = 5000 }, "backoff.min_ms must be <="},
		{"category shorter than source", func(c *Config) { c.Aggregator.CategoryTimeoutS = 5 }, "category_timeout_s"},
		{"unknown relay mode", func(c *Config) { c.Relay.Mode = "vpn" }, "relay.mode"},
		{"socks without addr", func(c *Config) { c.Relay.Mode = "socks5" }, "relay.socks_addr"},
		{"http relay without url", func(c *Config) { c.Relay.Mode = "http" }, "relay.http_url"},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "redis" }, "storage.driver"},
		{"mssql without dsn", func(c *Config) { c.Storage.Driver = "mssql" }, "storage.dsn"},
		{"bot without token", func(c *Config) { c.Bot.Enabled = true }, "TELEGRAM_TOKEN"},
		{"server without port", func(c *Config) { c.Server.Enabled = true }, "server.port"},
		{"apify token without actor", func(c *Config) { c.Apify.Token = "t" }, "apify.base_url"},
		{"rod pool zero", func(c *Config) { c.Rod.Enabled = true }, "rod.pool_size"},
		{"robots without ttl", func(c *Config) { c.HTTP.RespectRobots = true }, "robots_cache_ttl_hours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigShippedFiles(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Bot.Token != "123:abc" {
		t.Errorf("bot token = %q, want env override", cfg.Bot.Token)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want env override", cfg.Server.Port)
	}
	if !strings.HasSuffix(filepath.ToSlash(cfg.SourcesFile), "configs/sources.yaml") {
		t.Errorf("sources_file = %q, want it resolved next to the config", cfg.SourcesFile)
	}

	descs, err := cfg.Sources()
	if err != nil {
		t.Fatalf("Sources error: %v", err)
	}
	if _, err := registry.New(descs); err != nil {
		t.Fatalf("shipped sources are invalid: %v", err)
	}

	attempts := time.Duration(cfg.Rod.Retries + 1)
	browserBudget := attempts*cfg.GetRodPageTimeout() + (attempts-1)*cfg.GetRodRetryDelay()
	for _, d := range descs {
		if d.Strategy != registry.HeadlessBrowser {
			continue
		}
		if d.Timeout() < browserBudget {
			t.Errorf("source %s: timeout %v leaves no room for %d browser attempts (%v)", d.ID, d.Timeout(), cfg.Rod.Retries+1, browserBudget)
		}
		if d.Timeout() > cfg.GetCategoryTimeout() {
			t.Errorf("source %s: timeout %v exceeds the category deadline %v", d.ID, d.Timeout(), cfg.GetCategoryTimeout())
		}
		if d.Wait != nil && d.Wait.Timeout() >= cfg.GetRodPageTimeout() {
			t.Errorf("source %s: wait %v does not fit in one page attempt %v", d.ID, d.Wait.Timeout(), cfg.GetRodPageTimeout())
		}
	}

	defaults := registry.Defaults()
	if len(descs) != len(defaults) {
		t.Fatalf("sources.yaml lists %d sources, defaults %d", len(descs), len(defaults))
	}
	for i := range defaults {
		if !reflect.DeepEqual(descs[i], defaults[i]) {
			t.Errorf("source %s differs between sources.yaml and defaults:\nyaml:     %+v\ndefaults: %+v", defaults[i].ID, descs[i], defaults[i])
		}
	}
}

func TestLoadConfigSecretsFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
http:
  user_agent: "ua"
  connect_timeout_ms: 1000
  total_timeout_ms: 2000
backoff: {min_ms: 100, max_ms: 200}
rate_limit: {max_concurrent_per_host: 1, rpm: 10}
apify: {base_url: "https://api.apify.com/v2", actor_id: "a~b", attempts: 3}
aggregator: {concurrency: 2, source_timeout_s: 5, category_timeout_s: 10}
storage: {driver: mssql, command_timeout_ms: 1000}
observability: {log_level: debug}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("APIFY_API_TOKEN", "apify-secret")
	t.Setenv("EXPORT_PASSWORD", "pw")
	t.Setenv("MSSQL_DSN", "sqlserver://u:p@localhost?database=news")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Apify.Token != "apify-secret" || cfg.Bot.ExportPassword != "pw" {
		t.Errorf("secrets not applied: %+v / %+v", cfg.Apify, cfg.Bot)
	}
	if cfg.Storage.DSN != "sqlserver://u:p@localhost?database=news" {
		t.Errorf("dsn = %q", cfg.Storage.DSN)
	}
	if cfg.SourcesFile != "" {
		t.Errorf("sources_file = %q, want empty", cfg.SourcesFile)
	}

	descs, err := cfg.Sources()
	if err != nil || len(descs) != len(registry.Defaults()) {
		t.Errorf("Sources() = %d, %v; want the defaults", len(descs), err)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http:\n  user_agent: \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "config validation error") {
		t.Errorf("LoadConfig error = %v, want a validation error", err)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
		wantN   int
	}{
		{
			name: "one source",
			content: `sources:
  - id: x
    category: tech
    url: https://x.example/feed
    rule:
      feed: {}
`,
			wantN: 1,
		},
		{name: "empty", content: "sources: []\n", wantErr: "lists no sources"},
		{name: "unknown field", content: "sources:\n  - id: x\n    colour: red\n", wantErr: "failed to parse"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.Repeat("s", i+1)+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			descs, err := LoadSources(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("LoadSources error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadSources error: %v", err)
			}
			if len(descs) != tt.wantN || descs[0].Rule.Feed == nil {
				t.Errorf("descs = %+v", descs)
			}
		})
	}
}
