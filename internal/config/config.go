package config

import (
	"fmt"
	"time"
)

type Config struct {
	HTTP                HTTPConfig          `yaml:"http"`
	Backoff             BackoffConfig       `yaml:"backoff"`
	RateLimit           RateLimitConfig     `yaml:"rate_limit"`
	RobotsCacheTTLHours int                 `yaml:"robots_cache_ttl_hours"`
	Rod                 RodConfig           `yaml:"rod"`
	Relay               RelayConfig         `yaml:"relay"`
	Apify               ApifyConfig         `yaml:"apify"`
	Aggregator          AggregatorConfig    `yaml:"aggregator"`
	Normalize           NormalizeConfig     `yaml:"normalize"`
	Storage             StorageConfig       `yaml:"storage"`
	Bot                 BotConfig           `yaml:"bot"`
	Server              ServerConfig        `yaml:"server"`
	Observability       ObservabilityConfig `yaml:"observability"`
	SourcesFile         string              `yaml:"sources_file"`
}

type HTTPConfig struct {
	UserAgent                 string `yaml:"user_agent"`
	AcceptLanguage            string `yaml:"accept_language"`
	Referer                   string `yaml:"referer"`
	ConnectTimeoutMS          int    `yaml:"connect_timeout_ms"`
	TotalTimeoutMS            int    `yaml:"total_timeout_ms"`
	MaxRetries                int    `yaml:"max_retries"`
	MaxIdleConnections        int    `yaml:"max_idle_connections"`
	MaxIdleConnectionsPerHost int    `yaml:"max_idle_connections_per_host"`
	IdleConnectionTimeoutS    int    `yaml:"idle_connection_timeout_s"`
	RespectRobots             bool   `yaml:"respect_robots"`
}

type BackoffConfig struct {
	MinMS     int `yaml:"min_ms"`
	MaxMS     int `yaml:"max_ms"`
	JitterPct int `yaml:"jitter_pct"`
}

type RateLimitConfig struct {
	MaxConcurrentPerHost int `yaml:"max_concurrent_per_host"`
	RPM                  int `yaml:"rpm"`
}

type RodConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ChromePath        string `yaml:"chrome_path"`
	ControlURL        string `yaml:"control_url"`
	PoolSize          int    `yaml:"pool_size"`
	PageTimeoutS      int    `yaml:"page_timeout_s"`
	WaitTimeoutS      int    `yaml:"wait_timeout_s"`
	ChallengeSelector string `yaml:"challenge_selector"`
	Retries           int    `yaml:"retries"`
	RetryDelayMS      int    `yaml:"retry_delay_ms"`
}

// RelayConfig selects how http-via-relay sources are fetched. Mode "socks5"
// dials through SocksAddr, mode "http" asks the relay at HTTPURL.
type RelayConfig struct {
	Mode            string `yaml:"mode"`
	SocksAddr       string `yaml:"socks_addr"`
	ControlAddr     string `yaml:"control_addr"`
	ControlPassword string `yaml:"control_password"`
	HTTPURL         string `yaml:"http_url"`
	RotateWaitMS    int    `yaml:"rotate_wait_ms"`
}

type ApifyConfig struct {
	BaseURL      string `yaml:"base_url"`
	Token        string `yaml:"token"`
	ActorID      string `yaml:"actor_id"`
	DailyLimit   int    `yaml:"daily_limit"`
	Attempts     int    `yaml:"attempts"`
	RetryDelayMS int    `yaml:"retry_delay_ms"`
	TimeoutS     int    `yaml:"timeout_s"`
}

type AggregatorConfig struct {
	Concurrency      int `yaml:"concurrency"`
	SourceTimeoutS   int `yaml:"source_timeout_s"`
	CategoryTimeoutS int `yaml:"category_timeout_s"`
}

type NormalizeConfig struct {
	TrimNBSP       bool `yaml:"trim_nbsp"`
	CollapseSpaces bool `yaml:"collapse_spaces"`
	MaxTitleRunes  int  `yaml:"max_title_runes"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	Path             string `yaml:"path"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type BotConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Token          string `yaml:"token"`
	ExportPassword string `yaml:"export_password"`
	PollTimeoutS   int    `yaml:"poll_timeout_s"`
	Debug          bool   `yaml:"debug"`
}

type ServerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Port          string `yaml:"port"`
	ProxyTimeoutS int    `yaml:"proxy_timeout_s"`
}

type ObservabilityConfig struct {
	LogPath       string `yaml:"log_path"`
	LogLevel      string `yaml:"log_level"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
	MetricsPath   string `yaml:"metrics_path"`
}

// Validation
func (c *Config) Validate() error {
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("http.connect_timeout_ms must be > 0")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.RateLimit.MaxConcurrentPerHost <= 0 {
		return fmt.Errorf("rate_limit.max_concurrent_per_host must be > 0")
	}
	if c.RateLimit.RPM <= 0 {
		return fmt.Errorf("rate_limit.rpm must be > 0")
	}
	if c.Backoff.MinMS <= 0 {
		return fmt.Errorf("backoff.min_ms must be > 0")
	}
	if c.Backoff.MaxMS <= 0 {
		return fmt.Errorf("backoff.max_ms must be > 0")
	}
	if c.Backoff.MinMS > c.Backoff.MaxMS {
		return fmt.Errorf("backoff.min_ms must be <= backoff.max_ms")
	}
	if c.Backoff.JitterPct < 0 || c.Backoff.JitterPct > 100 {
		return fmt.Errorf("backoff.jitter_pct must be between 0 and 100")
	}
	if c.HTTP.RespectRobots && c.RobotsCacheTTLHours <= 0 {
		return fmt.Errorf("robots_cache_ttl_hours must be > 0 when http.respect_robots is true")
	}
	if c.Rod.Enabled {
		if c.Rod.PoolSize <= 0 {
			return fmt.Errorf("rod.pool_size must be > 0")
		}
		if c.Rod.PageTimeoutS <= 0 {
			return fmt.Errorf("rod.page_timeout_s must be > 0")
		}
		if c.Rod.WaitTimeoutS <= 0 {
			return fmt.Errorf("rod.wait_timeout_s must be > 0")
		}
		if c.Rod.Retries < 0 {
			return fmt.Errorf("rod.retries must be >= 0")
		}
	}
	switch c.Relay.Mode {
	case "":
	case "socks5":
		if c.Relay.SocksAddr == "" {
			return fmt.Errorf("relay.socks_addr is required when relay.mode is 'socks5'")
		}
	case "http":
		if c.Relay.HTTPURL == "" {
			return fmt.Errorf("relay.http_url is required when relay.mode is 'http'")
		}
	default:
		return fmt.Errorf("relay.mode must be 'socks5' or 'http'")
	}
	if c.Apify.Token != "" {
		if c.Apify.BaseURL == "" || c.Apify.ActorID == "" {
			return fmt.Errorf("apify.base_url and apify.actor_id are required when a token is set")
		}
		if c.Apify.Attempts <= 0 {
			return fmt.Errorf("apify.attempts must be > 0")
		}
	}
	if c.Apify.DailyLimit < 0 {
		return fmt.Errorf("apify.daily_limit must be >= 0")
	}
	if c.Aggregator.Concurrency <= 0 {
		return fmt.Errorf("aggregator.concurrency must be > 0")
	}
	if c.Aggregator.SourceTimeoutS <= 0 {
		return fmt.Errorf("aggregator.source_timeout_s must be > 0")
	}
	if c.Aggregator.CategoryTimeoutS < c.Aggregator.SourceTimeoutS {
		return fmt.Errorf("aggregator.category_timeout_s must be >= aggregator.source_timeout_s")
	}
	if c.Normalize.MaxTitleRunes < 0 {
		return fmt.Errorf("normalize.max_title_runes must be >= 0")
	}
	switch c.Storage.Driver {
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required when storage.driver is 'file'")
		}
	case "mssql":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when storage.driver is 'mssql'")
		}
		if c.Storage.CommandTimeoutMS <= 0 {
			return fmt.Errorf("storage.command_timeout_ms must be > 0")
		}
	default:
		return fmt.Errorf("storage.driver must be 'file' or 'mssql'")
	}
	if c.Bot.Enabled && c.Bot.Token == "" {
		return fmt.Errorf("bot.token (TELEGRAM_TOKEN) is required when bot.enabled is true")
	}
	if c.Server.Enabled && c.Server.Port == "" {
		return fmt.Errorf("server.port is required when server.enabled is true")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	return nil
}

// Getters
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutMS) * time.Millisecond
}

func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetIdleConnectionTimeout() time.Duration {
	return time.Duration(c.HTTP.IdleConnectionTimeoutS) * time.Second
}

func (c *Config) GetBackoffMin() time.Duration {
	return time.Duration(c.Backoff.MinMS) * time.Millisecond
}

func (c *Config) GetBackoffMax() time.Duration {
	return time.Duration(c.Backoff.MaxMS) * time.Millisecond
}

func (c *Config) GetRobotsCacheTTL() time.Duration {
	return time.Duration(c.RobotsCacheTTLHours) * time.Hour
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetRodWaitTimeout() time.Duration {
	return time.Duration(c.Rod.WaitTimeoutS) * time.Second
}

func (c *Config) GetRodRetryDelay() time.Duration {
	return time.Duration(c.Rod.RetryDelayMS) * time.Millisecond
}

func (c *Config) GetRelayRotateWait() time.Duration {
	return time.Duration(c.Relay.RotateWaitMS) * time.Millisecond
}

func (c *Config) GetApifyRetryDelay() time.Duration {
	return time.Duration(c.Apify.RetryDelayMS) * time.Millisecond
}

func (c *Config) GetApifyTimeout() time.Duration {
	return time.Duration(c.Apify.TimeoutS) * time.Second
}

func (c *Config) GetSourceTimeout() time.Duration {
	return time.Duration(c.Aggregator.SourceTimeoutS) * time.Second
}

func (c *Config) GetCategoryTimeout() time.Duration {
	return time.Duration(c.Aggregator.CategoryTimeoutS) * time.Second
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetBotPollTimeout() time.Duration {
	return time.Duration(c.Bot.PollTimeoutS) * time.Second
}

func (c *Config) GetProxyTimeout() time.Duration {
	return time.Duration(c.Server.ProxyTimeoutS) * time.Second
}
