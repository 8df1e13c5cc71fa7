package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads .env (if present), decodes the YAML file, applies
// environment overrides for secrets and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Warning: failed to close config file: %v", closeErr)
		}
	}()

	var cfg Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()

	if cfg.SourcesFile != "" && !filepath.IsAbs(cfg.SourcesFile) {
		cfg.SourcesFile = filepath.Join(filepath.Dir(filePath), cfg.SourcesFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

// applyEnv overrides secrets and the listen port from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv("APIFY_API_TOKEN"); v != "" {
		c.Apify.Token = v
	}
	if v := os.Getenv("EXPORT_PASSWORD"); v != "" {
		c.Bot.ExportPassword = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("MSSQL_DSN"); v != "" {
		c.Storage.DSN = v
	}
}
