package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/inference"
	"github.com/konteragroup/kontera/internal/service"
	"github.com/konteragroup/kontera/internal/storage"
	"github.com/spf13/viper"
)

// defaultDBPath returns the configured database path, falling back to the
// standard location under the user's data directory.
func defaultDBPath() (string, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "kontera", "kontera.db")
	}
	return expandPath(dbPath), nil
}

// expandPath expands a leading tilde and environment variables.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// initStorage opens the database and runs pending migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath, err := defaultDBPath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initInference builds the configured inference client.
func initInference() (inference.Client, error) {
	cfg := inference.Config{
		Provider:    viper.GetString("inference.provider"),
		APIKey:      viper.GetString("inference.api_key"),
		Model:       viper.GetString("inference.model"),
		Temperature: viper.GetFloat64("inference.temperature"),
		MaxTokens:   viper.GetInt("inference.max_tokens"),
		Timeout:     viper.GetDuration("inference.timeout"),
		RateLimit:   viper.GetInt("inference.rate_limit"),
	}
	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	client, err := inference.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}
	return client, nil
}

// requireCompany returns the configured company id or an error telling the
// user how to set one.
func requireCompany() (string, error) {
	company := viper.GetString("company")
	if company == "" {
		return "", common.NewUserError("a company id is required: pass --company or set KONTERA_COMPANY", common.ErrMissingConfig)
	}
	return company, nil
}
