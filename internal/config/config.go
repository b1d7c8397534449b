// Package config loads runtime settings for the server and the CLI.
//
// SOURCES, IN PRIORITY ORDER:
//  1. Real environment variables
//  2. A .env file in the working directory (loaded by godotenv, never
//     overriding variables that are already set)
//  3. Defaults registered with viper below
//
// PLACEHOLDER CREDENTIALS:
// The GitHub OAuth app needs a client id and secret. When they are missing
// we substitute obvious placeholders so the server still boots and pages
// still render; login simply won't work. Every substitution is recorded in
// Config.Fallbacks so callers can warn about it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	PlaceholderClientID = "dummy_client_id"
	PlaceholderSecret   = "dummy_secret"

	DefaultSiteDomain = "127.0.0.1:8000"
	DefaultSiteName   = "Starminder Local"
)

// Environment variable names.
const (
	keyPort                = "PORT"
	keyDBPath              = "DB_PATH"
	keyJWTSecret           = "JWT_SECRET"
	keyGitHubClientID      = "GITHUB_CLIENT_ID"
	keyGitHubSecret        = "GITHUB_SECRET"
	keyGitHubCallbackURL   = "GITHUB_CALLBACK_URL"
	keyGitHubToken         = "GITHUB_TOKEN"
	keyGitHubAPIURL        = "GITHUB_API_URL"
	keySiteDomain          = "SITE_DOMAIN_NAME"
	keySiteName            = "SITE_DISPLAY_NAME"
	keyOpenAIAPIKey        = "OPENAI_API_KEY"
	keyOpenAIBaseURL       = "OPENAI_BASE_URL"
	keyEmbeddingModel      = "EMBEDDING_MODEL"
	keyEmbeddingDimensions = "EMBEDDING_DIMENSIONS"
	keyAnalysisWorkers     = "ANALYSIS_WORKERS"
	keyReminderSize        = "REMINDER_SIZE"
	keySearchRefresh       = "SEARCH_REFRESH_INTERVAL"
)

type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	GitHubClientID    string
	GitHubSecret      string
	GitHubCallbackURL string
	GitHubToken       string // personal token used by the CLI import
	GitHubAPIURL      string

	SiteDomain string
	SiteName   string

	OpenAIAPIKey        string
	OpenAIBaseURL       string
	EmbeddingModel      string
	EmbeddingDimensions int

	AnalysisWorkers int
	ReminderSize    int

	// SearchRefresh is how often the server rebuilds its search index.
	SearchRefresh time.Duration

	// Fallbacks lists the variables that were missing and replaced by a placeholder.
	Fallbacks []string
}

// Load reads configuration. envFiles defaults to ".env"; a missing file is
// not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(keyPort, 8080)
	v.SetDefault(keyDBPath, "data/starminder.db")
	v.SetDefault(keyGitHubAPIURL, "https://api.github.com")
	v.SetDefault(keySiteDomain, DefaultSiteDomain)
	v.SetDefault(keySiteName, DefaultSiteName)
	v.SetDefault(keyOpenAIBaseURL, "https://api.openai.com/v1")
	v.SetDefault(keyEmbeddingModel, "text-embedding-3-large")
	v.SetDefault(keyEmbeddingDimensions, 3072)
	v.SetDefault(keyAnalysisWorkers, 4)
	v.SetDefault(keyReminderSize, 5)
	v.SetDefault(keySearchRefresh, "5m")

	cfg := &Config{
		Port:                v.GetInt(keyPort),
		DBPath:              v.GetString(keyDBPath),
		JWTSecret:           v.GetString(keyJWTSecret),
		GitHubClientID:      v.GetString(keyGitHubClientID),
		GitHubSecret:        v.GetString(keyGitHubSecret),
		GitHubCallbackURL:   v.GetString(keyGitHubCallbackURL),
		GitHubToken:         v.GetString(keyGitHubToken),
		GitHubAPIURL:        v.GetString(keyGitHubAPIURL),
		SiteDomain:          v.GetString(keySiteDomain),
		SiteName:            v.GetString(keySiteName),
		OpenAIAPIKey:        v.GetString(keyOpenAIAPIKey),
		OpenAIBaseURL:       v.GetString(keyOpenAIBaseURL),
		EmbeddingModel:      v.GetString(keyEmbeddingModel),
		EmbeddingDimensions: v.GetInt(keyEmbeddingDimensions),
		AnalysisWorkers:     v.GetInt(keyAnalysisWorkers),
		ReminderSize:        v.GetInt(keyReminderSize),
		SearchRefresh:       v.GetDuration(keySearchRefresh),
	}

	if cfg.GitHubClientID == "" {
		cfg.GitHubClientID = PlaceholderClientID
		cfg.Fallbacks = append(cfg.Fallbacks, keyGitHubClientID)
	}
	if cfg.GitHubSecret == "" {
		cfg.GitHubSecret = PlaceholderSecret
		cfg.Fallbacks = append(cfg.Fallbacks, keyGitHubSecret)
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would make the process misbehave rather
// than merely run degraded.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: %s must be between 1 and 65535, got %d", keyPort, c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: %s must not be empty", keyDBPath)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("config: %s must be positive, got %d", keyEmbeddingDimensions, c.EmbeddingDimensions)
	}
	if c.SearchRefresh <= 0 {
		return fmt.Errorf("config: %s must be a positive duration, got %s", keySearchRefresh, c.SearchRefresh)
	}
	if c.AnalysisWorkers <= 0 {
		return fmt.Errorf("config: %s must be positive, got %d", keyAnalysisWorkers, c.AnalysisWorkers)
	}
	return nil
}

// UsingPlaceholderCredentials reports whether GitHub login is running on
// placeholder credentials.
func (c *Config) UsingPlaceholderCredentials() bool {
	return len(c.Fallbacks) > 0
}

// AuthEnabled reports whether JWT sessions can be issued.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// EmbeddingsEnabled reports whether the analysis pipeline can call the
// embeddings API.
func (c *Config) EmbeddingsEnabled() bool {
	return c.OpenAIAPIKey != ""
}
