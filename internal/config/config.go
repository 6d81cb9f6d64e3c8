package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Pressroom server.
type Config struct {
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	ShutdownGrace time.Duration

	// Content store settings.
	GitHubToken   string
	GitHubAPIURL  string
	ContentRepo   string
	ContentBranch string
	StoreTimeout  time.Duration

	// Published site layout.
	SiteBaseURL  string
	ArticlesPath string
	PagesDir     string
	ShareDir     string
}

const (
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultShutdownGrace = 10 * time.Second
	defaultGitHubAPIURL  = "https://api.github.com"
	defaultBranch        = "main"
	defaultStoreTimeout  = 8 * time.Second
	defaultArticlesPath  = "articles.json"
	defaultPagesDir      = "article"
	defaultShareDir      = "share"
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		ShutdownGrace: defaultShutdownGrace,
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL:  getEnv("GITHUB_API_URL", defaultGitHubAPIURL),
		ContentRepo:   os.Getenv("CONTENT_REPO"),
		ContentBranch: getEnv("CONTENT_BRANCH", defaultBranch),
		SiteBaseURL:   strings.TrimRight(os.Getenv("SITE_BASE_URL"), "/"),
		ArticlesPath:  getEnv("ARTICLES_PATH", defaultArticlesPath),
		PagesDir:      getEnv("PAGES_DIR", defaultPagesDir),
		ShareDir:      getEnv("SHARE_DIR", defaultShareDir),
	}

	if cfg.GitHubToken == "" {
		return nil, eris.New("GITHUB_TOKEN is required")
	}

	if cfg.ContentRepo == "" {
		return nil, eris.New("CONTENT_REPO is required (owner/name)")
	}
	if parts := strings.Split(cfg.ContentRepo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, eris.Errorf("invalid CONTENT_REPO value: %s", cfg.ContentRepo)
	}

	if cfg.SiteBaseURL == "" {
		return nil, eris.New("SITE_BASE_URL is required")
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	timeoutValue := getEnv("STORE_TIMEOUT", defaultStoreTimeout.String())
	timeout, err := time.ParseDuration(timeoutValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid STORE_TIMEOUT value: %s", timeoutValue)
	}
	if timeout <= 0 {
		return nil, eris.Errorf("STORE_TIMEOUT must be positive, got %s", timeoutValue)
	}
	cfg.StoreTimeout = timeout

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
