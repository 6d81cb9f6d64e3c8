package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pressroom/app/internal/article"
	"pressroom/app/internal/config"
	"pressroom/app/internal/gitstore"
	apphttp "pressroom/app/internal/http"
	applog "pressroom/app/internal/log"
)

// Publishing is a human-paced activity; these bounds only stop runaway
// clients and scripted abuse.
const (
	rateLimitPerSecond = 5
	rateLimitBurst     = 10
	rateLimitClientTTL = 5 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	store, err := gitstore.NewClient(gitstore.ClientOptions{
		Token:   cfg.GitHubToken,
		Repo:    cfg.ContentRepo,
		Branch:  cfg.ContentBranch,
		BaseURL: cfg.GitHubAPIURL,
		Timeout: cfg.StoreTimeout,
		Logger:  logger,
	})
	if err != nil {
		return eris.Wrap(err, "creating content store client")
	}

	documents, err := article.NewDocumentStore(store, cfg.ArticlesPath, logger)
	if err != nil {
		return eris.Wrap(err, "building document store")
	}

	articles, err := article.NewService(article.ServiceOptions{
		Documents: documents,
		Artifacts: store,
		Layout: article.SiteLayout{
			BaseURL:  cfg.SiteBaseURL,
			PagesDir: cfg.PagesDir,
			ShareDir: cfg.ShareDir,
		},
		Logger:    logger,
		SentryHub: sentryHub,
	})
	if err != nil {
		return eris.Wrap(err, "creating article service")
	}

	transport, err := apphttp.NewServer(apphttp.Options{
		Articles:  articles,
		Store:     store,
		Logger:    logger,
		SentryHub: sentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			RequestsPerSecond: rateLimitPerSecond,
			Burst:             rateLimitBurst,
			ClientTTL:         rateLimitClientTTL,
		},
	})
	if err != nil {
		return eris.Wrap(err, "initialising http transport")
	}

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.ServerPort),
		Handler: transport.Handler(),
	}

	logger.WithFields(logrus.Fields{
		"addr": httpServer.Addr,
		"repo": cfg.ContentRepo,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	logger.Info("http server shut down cleanly")
	return nil
}
