package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/books-catalog/cmd/api/book"
	"github.com/books-catalog/cmd/api/config"
	bookhttp "github.com/books-catalog/cmd/api/http"
	"github.com/books-catalog/cmd/api/inmemory"
	"github.com/books-catalog/cmd/api/logger"
	"github.com/books-catalog/cmd/api/notifications"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.NewLogger("books-catalog", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}

	var notifier book.Notifier
	if cfg.NotificationsEnabled {
		notifier = notifications.NewNtfy(true, cfg.NotificationsBaseURL, &http.Client{})
	}

	bookService := book.NewService(store, notifier, cfg.NotificationsTimeout, log)
	bookHandler := bookhttp.NewBookHandler(bookService, log, cfg.RequestTimeout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	//create and init http server:
	server := bookhttp.NewServer(bookhttp.ServerConfig{
		Port:           cfg.Port,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
	}, bookHandler)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("unexpected http server error: %w", err)
		}
		close(errCh)
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sc:
		log.Info("shutdown signal", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	}

	ctx, shutdownRelease := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownRelease()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}

	drainCtx, drainRelease := context.WithTimeout(context.Background(), cfg.NotificationsTimeout)
	defer drainRelease()
	if err := bookService.WaitNotifications(drainCtx); err != nil {
		log.Warn("notifications still pending at shutdown", zap.Error(err))
	}
	log.Info("graceful shutdown complete")
	return nil
}
