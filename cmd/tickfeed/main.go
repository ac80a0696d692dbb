package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickbench/config"
	"tickbench/internal/feedsim"
	"tickbench/logger"

	"go.uber.org/zap"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	path := flag.String("path", "/ws", "WebSocket endpoint path")
	format := flag.String("format", "json", "frame format: json or binary")
	count := flag.Int("count", 0, "ticks per connection, 0 streams until the client leaves")
	rate := flag.Int("rate", 0, "ticks per second per connection, 0 is unthrottled")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log, err := logger.New(config.LogConfig{Level: *level, Format: "console", Environment: "dev"})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	f, err := feedsim.ParseFormat(*format)
	if err != nil {
		log.Fatal("invalid format", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle(*path, feedsim.New(feedsim.Config{Format: f, Count: *count, Rate: *rate}, log))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving tick feed",
		zap.String("addr", *addr),
		zap.String("path", *path),
		zap.String("format", string(f)),
		zap.Int("count", *count),
		zap.Int("rate", *rate),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("feed server failed", zap.Error(err))
	}
}
