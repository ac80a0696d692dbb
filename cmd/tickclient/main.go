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
	"tickbench/internal/controller"
	"tickbench/internal/observer"
	"tickbench/internal/session"
	"tickbench/logger"
	"tickbench/pkg/storage/postgres"
	"tickbench/pkg/wsfeed"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search ./config)")
	url := flag.String("url", "", "feed URL, overrides feed.url")
	duration := flag.Duration("duration", 0, "stop after this long, 0 runs until the feed ends or a signal")
	flag.Parse()

	// viper config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if *url != "" {
		cfg.Feed.URL = *url
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log, *duration); err != nil {
		log.Error("tickclient failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, duration time.Duration) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	observers, err := buildObservers(cfg, log, reg)
	defer func() {
		if cerr := observers.Close(); cerr != nil {
			log.Warn("failed to close observers", zap.Error(cerr))
		}
	}()
	if err != nil {
		return err
	}

	ctrl := controller.New(
		controller.WebSocketDialer(wsfeed.NewDialer(cfg.Feed.WriteTimeout, log)),
		observers,
		session.Options{
			ClientID:       cfg.Feed.ClientID,
			SampleEvery:    cfg.Reporter.SampleEvery,
			ReportInterval: cfg.Reporter.Interval,
			Logger:         log,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("tickclient starting",
		zap.String("url", cfg.Feed.URL),
		zap.String("client_id", cfg.Feed.ClientID),
		zap.String("env", cfg.Env),
	)
	if err := ctrl.Start(cfg.Feed.URL); err != nil {
		return err
	}

	g := new(errgroup.Group)

	g.Go(func() error {
		defer cancel()
		return ctrl.Wait(context.Background())
	})

	g.Go(func() error {
		<-runCtx.Done()
		ctrl.Stop()
		return nil
	})

	if cfg.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", zap.String("listen", cfg.Metrics.Listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cancel()
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-runCtx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	final := ctrl.State()
	log.Info("tickclient finished",
		zap.Stringer("state", final),
		zap.Uint64("total_messages", ctrl.Bank().Total()),
	)
	if final == session.StateErrored {
		return errors.New("feed session ended with an error")
	}
	return nil
}

// buildObservers assembles the configured sinks. The returned Multi is valid even on error so
// the caller can close whatever was opened.
func buildObservers(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (observer.Multi, error) {
	obs := observer.Multi{observer.NewLog(log)}

	prom, err := observer.NewPrometheus(reg)
	if err != nil {
		return obs, err
	}
	obs = append(obs, prom)

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return obs, err
		}
		obs = append(obs, observer.NewRedis(client, cfg.Redis.Channel, log))
		log.Info("publishing events to redis", zap.String("addr", cfg.Redis.Addr), zap.String("channel", cfg.Redis.Channel))
	}

	if cfg.Postgres.Enabled {
		pg, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Env, true)
		if err != nil {
			return obs, err
		}
		obs = append(obs, observer.NewStatus(pg, cfg.Feed.ClientID, 2*time.Second, log))
		log.Info("persisting status to postgres", zap.String("dbname", cfg.Postgres.DBName))
	}

	return obs, nil
}
