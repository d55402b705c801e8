package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zulandar/agenda/internal/assistant"
	"github.com/zulandar/agenda/internal/chat"
	"github.com/zulandar/agenda/internal/config"
	"github.com/zulandar/agenda/internal/db"
	"github.com/zulandar/agenda/internal/kv"
	"github.com/zulandar/agenda/internal/metrics"
	"github.com/zulandar/agenda/internal/nlp"
	"github.com/zulandar/agenda/internal/nlp/gemini"
	"github.com/zulandar/agenda/internal/scheduler"
)

// app is the wired process shared by serve and chat.
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	kv        kv.Store
	metrics   *metrics.Metrics
	logger    *zap.Logger
	scheduler *scheduler.Gocron
	assistant *assistant.Assistant
}

// newApp opens persistence and the ephemeral store, then builds the
// assistant around adapter. The caller owns Close.
func newApp(ctx context.Context, cfg *config.Config, adapter chat.Adapter, logger *zap.Logger) (*app, error) {
	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	classifier, err := newClassifier(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		db:      gormDB,
		kv:      store,
		metrics: metrics.New(),
		logger:  logger,
	}

	// Jobs fire into the assistant, which needs the scheduler to exist
	// first; the closure reads a.assistant once jobs start running.
	a.scheduler, err = scheduler.NewGocron(scheduler.GocronOpts{
		Handler: func(ctx context.Context, jobID string, p scheduler.Payload) {
			a.assistant.Deliver(ctx, jobID, p)
		},
		Logger: logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	a.assistant, err = assistant.New(assistant.Opts{
		Config:     cfg,
		DB:         gormDB,
		KV:         store,
		Adapter:    adapter,
		Classifier: classifier,
		Scheduler:  a.scheduler,
		Metrics:    a.metrics,
		Logger:     logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the ephemeral store and the database pool.
func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("close kv store", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// openStore connects to Redis when a URL is configured and falls back to
// the in-process store otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (kv.Store, error) {
	if cfg.Redis.URL == "" {
		logger.Info("using in-process ephemeral store")
		return kv.NewMemory(), nil
	}
	store, err := kv.NewRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return store, nil
}

func newClassifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (nlp.Classifier, error) {
	switch cfg.Classifier.Provider {
	case "gemini":
		return gemini.New(ctx, gemini.Opts{
			APIKey:  cfg.Classifier.APIKey,
			Model:   cfg.Classifier.Model,
			Timeout: config.Seconds(cfg.Classifier.TimeoutSec),
			Logger:  logger,
		})
	case "none":
		logger.Info("classifier disabled, free text will ask for clarification")
		return nlp.Nop{}, nil
	}
	return nil, fmt.Errorf("unsupported classifier provider %q", cfg.Classifier.Provider)
}
