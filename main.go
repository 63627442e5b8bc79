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

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/wbdigital-chatbot/server/internal/agent/augment"
	"github.com/wbdigital-chatbot/server/internal/agent/cache"
	"github.com/wbdigital-chatbot/server/internal/agent/classifier"
	"github.com/wbdigital-chatbot/server/internal/agent/cost"
	"github.com/wbdigital-chatbot/server/internal/agent/generate"
	"github.com/wbdigital-chatbot/server/internal/agent/graph"
	"github.com/wbdigital-chatbot/server/internal/agent/graph/prompts"
	"github.com/wbdigital-chatbot/server/internal/agent/llm"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/notify"
	"github.com/wbdigital-chatbot/server/internal/agent/persist"
	"github.com/wbdigital-chatbot/server/internal/agent/repo"
	"github.com/wbdigital-chatbot/server/internal/agent/tracing"
	"github.com/wbdigital-chatbot/server/internal/api"
	"github.com/wbdigital-chatbot/server/internal/core"
	pkgelastic "github.com/wbdigital-chatbot/server/pkg/elastic"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
	pkgredis "github.com/wbdigital-chatbot/server/pkg/redis"
)

const (
	vectorStoreElastic = "elastic"
	vectorStoreMemory  = "memory"
)

// AppConfig defines all configurable parameters of the chat server,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment     core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string           `envconfig:"LOG_LEVEL"`
	HTTPAddr        string           `envconfig:"HTTP_ADDR" default:":8000"`
	ShutdownTimeout time.Duration    `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	VectorStore     string           `envconfig:"VECTOR_STORE" default:"elastic"`
	BootstrapRetry  time.Duration    `envconfig:"BOOTSTRAP_RETRY_INTERVAL" default:"30s"`

	// Infrastructure
	Redis   pkgredis.Config
	Elastic pkgelastic.Config

	// LLM provider and models
	Provider   model.ProviderConfig
	Classifier model.ClassifierModelConfig
	Response   model.ResponseModelConfig
	Embedding  model.EmbeddingConfig

	// Agent configs
	Prompt   model.ResponsePromptConfig
	Timeouts model.TimeoutConfig
	Cache    model.CacheConfig
	Cost     model.CostConfig
	Revision model.RevisionConfig
	Augment  model.AugmentConfig
	Persist  model.PersistConfig
	Notify   model.NotifyConfig
}

func main() {
	envErr := godotenv.Load(".env")

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Init()
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})
	if envErr != nil {
		logx.Debug().Err(envErr).Msg("no .env file loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg AppConfig) error {
	tp := tracing.NewProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	rdb, err := cfg.Redis.New()
	if err != nil {
		return fmt.Errorf("initialise redis: %w", err)
	}
	defer rdb.Close()
	if err := cfg.Redis.Ping(ctx, rdb); err != nil {
		logx.Warn().Err(err).Msg("Redis unreachable, exact cache and prompt registry degrade to misses")
	} else {
		logx.Info().Msg("Connected to Redis successfully")
	}

	store, err := newVectorStore(ctx, cfg)
	if err != nil {
		return err
	}
	embedder, err := llm.NewEmbedder(ctx, cfg.Embedding, cfg.Provider)
	if err != nil {
		return fmt.Errorf("initialise embedder: %w", err)
	}
	if err := repo.Bootstrap(ctx, store, embedder, cfg.Augment); err != nil {
		logx.Warn().Err(err).Dur("retry_in", cfg.BootstrapRetry).Msg("Vector store bootstrap failed, retrying in background")
		repo.RetryBootstrap(ctx, store, embedder, cfg.Augment, cfg.BootstrapRetry)
	}

	optimizer, err := cost.NewFromConfig(cfg.Cost)
	if err != nil {
		return fmt.Errorf("initialise cost optimizer: %w", err)
	}

	models, err := llm.NewChatModels(ctx, llm.ChatModelConfig{
		Provider:   cfg.Provider,
		Classifier: &cfg.Classifier,
		Response:   &cfg.Response,
	})
	if err != nil {
		return fmt.Errorf("initialise chat models: %w", err)
	}

	var registry prompts.Registry
	if cfg.Prompt.RegistryEnabled {
		registry = prompts.NewRedisRegistry(rdb)
	}
	lib := prompts.NewLibrary(registry)

	rules, err := cache.LoadPatternRules(cfg.Cache.PatternRulesPath)
	if err != nil {
		return fmt.Errorf("load pattern rules: %w", err)
	}

	notifier, err := notify.New(ctx, cfg.Notify, cfg.Timeouts.Notify)
	if err != nil {
		return fmt.Errorf("initialise notifier: %w", err)
	}

	persister := persist.New(store, embedder, cfg.Augment.LogCollection, cfg.Persist, cfg.Timeouts.Persist)

	generator := generate.New(
		llm.NewCompleter(models.Response, models.ResponseModelName, "generate", cfg.Timeouts.Generation, optimizer),
		llm.NewCompleter(models.Response, models.ResponseModelName, "revise", cfg.Timeouts.Revision, optimizer),
		lib, cfg.Prompt, cfg.Response, cfg.Revision,
	)

	runner, err := graph.BuildResponseGraph(ctx, graph.Config{
		Classifier: classifier.New(
			llm.NewCompleter(models.Classifier, models.ClassifierModelName, "classify", cfg.Timeouts.Classification, optimizer),
			lib, cfg.Prompt, cfg.Classifier.Temperature,
		),
		Augmenter: augment.New(store, embedder, lib, cfg.Augment, cfg.Prompt, cfg.Timeouts.Retrieval),
		Generator: generator,
		Cost:      optimizer,
		Notifier:  notifier,
		Persister: persister,
		Contact:   cfg.Prompt.Contact(),
		Cache: cache.NewManager(
			cache.NewPatternCache(rules),
			repo.NewRedisResponseRepository(rdb),
			cfg.Cache.TTL,
			cfg.Timeouts.Cache,
		),
		Usage: optimizer,
	})
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHandler(runner, optimizer).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Str("environment", cfg.Environment.String()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logx.Info().Msg("Shutdown signal received, draining requests")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
	}
	if err := persister.Close(shutdownCtx); err != nil {
		logx.Warn().Err(err).Msg("Pending conversation logs were not flushed")
	}
	logx.Info().Msg("Server stopped")
	return nil
}

func newVectorStore(ctx context.Context, cfg AppConfig) (model.VectorStore, error) {
	switch cfg.VectorStore {
	case vectorStoreMemory:
		logx.Warn().Msg("Using in-memory vector store; conversation logs are not durable")
		return repo.NewMemoryVectorStore(), nil
	case vectorStoreElastic, "":
		es, err := cfg.Elastic.New()
		if err != nil {
			return nil, fmt.Errorf("initialise elasticsearch: %w", err)
		}
		if err := cfg.Elastic.Ping(ctx, es); err != nil {
			logx.Warn().Err(err).Msg("Elasticsearch unreachable, retrieval degrades to empty context")
		} else {
			logx.Info().Msg("Connected to Elasticsearch successfully")
		}
		return repo.NewElasticVectorStore(es), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_STORE %q", cfg.VectorStore)
	}
}
