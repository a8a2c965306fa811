// Package app arma el grafo de dependencias compartido por los binarios.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"rag-chat/internal/config"
	"rag-chat/internal/db"
	"rag-chat/internal/llm"
	"rag-chat/internal/observability"
	"rag-chat/internal/repository"
	"rag-chat/internal/retrieval"
	"rag-chat/internal/service"
	"rag-chat/internal/store"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	defaultDatabasePingTimeout = 5 * time.Second
)

// App agrupa los componentes de larga vida. Close libera store y pool.
type App struct {
	Store     *store.SessionStore
	Chat      *service.ChatService
	Metrics   *observability.Metrics
	Retriever retrieval.Retriever

	pool *pgxpool.Pool
}

// Build conecta store, retriever, generador y orquestador segun la configuracion.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics("ragchat")

	st := store.Open(ctx, logger, store.Options{
		RedisURL:      cfg.RedisURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		PingTimeout:   cfg.RedisPingTimeout,
		TTL:           cfg.SessionTTL(),
	}).WithObserver(metrics)

	openaiClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger).
		WithEmbeddingModel(cfg.LLMEmbeddingModel)

	app := &App{Store: st, Metrics: metrics}

	retriever, err := app.buildRetriever(ctx, cfg, logger, openaiClient)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	retry := service.RetryPolicy{
		MaxAttempts:    cfg.GenMaxAttempts,
		BaseDelay:      cfg.GenerationBaseDelay(),
		AttemptTimeout: cfg.GenAttemptTimeout,
	}
	app.Retriever = retriever
	app.Chat = service.NewChatService(logger, st, retriever, selectGenerator(cfg, openaiClient, logger), retry).
		WithObserver(metrics).
		WithRetrievalTimeout(cfg.RetrievalTimeout)
	return app, nil
}

// buildRetriever usa pgvector si DATABASE_URL esta configurada y la base responde
// al ping; si no, el servicio RAG por HTTP. Una URL invalida es un error de configuracion.
func (a *App) buildRetriever(ctx context.Context, cfg *config.Config, logger *zap.Logger, embedder retrieval.Embedder) (retrieval.Retriever, error) {
	httpRetriever := func() retrieval.Retriever {
		logger.Info("retriever selected", zap.String("kind", "http"), zap.String("base_url", cfg.RAGBaseURL))
		return retrieval.NewHTTPRetriever(cfg.RAGBaseURL, cfg.RetrievalTimeout)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return httpRetriever(), nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	timeout := cfg.DatabasePingTimeout
	if timeout <= 0 {
		timeout = defaultDatabasePingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.Ping(pingCtx, pool); err != nil {
		logger.Warn("database ping failed, falling back to http retriever", zap.Error(err))
		pool.Close()
		return httpRetriever(), nil
	}
	a.pool = pool
	logger.Info("retriever selected", zap.String("kind", "pgvector"))
	return retrieval.NewVectorRetriever(embedder, repository.NewPgPassageRepository(pool)), nil
}

func selectGenerator(cfg *config.Config, openaiClient *llm.HTTPClient, logger *zap.Logger) llm.LLMClient {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case ProviderAnthropic:
		baseURL := ""
		if cfg.LLMBaseURL != llm.DefaultBaseURL {
			baseURL = cfg.LLMBaseURL
		}
		logger.Info("generator selected", zap.String("provider", ProviderAnthropic), zap.String("model", cfg.LLMModel))
		return llm.NewAnthropicClient(cfg.LLMAPIKey, cfg.LLMModel, baseURL)
	case "", ProviderOpenAI:
	default:
		logger.Warn("unknown llm provider, using openai-compatible client", zap.String("provider", cfg.LLMProvider))
	}
	logger.Info("generator selected", zap.String("provider", ProviderOpenAI), zap.String("model", cfg.LLMModel))
	return openaiClient
}

// Close libera los recursos abiertos por Build.
func (a *App) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return a.Store.Close()
}
