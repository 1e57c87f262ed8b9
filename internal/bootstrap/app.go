package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docuchat/internal/ai"
	"docuchat/internal/app"
	"docuchat/internal/cache"
	"docuchat/internal/config"
	"docuchat/internal/model"
	mysqlClient "docuchat/internal/platform/mysql"
	rabbitmqClient "docuchat/internal/platform/rabbitmq"
	redisClient "docuchat/internal/platform/redis"
	"docuchat/internal/repository"
	"docuchat/internal/splitter"
	"docuchat/internal/store"
	"docuchat/internal/watcher"
	"docuchat/internal/websearch"
	"docuchat/internal/worker"
)

// seedCorpus is ingested into an empty store so a fresh install has
// something to answer from before the first upload.
var seedCorpus = []string{
	"LangChain is a framework for developing applications powered by language models.",
	"OpenAI developed GPT (Generative Pre-trained Transformer) models, including GPT-3 and GPT-4.",
	"FAISS is a library for efficient similarity search and clustering of dense vectors.",
	"nomic-embed-text is an embedding model for text data.",
}

type App struct {
	Config *config.Config
	Store  store.Store
	MySQL  *gorm.DB         // nil unless the mysql backend or the audit trail needs it
	Redis  *redis.Client    // nil when the embedding cache is disabled
	MQConn *amqp.Connection // nil when the audit trail is disabled

	IngestService *app.IngestService
	AnswerService *app.AnswerService
	AuditWorker   *worker.IngestAuditWorker
	Watcher       *watcher.Watcher

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	a := &App{
		Config:    cfg,
		StartedAt: time.Now(),
	}

	// MySQL backs the mysql store backend and the ingest audit trail;
	// it is dialed only when one of them is in play.
	if cfg.Store.Backend == "mysql" || cfg.RabbitMQ.URL != "" {
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(&model.IngestEvent{}); err != nil {
			return nil, fmt.Errorf("auto migrate audit table failed: %w", err)
		}
		a.MySQL = db
	}

	st, err := openStore(cfg, a.MySQL)
	if err != nil {
		return nil, err
	}
	a.Store = st

	if cfg.Redis.Addr != "" {
		redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.Redis = redisCli
	}

	if cfg.RabbitMQ.URL != "" {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		a.MQConn = mqConn

		eventRepo := repository.NewIngestEventRepository(a.MySQL)
		a.AuditWorker = worker.NewIngestAuditWorker(mqConn, eventRepo, cfg.RabbitMQ.IngestAuditQueue)
		if err := a.AuditWorker.Start(ctx); err != nil {
			return nil, fmt.Errorf("start audit worker failed: %w", err)
		}
	}

	split, err := splitter.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("build splitter failed: %w", err)
	}

	ollama := ai.NewBoundOllama(
		ai.NewOllamaClient(),
		ai.ChatConfig{BaseURL: cfg.LLM.BaseURL, Model: cfg.LLM.Model},
		ai.EmbeddingConfig{BaseURL: cfg.LLM.BaseURL, Model: cfg.LLM.EmbeddingModel},
	)

	var publisher app.EventPublisher
	if a.MQConn != nil {
		publisher = rabbitmqClient.NewIngestEventPublisher(a.MQConn, cfg.RabbitMQ.IngestAuditQueue)
	}
	a.IngestService = app.NewIngestService(st, ollama, split, publisher)

	var embedCache app.QueryEmbeddingCache
	if a.Redis != nil {
		embedCache = cache.NewEmbeddingCache(a.Redis, time.Duration(cfg.Redis.EmbeddingTTLHours)*time.Hour)
	}
	searcher := websearch.NewDuckDuckGoClient(
		cfg.Search.BaseURL,
		time.Duration(cfg.Search.TimeoutSeconds)*time.Second,
		cfg.Search.MaxResults,
	)
	a.AnswerService = app.NewAnswerService(
		st,
		ollama,
		ollama,
		searcher,
		embedCache,
		cfg.LLM.EmbeddingModel,
		cfg.Retrieval.TopK,
		cfg.Retrieval.Threshold,
	)

	if cfg.Ingest.SeedCorpus {
		seedStore(ctx, st, a.IngestService)
	}

	if cfg.Ingest.WatchDir != "" {
		if err := os.MkdirAll(cfg.Ingest.WatchDir, 0o755); err != nil {
			return nil, fmt.Errorf("create watch dir failed: %w", err)
		}
		w, err := watcher.New(cfg.Ingest.WatchDir, a.IngestService)
		if err != nil {
			return nil, err
		}
		if err := w.Start(ctx); err != nil {
			return nil, fmt.Errorf("start watcher failed: %w", err)
		}
		a.Watcher = w
	}

	return a, nil
}

func openStore(cfg *config.Config, db *gorm.DB) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir failed: %w", err)
			}
		}
		return store.OpenSQLite(cfg.Store.SQLitePath, cfg.Store.EmbeddingDim)
	case "mysql":
		if err := db.AutoMigrate(&model.Document{}, &model.Chunk{}); err != nil {
			return nil, fmt.Errorf("auto migrate store tables failed: %w", err)
		}
		return store.NewMySQLStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// seedStore loads the demo corpus into an empty store. Failures are
// logged and skipped so the server still comes up when the model
// server is not reachable yet.
func seedStore(ctx context.Context, st store.Store, ingest *app.IngestService) {
	count, err := st.CountChunks(ctx)
	if err != nil {
		log.Printf("seed corpus skipped, count failed: %v", err)
		return
	}
	if count > 0 {
		return
	}

	for _, text := range seedCorpus {
		if _, err := ingest.Ingest(ctx, app.IngestInput{
			Name:    "Seed corpus",
			Source:  model.SourceSeed,
			Content: text,
		}); err != nil {
			log.Printf("seed corpus ingest failed: %v", err)
			return
		}
	}
	log.Printf("seeded store with %d demo documents", len(seedCorpus))
}

func (a *App) Close() error {
	var closeErr error
	if a.Watcher != nil {
		a.Watcher.Close()
	}
	if a.AuditWorker != nil {
		a.AuditWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
