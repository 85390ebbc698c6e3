package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"corp-tax-agent-be/internal/config"
	"corp-tax-agent-be/internal/controller"
	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/internal/repository/memory"
	"corp-tax-agent-be/internal/repository/redisstore"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/internal/service"
	"corp-tax-agent-be/internal/websocket"
	"corp-tax-agent-be/pkg/agent/intent"
	"corp-tax-agent-be/pkg/agent/orchestrator"
	"corp-tax-agent-be/pkg/agent/response"
	"corp-tax-agent-be/pkg/embedding"
	"corp-tax-agent-be/pkg/events"
	"corp-tax-agent-be/pkg/financial"
	"corp-tax-agent-be/pkg/llm/factory"
	"corp-tax-agent-be/pkg/report"
	"corp-tax-agent-be/pkg/retrieval"
	"corp-tax-agent-be/pkg/tax/calc"
	"corp-tax-agent-be/pkg/tax/evaluator"
	"corp-tax-agent-be/pkg/tax/snapshot"

	pktNats "corp-tax-agent-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	ReportController    controller.IReportController
	SnapshotController  controller.ISnapshotController
	RetrievalController controller.IRetrievalController
	HealthController    controller.IHealthController

	// Pipeline, exposed for the CLI
	Agent      *orchestrator.Orchestrator
	Loader     *snapshot.Loader
	Store      *retrieval.Store
	UowFactory unitofwork.RepositoryFactory

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Logger  logger.ILogger
	closers []func() error
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	stageLog := log.New(os.Stdout, "", log.LstdFlags)

	c := &Container{UowFactory: uowFactory, Logger: sysLogger}
	c.closers = append(c.closers, sysLogger.Sync)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, pubSub.Close)
	bus := events.NewBus(pubSub, events.PipelineTopic)

	// 3. Infrastructure
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = pub
			c.closers = append(c.closers, func() error { pub.Close(); return nil })
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		cancel()
		c.closers = append(c.closers, rdb.Close)
	}

	// 4. AI providers
	embeddingProvider, err := embedding.NewProvider(embedding.FactoryConfig{
		Provider:      cfg.Ai.EmbeddingProvider,
		Model:         cfg.Ai.EmbeddingModel,
		Dimensions:    cfg.Ai.EmbeddingDimensions,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		OpenAIAPIKey:  cfg.Ai.OpenAIAPIKey,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		OpenAIAPIKey:  cfg.Ai.OpenAIAPIKey,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 5. External data cache: memory, then Redis, then the database
	var provider financial.Provider
	if cfg.Provider.DartAPIKey != "" {
		provider = financial.NewDartProvider(cfg.Provider.DartAPIKey, cfg.Provider.DartBaseURL)
	} else {
		log.Printf("[WARN] DART_API_KEY is empty; financial data comes from the mock provider")
	}
	tiers := []financial.Store{memory.NewFactsStore(cfg.Cache.StalenessWindow, 10*time.Minute)}
	if rdb != nil {
		tiers = append(tiers, redisstore.NewFactsStore(rdb, cfg.Cache.StalenessWindow))
	}
	tiers = append(tiers, financial.NewDurableStore(uowFactory))
	cache := financial.NewCache(provider, financial.Options{
		StalenessWindow: cfg.Cache.StalenessWindow,
		Timeout:         cfg.Provider.Timeout,
		MockFallback:    cfg.Provider.MockFallback,
	}, sysLogger, tiers...)

	// 6. Report storage
	var storage report.ObjectStorage
	switch cfg.Report.Storage {
	case "gcs":
		gcs, err := report.NewGCSStorage(ctx, cfg.Report.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("gcs report storage: %w", err)
		}
		c.closers = append(c.closers, gcs.Close)
		storage = gcs
	case "local", "":
		local, err := report.NewLocalStorage(cfg.Report.Dir)
		if err != nil {
			return nil, err
		}
		storage = local
	default:
		return nil, fmt.Errorf("unsupported report storage %q", cfg.Report.Storage)
	}
	materializer := report.NewMaterializer(report.NewPDFRenderer(), storage, cfg.Report.StorageTimeout, sysLogger)

	// 7. Pipeline
	retry, err := orchestrator.NewRetryPolicy(cfg.Pipeline.RetryStrategies)
	if err != nil {
		return nil, err
	}
	loader := snapshot.NewLoader(uowFactory, sysLogger)
	store := retrieval.NewStore(uowFactory, embeddingProvider, retrieval.Options{
		ExactWeight:      cfg.Retrieval.ExactWeight,
		SemanticWeight:   cfg.Retrieval.SemanticWeight,
		EmbeddingTimeout: cfg.Ai.EmbeddingTimeout,
	}, sysLogger)

	agent := orchestrator.New(orchestrator.Deps{
		UowFactory: uowFactory,
		Extractor:  intent.NewExtractor(llmProvider, cfg.Ai.LLMTimeout, stageLog),
		Cache:      cache,
		Loader:     loader,
		Engine:     calc.NewEngine(),
		Evaluator: evaluator.New(
			evaluator.WithHigh(cfg.Pipeline.HighThreshold),
			evaluator.WithLow(cfg.Pipeline.LowThreshold),
			evaluator.WithMaxRetries(cfg.Pipeline.MaxRetries),
		),
		Store:        store,
		Materializer: materializer,
		Summarizer:   response.NewSummarizer(llmProvider, cfg.Ai.LLMTimeout, stageLog),
		Publisher:    bus,
		Retry:        retry,
		Logger:       sysLogger,
		StageLog:     stageLog,
	})

	// 8. Event fan-out
	wsHub := websocket.NewHub(rdb, logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "websocket.log")))
	var relay events.Publisher
	if natsPub != nil {
		relay = natsPub
	}
	consumerService := service.NewConsumerService(pubSub, events.PipelineTopic, relay, wsHub, sysLogger)

	// 9. Controllers
	c.ChatController = controller.NewChatController(service.NewChatService(uowFactory, agent, cfg.App.BaseURL))
	c.ReportController = controller.NewReportController(service.NewReportService(uowFactory, materializer))
	c.SnapshotController = controller.NewSnapshotController(service.NewSnapshotService(loader))
	c.RetrievalController = controller.NewRetrievalController(service.NewRetrievalService(store))
	c.HealthController = controller.NewHealthController(db, materializer.Backend())

	c.Agent = agent
	c.Loader = loader
	c.Store = store
	c.ConsumerService = consumerService
	c.WebSocketHub = wsHub
	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[WARN] close: %v", err)
		}
	}
}
