package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/tenant-assistant/internal/api/http"
	"github.com/spec-kit/tenant-assistant/internal/api/http/handlers"
	"github.com/spec-kit/tenant-assistant/internal/config"
	"github.com/spec-kit/tenant-assistant/internal/dialogue"
	"github.com/spec-kit/tenant-assistant/internal/events"
	"github.com/spec-kit/tenant-assistant/internal/index"
	"github.com/spec-kit/tenant-assistant/internal/intent"
	"github.com/spec-kit/tenant-assistant/internal/integrations/openai"
	"github.com/spec-kit/tenant-assistant/internal/observability"
	"github.com/spec-kit/tenant-assistant/internal/persistence"
	"github.com/spec-kit/tenant-assistant/internal/qa"
	"github.com/spec-kit/tenant-assistant/internal/repository"
	"github.com/spec-kit/tenant-assistant/internal/session"
	"github.com/spec-kit/tenant-assistant/internal/sink"
	"github.com/spec-kit/tenant-assistant/internal/ticket"
	"github.com/spec-kit/tenant-assistant/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	registerEventLogging(dispatcher, logger)

	var ticketRepo repository.TicketRepository
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
	} else {
		logger.Warn("no postgres pool; tickets held in memory only")
		ticketRepo = repository.NewMemoryTicketRepository()
	}

	ticketSink := sink.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer ticketSink.Close() //nolint:errcheck

	ticketManager := ticket.NewManager(ticket.Dependencies{
		Repo:       ticketRepo,
		Sink:       ticketSink,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	sessions := session.NewRedisStore(redis.Client, cfg.Dialogue.SessionTimeout())
	sessions.SetExpiryHook(func(userID string) {
		// A session that expires on access takes its DRAFT ticket with it;
		// waiting for the next sweep would let a stale "confirm" submit it.
		ticketManager.DiscardExpired([]string{userID})
	})
	locks := session.NewKeyedLocks()

	qaEngine := buildQAEngine(ctx, cfg, logger)

	router := dialogue.NewRouter(dialogue.RouterDependencies{
		Sessions:   sessions,
		Locks:      locks,
		Classifier: intent.NewKeywordClassifier(cfg.Dialogue.IntentConfidenceThreshold),
		Categories: intent.NewKeywordCategoryClassifier(),
		Tickets:    ticketManager,
		QA:         qaEngine,
		Metrics:    metrics,
		Logger:     logger,
	}, cfg.Dialogue.MemoryTurns)

	sweeper := worker.NewSessionSweeper(sessions, ticketManager, cfg.Dialogue.SweepInterval(), logger)
	go sweeper.Run(ctx)

	submissions := worker.NewSubmissionWorker(ticketRepo, ticketSink, 0, logger)
	go submissions.Run(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, qaEngine != nil),
		Webhook: handlers.NewWebhookHandler(router),
		Tickets: handlers.NewTicketsHandler(ticketManager),
		Metrics: handlers.NewMetricsHandler(metrics),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// buildQAEngine loads the agreement document and builds the index. A build
// failure is not fatal: QA refuses to serve but the ticket flow stays up.
// Returns the interface type so a disabled engine is a true nil, not a
// typed-nil *qa.Engine hiding inside it.
func buildQAEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) dialogue.QAEngine {
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set; agreement QA disabled")
		return nil
	}

	client, err := openai.NewClient(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.ChatModel,
		cfg.OpenAI.EmbedModel,
		cfg.OpenAI.Timeout(),
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
	)
	if err != nil {
		logger.Error("openai client init failed; agreement QA disabled", zap.Error(err))
		return nil
	}

	document, err := os.ReadFile(cfg.Index.DocumentPath)
	if err != nil {
		logger.Error("agreement document unreadable; agreement QA disabled",
			zap.String("path", cfg.Index.DocumentPath), zap.Error(err))
		return nil
	}

	ix, err := index.Build(ctx, string(document), client, index.Options{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
	})
	if err != nil {
		logger.Error("document index build failed; agreement QA disabled", zap.Error(err))
		return nil
	}

	engine, err := qa.NewEngine(ix, client, client, cfg.QA.SimilarityThreshold, cfg.QA.TopK)
	if err != nil {
		logger.Error("qa engine init failed; agreement QA disabled", zap.Error(err))
		return nil
	}
	logger.Info("document index ready", zap.Int("chunks", ix.Size()))
	return engine
}

func registerEventLogging(dispatcher events.Dispatcher, logger *zap.Logger) {
	logEvent := func(_ context.Context, event events.Event) error {
		logger.Info("ticket event",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.String("user_id", event.UserID),
		)
		return nil
	}
	dispatcher.Subscribe(events.EventTicketSubmitted, logEvent)
	dispatcher.Subscribe(events.EventTicketCancelled, logEvent)
	dispatcher.Subscribe(events.EventTicketAcknowledged, logEvent)
	dispatcher.Subscribe(events.EventTicketClosed, logEvent)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
