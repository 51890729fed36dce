package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synthmart/shopagent/internal/api"
	"github.com/synthmart/shopagent/internal/clock/system"
	"github.com/synthmart/shopagent/internal/config"
	"github.com/synthmart/shopagent/internal/dispatcher"
	"github.com/synthmart/shopagent/internal/fetchcache"
	"github.com/synthmart/shopagent/internal/hash/sha256"
	"github.com/synthmart/shopagent/internal/id/uuid"
	"github.com/synthmart/shopagent/internal/logging"
	"github.com/synthmart/shopagent/internal/oracle"
	memorypublisher "github.com/synthmart/shopagent/internal/publisher/memory"
	pubsubpublisher "github.com/synthmart/shopagent/internal/publisher/pubsub"
	queuememory "github.com/synthmart/shopagent/internal/queue/memory"
	"github.com/synthmart/shopagent/internal/shopper"
	"github.com/synthmart/shopagent/internal/storage/gcs"
	"github.com/synthmart/shopagent/internal/storage/local"
	"github.com/synthmart/shopagent/internal/storage/memory"
	"github.com/synthmart/shopagent/internal/storage/postgres"
)

// newServeCmd creates the 'serve' subcommand hosting the HTTP API and the
// task dispatcher.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the agent service",
		Long: `Starts the HTTP API together with the background dispatcher. Agents are
managed over /v1/agents, tasks are dispatched per agent and executed
asynchronously by a worker pool; status and traces are readable while the
task runs.`,
		RunE: runServeCommand,
	}
}

// stores bundles the persistence handles behind the service.
type stores struct {
	tasks  shopper.TaskStore
	agents shopper.AgentStore
	trace  shopper.TraceStore
	pages  fetchcache.PageIndex
	close  func()
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	blobs, closeBlobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBlobs()

	cache := buildCache(cfg, st.pages, blobs, logger)

	orc, err := buildOracle(cfg, logger)
	if err != nil {
		return err
	}

	pub, closePublisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	ids := uuid.NewGenerator()
	clock := system.New()
	site := shopper.Site{BaseURL: cfg.Shop.BaseURL}
	extractor := shopper.NewExtractor(site, cfg.Shop.SearchResultLimit, cfg.Shop.RecommendedLimit, ids)

	queue := queuememory.NewQueue(cfg.Engine.QueueDepth)
	factory := func(task shopper.Task, agent shopper.Agent) dispatcher.Runner {
		return shopper.NewEngine(
			task,
			agent,
			site,
			cache,
			extractor,
			orc,
			st.tasks,
			st.trace,
			pub,
			shopper.EngineConfig{
				MaxSteps:        cfg.Engine.MaxSteps,
				CompletionTopic: cfg.PubSub.TopicName,
			},
			logger.Named("engine"),
		)
	}
	dispatch := dispatcher.New(queue, factory, cfg.Engine.Workers, logger.Named("dispatcher"))

	apiServer := api.NewServer(st.agents, st.tasks, st.trace, dispatch, ids, clock, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Engine.Workers))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
	return nil
}

func buildStores(ctx context.Context, cfg config.Config) (stores, error) {
	if !cfg.DB.Enabled {
		return stores{
			tasks:  memory.NewTaskStore(),
			agents: memory.NewAgentStore(),
			trace:  memory.NewTraceStore(),
			pages:  memory.NewPageIndex(),
			close:  func() {},
		}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		return stores{}, fmt.Errorf("connect postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("ensure schema: %w", err)
	}
	taskStore, err := postgres.NewTaskStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	agentStore, err := postgres.NewAgentStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	traceStore, err := postgres.NewTraceStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	pageIndex, err := postgres.NewPageIndex(pool)
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	return stores{
		tasks:  taskStore,
		agents: agentStore,
		trace:  traceStore,
		pages:  pageIndex,
		close:  pool.Close,
	}, nil
}

func buildBlobStore(ctx context.Context, cfg config.Config) (shopper.BlobStore, func(), error) {
	noop := func() {}
	switch cfg.Storage.Backend {
	case "memory":
		return memory.NewBlobStore(), noop, nil
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.Storage.BaseDir})
		if err != nil {
			return nil, noop, fmt.Errorf("init local blob store: %w", err)
		}
		return store, noop, nil
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("init gcs blob store: %w", err)
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildCache(cfg config.Config, pages fetchcache.PageIndex, blobs shopper.BlobStore, logger *zap.Logger) *fetchcache.Cache {
	fetcher := fetchcache.NewCollyFetcher(cfg.Shop.RequestTimeout(), logger.Named("fetch"))

	var renderer fetchcache.Fetcher
	var detector *fetchcache.RenderDetector
	if cfg.Shop.RenderEnabled {
		r, err := fetchcache.NewChromedpRenderer(cfg.Shop.RenderTimeout(), logger.Named("render"))
		if err != nil {
			logger.Warn("headless renderer init failed; continuing without it", zap.Error(err))
		} else {
			renderer = r
			detector = fetchcache.NewRenderDetector(cfg.Shop.RenderMinHTMLBytes, cfg.Shop.RenderKeywords)
		}
	}

	return fetchcache.New(
		fetcher,
		renderer,
		detector,
		pages,
		blobs,
		sha256.New(),
		fetchcache.Config{
			UserAgents:  cfg.Shop.UserAgents,
			DelayMin:    cfg.Shop.DelayMin(),
			DelayMax:    cfg.Shop.DelayMax(),
			BlobPrefix:  cfg.Storage.Prefix,
			ContentType: cfg.Storage.ContentType,
		},
		logger.Named("cache"),
	)
}

func buildOracle(cfg config.Config, logger *zap.Logger) (shopper.Oracle, error) {
	switch cfg.Oracle.Provider {
	case "first":
		return oracle.FirstCandidate{}, nil
	case "llm":
		return oracle.NewLLMOracle(oracle.LLMConfig{
			Endpoint:    cfg.Oracle.Endpoint,
			APIKey:      cfg.Oracle.APIKey,
			Model:       cfg.Oracle.Model,
			Timeout:     cfg.Oracle.OracleTimeout(),
			MaxAttempts: cfg.Oracle.MaxAttempts,
			Temperature: cfg.Oracle.Temperature,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (shopper.Publisher, func(), error) {
	noop := func() {}
	if !cfg.PubSub.Enabled {
		return memorypublisher.New(), noop, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, noop, fmt.Errorf("init pubsub client: %w", err)
	}
	topic := client.Topic(cfg.PubSub.TopicName)
	return pubsubpublisher.New(topic), func() {
		topic.Stop()
		_ = client.Close()
	}, nil
}
