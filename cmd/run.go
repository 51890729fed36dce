package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synthmart/shopagent/internal/config"
	"github.com/synthmart/shopagent/internal/id/uuid"
	"github.com/synthmart/shopagent/internal/logging"
	memorypublisher "github.com/synthmart/shopagent/internal/publisher/memory"
	"github.com/synthmart/shopagent/internal/shopper"
	"github.com/synthmart/shopagent/internal/storage/memory"
)

type runFlags struct {
	goal        string
	agentName   string
	gender      string
	ageFrom     int
	ageTo       int
	location    string
	interests   []string
	description string
}

// newRunCmd creates the 'run' subcommand for a single in-process task.
func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one shopping task and prints its trace",
		Long: `Executes a single task for an ad-hoc agent without starting the HTTP
service. State lives in memory only; the resulting trace is written to
stdout as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.goal, "goal", "", "shopping goal, e.g. \"hiking shoes\"")
	cmd.Flags().StringVar(&flags.agentName, "agent-name", "cli-agent", "agent display name")
	cmd.Flags().StringVar(&flags.gender, "gender", "", "agent profile gender")
	cmd.Flags().IntVar(&flags.ageFrom, "age-from", 25, "agent profile age range lower bound")
	cmd.Flags().IntVar(&flags.ageTo, "age-to", 35, "agent profile age range upper bound")
	cmd.Flags().StringVar(&flags.location, "location", "", "agent profile location")
	cmd.Flags().StringSliceVar(&flags.interests, "interests", nil, "agent profile interests")
	cmd.Flags().StringVar(&flags.description, "description", "", "agent profile description")
	_ = cmd.MarkFlagRequired("goal")
	return cmd
}

func runOnce(parent context.Context, flags runFlags) error {
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

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids := uuid.NewGenerator()
	agentID, err := ids.NewID()
	if err != nil {
		return fmt.Errorf("generate agent id: %w", err)
	}
	taskID, err := ids.NewID()
	if err != nil {
		return fmt.Errorf("generate task id: %w", err)
	}
	seed, err := ids.NewID()
	if err != nil {
		return fmt.Errorf("generate seed: %w", err)
	}

	agent := shopper.Agent{
		ID:   agentID,
		Name: flags.agentName,
		Profile: shopper.Profile{
			Gender:      flags.gender,
			AgeFrom:     flags.ageFrom,
			AgeTo:       flags.ageTo,
			Location:    flags.location,
			Interests:   flags.interests,
			Description: flags.description,
		},
	}
	taskStore := memory.NewTaskStore()
	traceStore := memory.NewTraceStore()
	pageIndex := memory.NewPageIndex()
	blobs := memory.NewBlobStore()

	task := shopper.Task{
		ID:      taskID,
		AgentID: agent.ID,
		Goal:    flags.goal,
		Seed:    seed,
		Status:  shopper.TaskStatusNotStarted,
	}
	if err := taskStore.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	site := shopper.Site{BaseURL: cfg.Shop.BaseURL}
	extractor := shopper.NewExtractor(site, cfg.Shop.SearchResultLimit, cfg.Shop.RecommendedLimit, ids)
	cache := buildCache(cfg, pageIndex, blobs, logger)
	orc, err := buildOracle(cfg, logger)
	if err != nil {
		return err
	}

	engine := shopper.NewEngine(
		task,
		agent,
		site,
		cache,
		extractor,
		orc,
		taskStore,
		traceStore,
		memorypublisher.New(),
		shopper.EngineConfig{MaxSteps: cfg.Engine.MaxSteps},
		logger.Named("engine"),
	)
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run task: %w", err)
	}

	entries, err := traceStore.Load(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load trace: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode trace: %w", err)
	}
	logger.Info("task finished", zap.String("task_id", taskID), zap.Int("steps", len(entries)))
	return nil
}
