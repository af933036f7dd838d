package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/crossroads/internal/api"
	"github.com/talgya/crossroads/internal/config"
	"github.com/talgya/crossroads/internal/conflict"
	"github.com/talgya/crossroads/internal/decision"
	"github.com/talgya/crossroads/internal/knowledge"
	"github.com/talgya/crossroads/internal/persistence"
	"github.com/talgya/crossroads/internal/simstate"
	"github.com/talgya/crossroads/internal/tickcycle"
	"github.com/talgya/crossroads/internal/weather"
)

var (
	resumeTick    int64
	snapshotEvery uint64
	conflictStrat string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run a simulation until interrupted or the configured tick count is reached",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Int64Var(&resumeTick, "resume-tick", -1, "resume from the given previously-saved tick instead of starting fresh (-1 = start fresh)")
	runCmd.Flags().Uint64Var(&snapshotEvery, "snapshot-every", 100, "save a snapshot every N ticks (0 disables periodic saving)")
	runCmd.Flags().StringVar(&conflictStrat, "conflict-strategy", "proportional", "contested-gather resolution: first_come, equal_share, proportional")
}

func buildConflictStrategy(name string) (conflict.Strategy, error) {
	switch name {
	case "first_come":
		return conflict.FirstComeFirstServed, nil
	case "equal_share":
		return conflict.EqualShare, nil
	case "proportional":
		return conflict.ProportionalToRequested, nil
	default:
		return 0, fmt.Errorf("unknown conflict strategy %q", name)
	}
}

func buildDecisionSource(cfg *config.Config) decision.Source {
	switch cfg.Decision.Source {
	case "stub":
		return decision.Stub{}
	case "llm":
		apiKey := os.Getenv(cfg.Decision.LLMAPIKeyEnv)
		client := decision.NewLLMClient(apiKey)
		if client == nil {
			return decision.NewRuleEngineAdapter()
		}
		return &decision.LLMAdapter{Client: client}
	default:
		return decision.NewRuleEngineAdapter()
	}
}

// buildFreshState constructs a brand-new tick-0 simstate.State from cfg,
// the same way runRun does before considering any existing snapshot —
// shared with the snapshot subcommand, which needs an identical starting
// point to save or inspect against.
func buildFreshState(cfg *config.Config) (*simstate.State, error) {
	world, err := cfg.BuildWorld()
	if err != nil {
		return nil, err
	}
	clk, err := cfg.BuildClock()
	if err != nil {
		return nil, err
	}
	cultureReg := cfg.BuildCultureRegistry()
	return simstate.New(clk, world, weather.New(cfg.Seed), knowledge.Default, cultureReg, cfg.Seed), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	logger.Info("crossroads starting", "config", configPath)

	strategy, err := buildConflictStrategy(conflictStrat)
	if err != nil {
		return err
	}

	state, err := buildFreshState(cfg)
	if err != nil {
		return err
	}

	os.MkdirAll(pathDir(cfg.Persistence.Path), 0o755)
	db, err := persistence.Open(cfg.Persistence.Path)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer db.Close()

	if resumeTick >= 0 {
		logger.Info("resuming from snapshot", "tick", resumeTick)
		if err := db.LoadInto(state, cfg.Persistence.SnapshotID, cfg.Persistence.ExperimentID, uint64(resumeTick), cfg.BuildCultureCatalog()); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
	} else if tick, ok, err := db.LatestTick(cfg.Persistence.SnapshotID, cfg.Persistence.ExperimentID); err != nil {
		return fmt.Errorf("check latest snapshot: %w", err)
	} else if ok {
		logger.Info("found existing snapshot, resuming", "tick", tick)
		if err := db.LoadInto(state, cfg.Persistence.SnapshotID, cfg.Persistence.ExperimentID, tick, cfg.BuildCultureCatalog()); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
	} else {
		logger.Info("no existing snapshot, starting fresh world",
			"locations", len(state.World.AllLocationIDs()))
		if err := db.Save(state, cfg.Persistence.SnapshotID, cfg.Persistence.ExperimentID); err != nil {
			logger.Error("initial snapshot save failed", "error", err)
		}
	}

	decisionTimeout, err := cfg.DecisionTimeout()
	if err != nil {
		return err
	}
	tickInterval, err := cfg.TickInterval()
	if err != nil {
		return err
	}

	tcfg := tickcycle.Config{
		Decision:         buildDecisionSource(cfg),
		ConflictStrategy: strategy,
		DecisionTimeout:  decisionTimeout,
	}

	var mu sync.RWMutex
	apiServer := &api.Server{
		State:     state,
		Mu:        &mu,
		Addr:      cfg.API.Addr,
		JWTSecret: []byte(cfg.API.JWTSecret),
	}
	apiServer.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		apiServer.Shutdown(shutdownCtx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	rng := rand.New(rand.NewSource(cfg.Seed))

	logger.Info("simulation running", "addr", cfg.API.Addr, "tick", state.Clock.Tick())
	for cfg.Tick.Count == 0 || state.Clock.Tick() < cfg.Tick.Count {
		select {
		case <-ctx.Done():
			logger.Info("stopping", "tick", state.Clock.Tick())
			if err := db.Save(state, cfg.Persistence.SnapshotID, cfg.Persistence.ExperimentID); err != nil {
				logger.Error("final snapshot save failed", "error", err)
			}
			return nil
		default:
		}

		mu.Lock()
		result, err := tickcycle.RunTick(ctx, state, tcfg, rng)
		mu.Unlock()
		if err != nil {
			return fmt.Errorf("tick %d: %w", state.Clock.Tick(), err)
		}
		logger.Debug("tick complete", "tick", result.Tick, "actions", result.ActionsTaken, "deaths", result.Deaths, "births", result.Births)

		if snapshotEvery > 0 && result.Tick%snapshotEvery == 0 {
			mu.RLock()
			err := db.Save(state, cfg.Persistence.SnapshotID, cfg.Persistence.ExperimentID)
			mu.RUnlock()
			if err != nil {
				logger.Error("periodic snapshot save failed", "error", err)
			}
		}

		if tickInterval > 0 {
			time.Sleep(tickInterval)
		}
	}

	mu.RLock()
	err = db.Save(state, cfg.Persistence.SnapshotID, cfg.Persistence.ExperimentID)
	mu.RUnlock()
	return err
}

func pathDir(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "."
}
