// Command rescuesim runs a disaster rescue simulation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/audit"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/logging"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/scenario"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/sim"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Scenario YAML file (empty = generate one)")
	seed := flag.Int64("seed", 42, "Random seed for scenario generation")
	difficulty := flag.String("difficulty", "standard", "Generated scenario difficulty: easy, standard, hard")
	clustered := flag.Bool("clustered", false, "Generate clustered hazards instead of uniform scatter")
	modeName := flag.String("mode", "hybrid", "Coordination mode: centralized, auction, coalition, hybrid")
	maxTimesteps := flag.Int("max-timesteps", 1000, "Timestep budget")
	spawning := flag.Bool("spawning", true, "Enable dynamic agent spawning")
	spread := flag.Bool("spread", false, "Enable hazard propagation")
	auditPath := flag.String("audit-db", "", "SQLite file for the decision audit trail (empty = not saved)")
	verbose := flag.Bool("verbose", false, "Log per-timestep agent actions")
	jsonLogs := flag.Bool("log-json", false, "Emit JSON logs instead of text")

	flag.Parse()

	if err := run(*scenarioPath, *seed, *difficulty, *clustered, *modeName,
		*maxTimesteps, *spawning, *spread, *auditPath, *verbose, *jsonLogs); err != nil {
		fmt.Fprintf(os.Stderr, "rescuesim: %v\n", err)
		os.Exit(1)
	}
}

func run(scenarioPath string, seed int64, difficulty string, clustered bool,
	modeName string, maxTimesteps int, spawning, spread bool,
	auditPath string, verbose, jsonLogs bool) error {

	logger := buildLogger(verbose, jsonLogs)

	sc, err := buildScenario(scenarioPath, seed, difficulty, clustered)
	if err != nil {
		return err
	}

	mode, err := sim.ParseMode(modeName)
	if err != nil {
		return err
	}

	cfg := sim.DefaultConfig()
	cfg.Scenario = sc
	cfg.ForceMode = mode
	cfg.EnableSpawning = spawning
	cfg.EnableSpread = spread
	cfg.MaxTimesteps = maxTimesteps
	cfg.Logger = logger

	s, err := sim.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := s.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printSummary(sc, metrics, s.Done())

	if auditPath != "" {
		if err := saveTrail(auditPath, s.Trail()); err != nil {
			return fmt.Errorf("save audit trail: %w", err)
		}
		fmt.Printf("Audit trail (%d decisions) saved to %s\n", s.Trail().Len(), auditPath)
	}
	return nil
}

func buildLogger(verbose, jsonLogs bool) logging.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if jsonLogs {
		return logging.NewJSONLogger(os.Stderr, level)
	}
	return logging.NewTextLogger(os.Stderr, level)
}

func buildScenario(path string, seed int64, difficulty string, clustered bool) (scenario.Scenario, error) {
	if path != "" {
		return scenario.Load(path)
	}

	var params scenario.GenParams
	switch difficulty {
	case "easy":
		params = scenario.EasyGenParams()
	case "standard":
		params = scenario.DefaultGenParams()
	case "hard":
		params = scenario.HardGenParams()
	default:
		return scenario.Scenario{}, fmt.Errorf("unknown difficulty %q", difficulty)
	}

	gen := scenario.NewGenerator(seed)
	if clustered {
		return gen.Clustered(params), nil
	}
	return gen.Standard(params), nil
}

func printSummary(sc scenario.Scenario, m sim.Metrics, done bool) {
	fmt.Println("=== Simulation Summary ===")
	fmt.Printf("Scenario:            %s (%dx%d)\n", sc.Name, sc.Width, sc.Height)
	fmt.Printf("Timesteps:           %d\n", m.Timesteps)
	fmt.Printf("Survivors rescued:   %d/%d (%.0f%%)\n",
		m.SurvivorsRescued, m.InitialSurvivors, m.RescueRate()*100)
	fmt.Printf("Survivors remaining: %d\n", m.SurvivorsRemaining)
	fmt.Printf("Cells explored:      %d\n", m.CellsExplored)
	fmt.Printf("Final agent count:   %d (%d spawned)\n", m.FinalAgentCount, m.AgentsSpawned)
	fmt.Printf("Mode switches:       %d\n", m.ModeSwitches)
	fmt.Printf("Remaining hazards:   %d fires, %d floods\n", m.FinalFires, m.FinalFloods)
	if done {
		fmt.Println("ALL SURVIVORS RESCUED")
	}
}

func saveTrail(path string, trail *audit.Trail) error {
	store, err := audit.OpenStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveTrail(trail)
}
