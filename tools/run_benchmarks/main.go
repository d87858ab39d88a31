// Package main benchmarks coordination modes across rescue scenarios.
// Runs every mode on every scenario file and collects metrics.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/scenario"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/sim"
)

// BenchmarkResult stores one mode/scenario run.
type BenchmarkResult struct {
	Timestamp        string
	CommitHash       string
	GoVersion        string
	OS               string
	Arch             string
	Scenario         string
	GridSize         string
	Mode             string
	RuntimeMs        float64
	Completed        bool
	Timesteps        int
	SurvivorsRescued int
	InitialSurvivors int
	RescueRate       float64
	CellsExplored    int
	AgentsSpawned    int
	ModeSwitches     int
}

// ModeMetrics aggregates results per coordination mode.
type ModeMetrics struct {
	Name           string
	TotalRuns      int
	Completions    int
	TotalRuntimeMs float64
	TotalTimesteps int
	TotalRescued   int
	TotalSurvivors int
}

var modes = []string{"centralized", "auction", "coalition", "hybrid"}

func getGitCommit() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

func runMode(sc scenario.Scenario, modeName string, maxTimesteps int, spread bool) (*BenchmarkResult, error) {
	result := &BenchmarkResult{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		CommitHash: getGitCommit(),
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Scenario:   sc.Name,
		GridSize:   fmt.Sprintf("%dx%d", sc.Width, sc.Height),
		Mode:       modeName,
	}

	mode, err := sim.ParseMode(modeName)
	if err != nil {
		return nil, err
	}

	cfg := sim.DefaultConfig()
	cfg.Scenario = sc
	cfg.ForceMode = mode
	cfg.EnableSpread = spread
	cfg.MaxTimesteps = maxTimesteps

	s, err := sim.New(cfg)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	metrics, err := s.Run(context.Background())
	if err != nil {
		return nil, err
	}
	result.RuntimeMs = float64(time.Since(startTime).Microseconds()) / 1000.0

	result.Completed = s.Done()
	result.Timesteps = metrics.Timesteps
	result.SurvivorsRescued = metrics.SurvivorsRescued
	result.InitialSurvivors = metrics.InitialSurvivors
	result.RescueRate = metrics.RescueRate()
	result.CellsExplored = metrics.CellsExplored
	result.AgentsSpawned = metrics.AgentsSpawned
	result.ModeSwitches = metrics.ModeSwitches

	return result, nil
}

func writeCSV(results []*BenchmarkResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"timestamp", "commit_hash", "go_version", "os", "arch",
		"scenario", "grid_size", "mode",
		"runtime_ms", "completed", "timesteps",
		"survivors_rescued", "initial_survivors", "rescue_rate",
		"cells_explored", "agents_spawned", "mode_switches",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			r.Timestamp, r.CommitHash, r.GoVersion, r.OS, r.Arch,
			r.Scenario, r.GridSize, r.Mode,
			fmt.Sprintf("%.3f", r.RuntimeMs), fmt.Sprintf("%t", r.Completed),
			fmt.Sprintf("%d", r.Timesteps),
			fmt.Sprintf("%d", r.SurvivorsRescued), fmt.Sprintf("%d", r.InitialSurvivors),
			fmt.Sprintf("%.3f", r.RescueRate),
			fmt.Sprintf("%d", r.CellsExplored), fmt.Sprintf("%d", r.AgentsSpawned),
			fmt.Sprintf("%d", r.ModeSwitches),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func printSummary(results []*BenchmarkResult) {
	metrics := make(map[string]*ModeMetrics)
	for _, r := range results {
		m, ok := metrics[r.Mode]
		if !ok {
			m = &ModeMetrics{Name: r.Mode}
			metrics[r.Mode] = m
		}
		m.TotalRuns++
		if r.Completed {
			m.Completions++
		}
		m.TotalRuntimeMs += r.RuntimeMs
		m.TotalTimesteps += r.Timesteps
		m.TotalRescued += r.SurvivorsRescued
		m.TotalSurvivors += r.InitialSurvivors
	}

	fmt.Println("\n=== BENCHMARK SUMMARY ===")
	fmt.Printf("%-14s %6s %10s %12s %12s %10s\n",
		"Mode", "Runs", "Complete", "Avg Time(ms)", "AvgTimesteps", "Rescue%")
	fmt.Println(strings.Repeat("-", 68))

	var names []string
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := metrics[name]
		avgTime := 0.0
		avgTimesteps := 0.0
		rescuePct := 0.0
		if m.TotalRuns > 0 {
			avgTime = m.TotalRuntimeMs / float64(m.TotalRuns)
			avgTimesteps = float64(m.TotalTimesteps) / float64(m.TotalRuns)
		}
		if m.TotalSurvivors > 0 {
			rescuePct = float64(m.TotalRescued) / float64(m.TotalSurvivors) * 100
		}
		fmt.Printf("%-14s %6d %10d %12.2f %12.1f %9.1f%%\n",
			m.Name, m.TotalRuns, m.Completions, avgTime, avgTimesteps, rescuePct)
	}
}

func main() {
	inputDir := flag.String("input", "testdata", "Directory containing scenario YAML files")
	outputFile := flag.String("output", "evidence/benchmark_results.csv", "Output CSV file")
	maxTimesteps := flag.Int("max-timesteps", 1000, "Timestep budget per run")
	spread := flag.Bool("spread", false, "Enable hazard propagation")
	modeFilter := flag.String("mode", "", "Run only specific modes (comma-separated)")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	outputDir := filepath.Dir(*outputFile)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	pattern := filepath.Join(*inputDir, "*.yaml")
	files, err := filepath.Glob(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding scenario files: %v\n", err)
		os.Exit(1)
	}

	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No scenario files found in %s\n", *inputDir)
		fmt.Fprintf(os.Stderr, "Run gen_scenarios first: go run ./tools/gen_scenarios -suite -output testdata\n")
		os.Exit(1)
	}

	activeModes := modes
	if *modeFilter != "" {
		activeModes = strings.Split(*modeFilter, ",")
	}

	var results []*BenchmarkResult
	totalRuns := len(files) * len(activeModes)
	currentRun := 0

	fmt.Printf("Running benchmarks: %d scenarios x %d modes = %d runs\n",
		len(files), len(activeModes), totalRuns)
	fmt.Println()

	for _, file := range files {
		sc, err := scenario.Load(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", file, err)
			continue
		}

		for _, mode := range activeModes {
			currentRun++
			if *verbose {
				fmt.Printf("[%d/%d] %s / %s ... ", currentRun, totalRuns, sc.Name, mode)
			} else {
				fmt.Printf("\r[%d/%d] Running...", currentRun, totalRuns)
			}

			result, err := runMode(sc, mode, *maxTimesteps, *spread)
			if err != nil {
				fmt.Fprintf(os.Stderr, "\nError running %s/%s: %v\n", sc.Name, mode, err)
				continue
			}
			results = append(results, result)

			if *verbose {
				fmt.Printf("rescued %d/%d in %d timesteps (%.2fms)\n",
					result.SurvivorsRescued, result.InitialSurvivors,
					result.Timesteps, result.RuntimeMs)
			}
		}
	}

	fmt.Println()

	if err := writeCSV(results, *outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Results written to: %s\n", *outputFile)

	printSummary(results)
}
