package main

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/game"
	"github.com/pthm-cable/boids/telemetry"
)

// FitnessEvaluator runs headless simulations and scores a weight vector.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []uint64
	baseConfig *config.Config

	mu          sync.Mutex
	bestFitness float64
	bestWindows []telemetry.WindowStats
	last        Score
}

// Score breaks a fitness value into its terms.
type Score struct {
	Polarization  float64 // Mean polarization over the scored windows
	PredatedShare float64 // Fraction of agent-ticks spent inside the strike radius
	Fitness       float64
}

// NewFitnessEvaluator creates an evaluator that averages over seeds.
func NewFitnessEvaluator(params *ParamVector, seeds []uint64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// LastScore returns the averaged score of the most recent evaluation.
func (fe *FitnessEvaluator) LastScore() Score {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// BestWindows returns the stats windows of the best seed seen so far.
func (fe *FitnessEvaluator) BestWindows() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// Evaluate computes fitness for raw parameter values (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	type seedResult struct {
		score   Score
		windows []telemetry.WindowStats
	}

	// Run all seeds in parallel; any failure invalidates the candidate
	results := make([]seedResult, len(fe.seeds))
	var eg errgroup.Group
	for i, seed := range fe.seeds {
		eg.Go(func() error {
			windows, err := fe.runSimulation(x, seed)
			if err != nil {
				return err
			}
			results[i] = seedResult{score: fe.score(windows), windows: windows}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		// An invalid configuration is the worst possible outcome
		slog.Warn("candidate rejected", "x", x, "error", err)
		return math.Inf(1)
	}

	var avg Score
	best := -1
	for i, r := range results {
		avg.Polarization += r.score.Polarization
		avg.PredatedShare += r.score.PredatedShare
		avg.Fitness += r.score.Fitness
		if best < 0 || r.score.Fitness < results[best].score.Fitness {
			best = i
		}
	}
	n := float64(len(results))
	avg.Polarization /= n
	avg.PredatedShare /= n
	avg.Fitness /= n

	fe.mu.Lock()
	if avg.Fitness < fe.bestFitness && best >= 0 {
		fe.bestFitness = avg.Fitness
		fe.bestWindows = results[best].windows
	}
	fe.last = avg
	fe.mu.Unlock()

	return avg.Fitness
}

// runSimulation executes one headless run and returns its stats windows.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) ([]telemetry.WindowStats, error) {
	cfg := fe.configFor(x)

	var windows []telemetry.WindowStats
	g, err := game.NewGameWithOptions(game.Options{
		Config:   cfg,
		Seed:     seed,
		Headless: true,
		StatsCallback: func(stats telemetry.WindowStats) {
			windows = append(windows, stats)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("seed %d: %w", seed, err)
	}
	defer g.Unload()

	for g.Tick() < int64(cfg.Tune.Ticks) {
		g.UpdateHeadless()
	}
	return windows, nil
}

// configFor copies the base config with the tuning population, window size
// and candidate weights applied.
func (fe *FitnessEvaluator) configFor(x []float64) *config.Config {
	cfg := *fe.baseConfig
	cfg.Population.Size = cfg.Tune.Population
	cfg.Telemetry.StatsWindow = max(cfg.Tune.Ticks/10, 1)
	fe.params.ApplyToConfig(&cfg, x)
	cfg.ComputeDerived()
	return &cfg
}

// score rates a run's windows. The first half of the run is warmup; the
// rest is compared against the target polarization with a penalty for time
// spent inside the predator's strike radius.
func (fe *FitnessEvaluator) score(windows []telemetry.WindowStats) Score {
	scored := windows[len(windows)/2:]
	if len(scored) == 0 {
		return Score{Fitness: math.Inf(1)}
	}

	var s Score
	var predatedTicks, agentTicks float64
	for _, w := range scored {
		s.Polarization += w.Polarization
		predatedTicks += float64(w.PredatedTicks)
		agentTicks += float64(w.Agents) * float64(w.WindowEndTick-w.WindowStartTick)
	}
	s.Polarization /= float64(len(scored))
	if agentTicks > 0 {
		s.PredatedShare = predatedTicks / agentTicks
	}

	tune := fe.baseConfig.Tune
	s.Fitness = math.Abs(s.Polarization-tune.TargetPolarization) + tune.PredatedPenalty*s.PredatedShare
	return s
}
