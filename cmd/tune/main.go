// Command tune searches the alignment, cohesion and separation weights for
// a flock that stays ordered while the predator hunts it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/telemetry"
)

// evalRow is one line of tune_log.csv.
type evalRow struct {
	Eval          int     `csv:"eval"`
	Fitness       float64 `csv:"fitness"`
	Polarization  float64 `csv:"polarization"`
	PredatedShare float64 `csv:"predated_share"`
	Alignment     float64 `csv:"alignment"`
	Cohesion      float64 `csv:"cohesion"`
	Separation    float64 `csv:"separation"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// newMethod returns the search method named by the -method flag.
func newMethod(name string, dim int) (optimize.Method, error) {
	switch name {
	case "cmaes":
		return &optimize.CmaEsChol{InitStepSize: 0.3, Population: 4 + 3*dim/2}, nil
	case "nelder-mead":
		return &optimize.NelderMead{}, nil
	default:
		return nil, fmt.Errorf("unknown method %q (want cmaes or nelder-mead)", name)
	}
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	seeds := flag.Int("seeds", 2, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 0, "Maximum number of evaluations (0 = use config)")
	methodName := flag.String("method", "cmaes", "Search method: cmaes or nelder-mead")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	evals := *maxEvals
	if evals == 0 {
		evals = baseCfg.Tune.MaxEvals
	}

	params := NewParamVector()
	evalSeeds := make([]uint64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, evalSeeds, baseCfg)

	method, err := newMethod(*methodName, params.Dim())
	if err != nil {
		log.Fatal(err)
	}

	logFile, err := os.Create(filepath.Join(*outputDir, "tune_log.csv"))
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			score := evaluator.LastScore()
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = raw
			}

			row := []evalRow{{
				Eval:          evalCount,
				Fitness:       fitness,
				Polarization:  score.Polarization,
				PredatedShare: score.PredatedShare,
				Alignment:     raw[0],
				Cohesion:      raw[1],
				Separation:    raw[2],
			}}
			write := gocsv.MarshalWithoutHeaders
			if evalCount == 1 {
				write = gocsv.Marshal
			}
			if err := write(row, logFile); err != nil {
				log.Printf("failed to log eval %d: %v", evalCount, err)
			}

			elapsed := time.Since(startTime)
			remaining := time.Duration(evals-evalCount) * (elapsed / time.Duration(evalCount))
			fmt.Printf("Eval %d/%d: fitness=%.4f polarization=%.3f predated=%.4f (best=%.4f) | elapsed: %s, ETA: %s\n",
				evalCount, evals, fitness, score.Polarization, score.PredatedShare, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: evals,
		Concurrent:      0, // Seeds already run in parallel
	}

	fmt.Printf("Starting %s search over %d weights, max_evals=%d, seeds=%d, ticks=%d, population=%d\n",
		*methodName, params.Dim(), evals, *seeds, baseCfg.Tune.Ticks, baseCfg.Tune.Population)

	initX := params.Normalize(params.ExtractFromConfig(baseCfg))
	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("search ended: %v", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	fmt.Printf("\nSearch complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.4f\n", bestFitness)
	fmt.Println("\nBest weights:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.4f\n", spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}

	if windows := evaluator.BestWindows(); len(windows) > 0 {
		if err := writeWindows(filepath.Join(*outputDir, "best_windows.csv"), windows); err != nil {
			log.Printf("failed to write best windows: %v", err)
		}
	}
}

// writeWindows saves the stats windows of the best run as CSV.
func writeWindows(path string, windows []telemetry.WindowStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(&windows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
