package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/joho/godotenv"

	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/game"
	"github.com/pthm-cable/boids/server"
	"github.com/pthm-cable/boids/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("boids failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// run parses args and drives the simulation until ctx is cancelled, the tick
// limit is reached or the window closes. Any startup failure is returned
// before a window is opened.
func run(ctx context.Context, args []string) error {
	// .env supplies flag defaults; a missing file is fine
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env", "error", err)
	}

	// CLI flags
	fs := flag.NewFlagSet("boids", flag.ContinueOnError)
	configPath := fs.String("config", envOr("BOIDS_CONFIG", ""), "Path to config.yaml (empty = use defaults)")
	headless := fs.Bool("headless", envOr("BOIDS_HEADLESS", "") == "1", "Run without graphics")
	logStats := fs.Bool("log-stats", false, "Output stats via slog")
	outputDir := fs.String("output-dir", envOr("BOIDS_OUTPUT_DIR", ""), "Output directory for CSV logs, config copy and snapshots")
	framesDir := fs.String("frames-dir", "", "Directory for PNG frame dumps (empty = disabled)")
	httpAddr := fs.String("http", envOr("BOIDS_HTTP_ADDR", ""), "Observer server address, e.g. :8080 (empty = disabled)")
	seed := fs.Uint64("seed", envUint("BOIDS_SEED", 0), "RNG seed (0 = time-based)")
	maxTicks := fs.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	debug := fs.Bool("debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := config.Init(*configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	host, err := telemetry.ReadHostInfo()
	if err != nil {
		slog.Warn("incomplete host info", "error", err)
	}
	slog.Info("host", "info", host)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := game.Options{
		Seed:      rngSeed,
		Headless:  *headless,
		LogStats:  *logStats,
		OutputDir: *outputDir,
		FramesDir: *framesDir,
	}

	if *httpAddr != "" {
		opts.Publisher = &server.Publisher{}
		opts.Metrics = telemetry.NewMetrics()
		srv := server.New(cfg.Server, opts.Publisher, opts.Metrics)
		defer srv.Close()

		go func() {
			if err := srv.Run(ctx, *httpAddr); err != nil {
				slog.Error("observer server failed", "error", err)
				cancel()
			}
		}()
	}

	// The game needs no window, so a bad setup fails the same way in both
	// modes
	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		return fmt.Errorf("starting simulation: %w", err)
	}
	defer g.Unload()

	if *headless {
		slog.Info("starting headless simulation",
			"seed", rngSeed,
			"max_ticks", *maxTicks,
			"http", *httpAddr,
		)

		for ctx.Err() == nil {
			g.UpdateHeadless()

			if *maxTicks > 0 && g.Tick() >= int64(*maxTicks) {
				slog.Info("max ticks reached", "tick", g.Tick())
				return nil
			}
		}
		slog.Info("interrupted", "tick", g.Tick())
		return nil
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), game.Title)
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		g.Update(float64(rl.GetFrameTime()))
		g.Draw()

		if *maxTicks > 0 && g.Tick() >= int64(*maxTicks) {
			break
		}
	}
	return nil
}

// envUint parses the environment value for key, or returns def when unset
// or malformed.
func envUint(key string, def uint64) uint64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		slog.Warn("ignoring malformed environment value", "key", key, "value", v, "error", err)
		return def
	}
	return n
}

// envOr returns the environment value for key, or def when unset.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
