// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Population PopulationConfig `yaml:"population"`
	Grid       GridConfig       `yaml:"grid"`
	Flock      FlockConfig      `yaml:"flock"`
	Predator   PredatorConfig   `yaml:"predator"`
	Speed      SpeedConfig      `yaml:"speed"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Parallel   ParallelConfig   `yaml:"parallel"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Server     ServerConfig     `yaml:"server"`
	Tune       TuneConfig       `yaml:"tune"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the toroidal domain dimensions.
// Zero means "derive from the screen size", truncated to a whole number of cells.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PopulationConfig holds population parameters.
type PopulationConfig struct {
	Size          int     `yaml:"size"`           // Regular agents; the predator is added on top
	InitSpeedMean float64 `yaml:"init_speed_mean"` // Initial speed distribution mean
	InitSpeedStd  float64 `yaml:"init_speed_std"`  // Initial speed distribution stddev
}

// GridConfig holds spatial hash parameters.
type GridConfig struct {
	CellSize       int `yaml:"cell_size"`
	HashSize       int `yaml:"hash_size"`        // Number of buckets
	InitialCellCap int `yaml:"initial_cell_cap"` // Starting capacity per bucket
	NearestRadius  int `yaml:"nearest_radius"`   // Initial cell radius of nearest-agent search
}

// FlockConfig holds the flocking rule parameters.
type FlockConfig struct {
	NeighborRadius  float64 `yaml:"neighbor_radius"`
	ProtectedRadius float64 `yaml:"protected_radius"`
	AvoidFactor     float64 `yaml:"avoid_factor"`
	MatchFactor     float64 `yaml:"match_factor"`
	CenterFactor    float64 `yaml:"center_factor"`
	CollisionNudge  float64 `yaml:"collision_nudge"` // Magnitude of the random push for coincident agents

	AlignmentWeight  float64 `yaml:"alignment_weight"`
	CohesionWeight   float64 `yaml:"cohesion_weight"`
	SeparationWeight float64 `yaml:"separation_weight"`
}

// PredatorConfig holds predator parameters.
type PredatorConfig struct {
	Radius       float64 `yaml:"radius"`        // Strike radius
	VisualRadius float64 `yaml:"visual_radius"` // Vision radius used for steering
	AvoidFactor  float64 `yaml:"avoid_factor"`  // Repulsion applied to agents within Radius
}

// SpeedConfig holds speed bounds.
type SpeedConfig struct {
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	Predator float64 `yaml:"predator"`
}

// PhysicsConfig holds integration parameters.
type PhysicsConfig struct {
	ReferenceFPS float64 `yaml:"reference_fps"` // Velocities are expressed per frame at this rate
	FallbackDT   float64 `yaml:"fallback_dt"`   // Used when the measured frame time is exactly zero
}

// ParallelConfig holds worker pool parameters.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
	Threshold int `yaml:"threshold"` // Below this many agents the parallel phase runs inline
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"`          // Ticks per stats window
	PerfCollectorWindow int `yaml:"perf_collector_window"` // Ticks averaged by the perf collector
	SnapshotInterval    int `yaml:"snapshot_interval"`     // Ticks between published observer snapshots
	FrameInterval       int `yaml:"frame_interval"`        // Ticks between PNG frames written to -frames-dir
}

// ServerConfig holds observer server parameters.
type ServerConfig struct {
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	BroadcastMS       int      `yaml:"broadcast_ms"`
	MaxClients        int      `yaml:"max_clients"`
	FrameWidth        int      `yaml:"frame_width"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

// TuneConfig holds weight search parameters for cmd/tune.
type TuneConfig struct {
	Population         int     `yaml:"population"`
	Ticks              int     `yaml:"ticks"`
	TargetPolarization float64 `yaml:"target_polarization"`
	PredatedPenalty    float64 `yaml:"predated_penalty"`
	MaxEvals           int     `yaml:"max_evals"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WorldW         int     // Effective world width
	WorldH         int     // Effective world height
	Cols           int     // Grid columns
	Rows           int     // Grid rows
	NeighborCells  int     // ceil(NeighborRadius / CellSize)
	PredatorCells  int     // ceil(Predator.VisualRadius / CellSize)
	NeighborRadSq  float64 // NeighborRadius²
	ProtectedRadSq float64 // ProtectedRadius²
	PredatorRadSq  float64 // Predator.Radius²
	VisualRadSq    float64 // Predator.VisualRadius²
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ComputeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ComputeDerived calculates values derived from the loaded config.
// Call it again after mutating fields in code.
func (c *Config) ComputeDerived() {
	cell := c.Grid.CellSize

	// World dimensions default to the screen size, cut down to whole cells
	worldW := c.World.Width
	if worldW == 0 && cell > 0 {
		worldW = (c.Screen.Width / cell) * cell
	}
	worldH := c.World.Height
	if worldH == 0 && cell > 0 {
		worldH = (c.Screen.Height / cell) * cell
	}
	c.Derived.WorldW = worldW
	c.Derived.WorldH = worldH

	if cell > 0 {
		c.Derived.Cols = worldW / cell
		c.Derived.Rows = worldH / cell
		c.Derived.NeighborCells = int(math.Ceil(c.Flock.NeighborRadius / float64(cell)))
		c.Derived.PredatorCells = int(math.Ceil(c.Predator.VisualRadius / float64(cell)))
	}

	c.Derived.NeighborRadSq = c.Flock.NeighborRadius * c.Flock.NeighborRadius
	c.Derived.ProtectedRadSq = c.Flock.ProtectedRadius * c.Flock.ProtectedRadius
	c.Derived.PredatorRadSq = c.Predator.Radius * c.Predator.Radius
	c.Derived.VisualRadSq = c.Predator.VisualRadius * c.Predator.VisualRadius
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate rejects configurations that would break the wraparound arithmetic
// or the speed and radius invariants.
func (c *Config) Validate() error {
	if c.Grid.CellSize <= 0 {
		return fmt.Errorf("%w: grid.cell_size must be positive, got %d", ErrInvalid, c.Grid.CellSize)
	}
	if c.Grid.HashSize <= 0 {
		return fmt.Errorf("%w: grid.hash_size must be positive, got %d", ErrInvalid, c.Grid.HashSize)
	}
	if c.Grid.InitialCellCap <= 0 {
		return fmt.Errorf("%w: grid.initial_cell_cap must be positive, got %d", ErrInvalid, c.Grid.InitialCellCap)
	}
	if err := ValidateDomain(c.Derived.WorldW, c.Derived.WorldH, c.Grid.CellSize); err != nil {
		return err
	}
	if c.Population.Size < 0 {
		return fmt.Errorf("%w: population.size must not be negative, got %d", ErrInvalid, c.Population.Size)
	}
	if c.Flock.ProtectedRadius <= 0 || c.Flock.ProtectedRadius > c.Flock.NeighborRadius {
		return fmt.Errorf("%w: need 0 < flock.protected_radius <= flock.neighbor_radius", ErrInvalid)
	}
	if c.Predator.Radius <= 0 || c.Predator.Radius > c.Predator.VisualRadius {
		return fmt.Errorf("%w: need 0 < predator.radius <= predator.visual_radius", ErrInvalid)
	}
	if c.Speed.Min <= 0 || c.Speed.Min > c.Speed.Max || c.Speed.Min > c.Speed.Predator {
		return fmt.Errorf("%w: need 0 < speed.min <= speed.max and speed.min <= speed.predator", ErrInvalid)
	}
	if c.Physics.ReferenceFPS <= 0 || c.Physics.FallbackDT <= 0 {
		return fmt.Errorf("%w: physics.reference_fps and physics.fallback_dt must be positive", ErrInvalid)
	}
	if c.Parallel.Workers < 0 {
		return fmt.Errorf("%w: parallel.workers must not be negative", ErrInvalid)
	}
	return nil
}

// ValidateDomain checks domain dimensions against the grid cell size.
// Dimensions must be positive even integers and whole multiples of the cell size.
func ValidateDomain(width, height, cellSize int) error {
	if cellSize <= 0 {
		return fmt.Errorf("%w: cell size must be positive, got %d", ErrInvalid, cellSize)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: world dimensions must be positive, got %dx%d", ErrInvalid, width, height)
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("%w: world dimensions must be even, got %dx%d", ErrInvalid, width, height)
	}
	if width%cellSize != 0 || height%cellSize != 0 {
		return fmt.Errorf("%w: world %dx%d is not a multiple of cell size %d", ErrInvalid, width, height, cellSize)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
