package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/boids/config"
)

// csvFile appends gocsv records, writing the header with the first batch.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{f: f}, nil
}

// write marshals records, which must be a slice of csv-tagged structs.
func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles structured run output: window stats, perf samples
// and bookmarks as CSV, the effective config as YAML and snapshots as JSON.
// A nil *OutputManager discards everything.
type OutputManager struct {
	dir       string
	stats     *csvFile
	perf      *csvFile
	bookmarks *csvFile
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	var err error
	if om.stats, err = createCSV(dir, "stats.csv"); err != nil {
		return nil, err
	}
	if om.perf, err = createCSV(dir, "perf.csv"); err != nil {
		om.Close()
		return nil, err
	}
	if om.bookmarks, err = createCSV(dir, "bookmarks.csv"); err != nil {
		om.Close()
		return nil, err
	}
	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStats appends a window stats record to stats.csv.
func (om *OutputManager) WriteStats(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.stats.write([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark appends a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := om.bookmarks.write([]Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteSnapshot saves a snapshot under the snapshots subdirectory.
func (om *OutputManager) WriteSnapshot(s *Snapshot) (string, error) {
	if om == nil {
		return "", nil
	}
	return SaveSnapshot(s, filepath.Join(om.dir, "snapshots"))
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files and returns the first error.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.stats, om.perf, om.bookmarks} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
