package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFlockFormed    BookmarkType = "flock_formed"
	BookmarkFlockScattered BookmarkType = "flock_scattered"
	BookmarkPredatorFrenzy BookmarkType = "predator_frenzy"
	BookmarkFragmentation  BookmarkType = "fragmentation"
	BookmarkSteadyState    BookmarkType = "steady_state"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int64        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// Thresholds for the bookmark checks.
const (
	formedPolarization = 0.8  // Polarization that counts as one coherent flock
	scatterDrop        = 0.3  // Polarization drop from the recent peak
	frenzyFactor       = 2.0  // Strikes relative to the rolling average
	frenzyMinStrikes   = 10   // Ignore frenzies on tiny counts
	fragmentFraction   = 0.10 // Isolated share that counts as fragmented
	steadyWindows      = 5    // Consecutive low-variance windows
)

// BookmarkDetector detects interesting moments in the flock's evolution.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	formed      bool    // Polarization currently above formedPolarization
	recentPeak  float64 // Highest polarization since the last scatter
	fragmented  bool
	steadyCount int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < steadyWindows {
		historySize = steadyWindows
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	for _, check := range []func(WindowStats) *Bookmark{
		bd.checkFlockFormed,
		bd.checkFlockScattered,
		bd.checkPredatorFrenzy,
		bd.checkFragmentation,
		bd.checkSteadyState,
	} {
		if b := check(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	if stats.Polarization > bd.recentPeak {
		bd.recentPeak = stats.Polarization
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the recorded windows, oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	ordered := make([]WindowStats, 0, bd.historySize)
	ordered = append(ordered, bd.history[bd.historyIdx:]...)
	return append(ordered, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkFlockFormed(stats WindowStats) *Bookmark {
	if stats.Polarization < formedPolarization {
		bd.formed = false
		return nil
	}
	if bd.formed {
		return nil
	}
	bd.formed = true
	return &Bookmark{
		Type:        BookmarkFlockFormed,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Polarization reached %.2f", stats.Polarization),
	}
}

func (bd *BookmarkDetector) checkFlockScattered(stats WindowStats) *Bookmark {
	if bd.recentPeak == 0 {
		return nil
	}
	drop := bd.recentPeak - stats.Polarization
	if drop <= scatterDrop {
		return nil
	}

	oldPeak := bd.recentPeak
	bd.recentPeak = stats.Polarization
	return &Bookmark{
		Type:        BookmarkFlockScattered,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Polarization fell from %.2f to %.2f", oldPeak, stats.Polarization),
	}
}

func (bd *BookmarkDetector) checkPredatorFrenzy(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Strikes
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.Strikes) > avg*frenzyFactor && stats.Strikes >= frenzyMinStrikes {
		return &Bookmark{
			Type:        BookmarkPredatorFrenzy,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d strikes is %.1fx average (%.1f)", stats.Strikes, float64(stats.Strikes)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkFragmentation(stats WindowStats) *Bookmark {
	if stats.Agents == 0 {
		return nil
	}
	share := float64(stats.Isolated) / float64(stats.Agents)
	if share < fragmentFraction {
		bd.fragmented = false
		return nil
	}
	if bd.fragmented {
		return nil
	}
	bd.fragmented = true
	return &Bookmark{
		Type:        BookmarkFragmentation,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%.0f%% of agents have no neighbors", share*100),
	}
}

func (bd *BookmarkDetector) checkSteadyState(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < steadyWindows-1 {
		return nil
	}

	// Spread of polarization and mean neighbor count over the recent windows
	recent := make([]WindowStats, 0, steadyWindows)
	recent = append(recent, history[len(history)-(steadyWindows-1):]...)
	recent = append(recent, stats)
	polLo, polHi := recent[0].Polarization, recent[0].Polarization
	var nSum float64
	for _, h := range recent {
		polLo = min(polLo, h.Polarization)
		polHi = max(polHi, h.Polarization)
		nSum += h.NeighborMean
	}
	nMean := nSum / float64(len(recent))
	var nVar float64
	for _, h := range recent {
		d := h.NeighborMean - nMean
		nVar += d * d
	}
	nVar /= float64(len(recent))

	steady := polHi-polLo < 0.05 && (nMean == 0 || nVar/(nMean*nMean) < 0.01)
	if steady {
		bd.steadyCount++
	} else {
		bd.steadyCount = 0
	}

	// Trigger once per steady stretch
	if bd.steadyCount == 1 {
		return &Bookmark{
			Type:        BookmarkSteadyState,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Polarization %.2f and %.1f neighbors held over %d windows", stats.Polarization, nMean, steadyWindows),
		}
	}
	return nil
}
