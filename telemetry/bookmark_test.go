package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FlockFormed(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 600), Polarization: 0.2, Agents: 100})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 1800, Polarization: 0.9, Agents: 100})
	if !hasBookmark(bookmarks, BookmarkFlockFormed) {
		t.Error("expected flock_formed bookmark")
	}

	// Staying formed does not re-trigger
	bookmarks = bd.Check(WindowStats{WindowEndTick: 2400, Polarization: 0.92, Agents: 100})
	if hasBookmark(bookmarks, BookmarkFlockFormed) {
		t.Error("flock_formed triggered twice without dropping below the threshold")
	}
}

func TestBookmarkDetector_FlockScattered(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 600), Polarization: 0.85, Agents: 100})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 1800, Polarization: 0.4, Agents: 100})
	if !hasBookmark(bookmarks, BookmarkFlockScattered) {
		t.Error("expected flock_scattered bookmark")
	}

	// Peak resets after triggering
	bookmarks = bd.Check(WindowStats{WindowEndTick: 2400, Polarization: 0.35, Agents: 100})
	if hasBookmark(bookmarks, BookmarkFlockScattered) {
		t.Error("flock_scattered triggered again without a new peak")
	}
}

func TestBookmarkDetector_PredatorFrenzy(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 600), Strikes: 6, Agents: 100})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000, Strikes: 20, Agents: 100})
	if !hasBookmark(bookmarks, BookmarkPredatorFrenzy) {
		t.Error("expected predator_frenzy bookmark")
	}
}

func TestBookmarkDetector_PredatorFrenzyNeedsHistory(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(WindowStats{Strikes: 1})

	if bookmarks := bd.Check(WindowStats{Strikes: 50}); hasBookmark(bookmarks, BookmarkPredatorFrenzy) {
		t.Error("predator_frenzy triggered with under three windows of history")
	}
}

func TestBookmarkDetector_Fragmentation(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if b := bd.Check(WindowStats{Agents: 100, Isolated: 2}); hasBookmark(b, BookmarkFragmentation) {
		t.Error("fragmentation triggered at 2% isolated")
	}
	if b := bd.Check(WindowStats{Agents: 100, Isolated: 30}); !hasBookmark(b, BookmarkFragmentation) {
		t.Error("expected fragmentation bookmark at 30% isolated")
	}
	if b := bd.Check(WindowStats{Agents: 100, Isolated: 35}); hasBookmark(b, BookmarkFragmentation) {
		t.Error("fragmentation triggered twice in one stretch")
	}
}

func TestBookmarkDetector_SteadyState(t *testing.T) {
	bd := NewBookmarkDetector(10)

	var triggered int
	for i := 0; i < 10; i++ {
		stats := WindowStats{
			WindowEndTick: int64(i * 600),
			Agents:        100,
			Polarization:  0.7 + float64(i%2)*0.01,
			NeighborMean:  8,
		}
		if hasBookmark(bd.Check(stats), BookmarkSteadyState) {
			triggered++
		}
	}

	if triggered != 1 {
		t.Errorf("steady_state triggered %d times, want exactly 1", triggered)
	}
}

func TestBookmarkDetector_HistoryOrder(t *testing.T) {
	bd := NewBookmarkDetector(5)
	for i := 0; i < 7; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i)})
	}

	history := bd.getHistory()
	if len(history) != 5 {
		t.Fatalf("history length = %d, want 5", len(history))
	}
	for i, h := range history {
		if h.WindowEndTick != int64(i+2) {
			t.Errorf("history[%d].WindowEndTick = %d, want %d", i, h.WindowEndTick, i+2)
		}
	}
}
