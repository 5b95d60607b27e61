package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
)

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	m := New(nil)
	if err := m.Configure(Config{Thresholds: testThresholds, HistoryCapacity: 100}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	base := time.Now()
	for i := 0; i < 150; i++ {
		_, err := m.Evaluate(reading(base.Add(time.Duration(i)*time.Second), 850, 10, 30, 0.2))
		if err != nil {
			t.Fatalf("evaluate %d: %v", i, err)
		}
	}

	evs := m.All()
	if len(evs) != 100 {
		t.Fatalf("expected history capped at 100, got %d", len(evs))
	}
	// The 50 oldest events must be the ones dropped.
	if !evs[0].Timestamp.Equal(base.Add(50 * time.Second)) {
		t.Fatalf("expected oldest surviving event at +50s, got %v", evs[0].Timestamp)
	}
	if !evs[99].Timestamp.Equal(base.Add(149 * time.Second)) {
		t.Fatalf("expected newest event at +149s, got %v", evs[99].Timestamp)
	}
}

func TestHistoryTimestampsNeverRegress(t *testing.T) {
	h := newEventHistory(10)
	base := time.Now()

	h.append(domain.Event{Timestamp: base, Level: domain.LevelWarning})
	h.append(domain.Event{Timestamp: base.Add(-time.Minute), Level: domain.LevelWarning})

	evs := h.all()
	if evs[1].Timestamp.Before(evs[0].Timestamp) {
		t.Fatalf("history contains non-monotonic timestamps: %v then %v", evs[0].Timestamp, evs[1].Timestamp)
	}
}

func TestHistoryConcurrentReadsDuringAppend(t *testing.T) {
	h := newEventHistory(64)
	base := time.Now()

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.append(domain.Event{Timestamp: base.Add(time.Duration(i) * time.Millisecond), Level: domain.LevelWarning})
		}
		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			evs := h.recent(16)
			for i := 1; i < len(evs); i++ {
				if evs[i].Timestamp.Before(evs[i-1].Timestamp) {
					t.Errorf("torn read: %v before %v", evs[i].Timestamp, evs[i-1].Timestamp)
					return
				}
			}
		}
	}()

	wg.Wait()
}
