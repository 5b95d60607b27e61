package alert

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
)

func TestLogSinkFormatsSeverity(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(log.New(&buf, "", 0))

	sink.Notify(domain.Alert{
		Time:     time.Now(),
		Severity: domain.LevelEmergency,
		Message:  "EMERGENCY STOP: manual emergency stop",
		Sticky:   true,
	})

	out := buf.String()
	if !strings.Contains(out, "[EMERGENCY (sticky)]") {
		t.Fatalf("missing severity tag: %q", out)
	}
	if !strings.Contains(out, "manual emergency stop") {
		t.Fatalf("missing message: %q", out)
	}
}

func TestMemorySinkBoundedNewestFirst(t *testing.T) {
	sink := NewMemorySink(3)
	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		sink.Notify(domain.Alert{
			Time:     base.Add(time.Duration(i) * time.Second),
			Severity: domain.LevelWarning,
			Message:  "w",
		})
	}

	got := sink.Recent(0)
	if len(got) != 3 {
		t.Fatalf("expected buffer capped at 3, got %d", len(got))
	}
	if !got[0].Time.Equal(base.Add(4 * time.Second)) {
		t.Fatalf("expected newest first, got %v", got[0].Time)
	}
	if !got[2].Time.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("expected oldest survivor last, got %v", got[2].Time)
	}
}

func TestMemorySinkClearKeepsSticky(t *testing.T) {
	sink := NewMemorySink(10)
	sink.Notify(domain.Alert{Severity: domain.LevelWarning, Message: "transient"})
	sink.Notify(domain.Alert{Severity: domain.LevelEmergency, Message: "latched", Sticky: true})
	sink.Notify(domain.Alert{Severity: domain.LevelWarning, Message: "transient 2"})

	sink.Clear()

	got := sink.Recent(0)
	if len(got) != 1 || got[0].Message != "latched" {
		t.Fatalf("expected only the sticky alert to survive, got %+v", got)
	}
}

func TestFanoutReachesAllSinks(t *testing.T) {
	a := NewMemorySink(10)
	b := NewMemorySink(10)
	f := Fanout{a, nil, b}

	f.Notify(domain.Alert{Severity: domain.LevelDanger, Message: "d"})

	if len(a.Recent(0)) != 1 || len(b.Recent(0)) != 1 {
		t.Fatalf("fanout must reach every non-nil sink")
	}
}
