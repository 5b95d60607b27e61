// Package alert provides AlertSink implementations: a log writer for
// operator consoles and a bounded in-memory buffer backing status views.
package alert

import (
	"log"
	"strings"
	"sync"

	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/ports"
)

// LogSink writes every alert to the standard logger, uppercasing the
// severity so emergency lines stand out in a scrollback.
type LogSink struct {
	logger *log.Logger
}

func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(a domain.Alert) {
	tag := strings.ToUpper(a.Severity.String())
	if a.Sticky {
		tag += " (sticky)"
	}
	s.logger.Printf("[%s] %s", tag, a.Message)
}

// MemorySink keeps the newest alerts in a bounded buffer. Sticky alerts
// survive Clear so an unacknowledged emergency banner cannot be dismissed
// by clearing the feed.
type MemorySink struct {
	mu     sync.Mutex
	max    int
	alerts []domain.Alert
}

func NewMemorySink(max int) *MemorySink {
	if max <= 0 {
		max = 100
	}
	return &MemorySink{max: max}
}

func (s *MemorySink) Notify(a domain.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.alerts) >= s.max {
		s.alerts = append(s.alerts[:0], s.alerts[1:]...)
	}
	s.alerts = append(s.alerts, a)
}

// Recent returns the newest n alerts, newest first.
func (s *MemorySink) Recent(n int) []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.alerts) {
		n = len(s.alerts)
	}
	out := make([]domain.Alert, 0, n)
	for i := len(s.alerts) - 1; i >= len(s.alerts)-n; i-- {
		out = append(out, s.alerts[i])
	}
	return out
}

// Clear drops non-sticky alerts.
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if a.Sticky {
			kept = append(kept, a)
		}
	}
	s.alerts = kept
}

// Fanout dispatches each alert to every sink in order.
type Fanout []ports.AlertSink

func (f Fanout) Notify(a domain.Alert) {
	for _, s := range f {
		if s != nil {
			s.Notify(a)
		}
	}
}

var (
	_ ports.AlertSink = (*LogSink)(nil)
	_ ports.AlertSink = (*MemorySink)(nil)
	_ ports.AlertSink = (Fanout)(nil)
)
