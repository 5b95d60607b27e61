package domain

import "time"

// Breach records one metric crossing a breakpoint during classification.
type Breach struct {
	Metric    Metric      `json:"metric"`
	Value     float64     `json:"value"`
	Threshold float64     `json:"threshold"`
	Fraction  float64     `json:"fraction"`
	Level     SafetyLevel `json:"level"`
}

// Event is appended to the safety history whenever a reading classifies as
// Warning or above. Metric/Value/Threshold/Fraction describe the representative
// breach (highest fraction); Breaches lists every triggering metric.
type Event struct {
	Timestamp time.Time   `json:"ts"`
	Level     SafetyLevel `json:"level"`
	Metric    Metric      `json:"metric"`
	Value     float64     `json:"value"`
	Threshold float64     `json:"threshold"`
	Fraction  float64     `json:"fraction"`
	Breaches  []Breach    `json:"breaches,omitempty"`
}

// Alert is the user-visible notification derived from an event or a state
// transition. Sticky alerts stay visible until acknowledged.
type Alert struct {
	Time     time.Time   `json:"ts"`
	Severity SafetyLevel `json:"severity"`
	Message  string      `json:"message"`
	Sticky   bool        `json:"sticky"`
	Event    *Event      `json:"event,omitempty"`
}

// Summary aggregates event counts per level over a trailing window. Normal
// readings never reach the history, so only Warning and above are counted.
type Summary struct {
	Window    time.Duration `json:"window"`
	Total     int           `json:"total"`
	Warning   int           `json:"warning"`
	Danger    int           `json:"danger"`
	Emergency int           `json:"emergency"`
}

// Percent returns the share of windowed events at the given level, in percent.
func (s Summary) Percent(level SafetyLevel) float64 {
	if s.Total == 0 {
		return 0
	}
	var n int
	switch level {
	case LevelWarning:
		n = s.Warning
	case LevelDanger:
		n = s.Danger
	case LevelEmergency:
		n = s.Emergency
	}
	return float64(n) / float64(s.Total) * 100
}
