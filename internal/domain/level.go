package domain

import "fmt"

// SafetyLevel is the ordered hazard classification. Escalation logic relies on
// the numeric ordering, never on the string form.
type SafetyLevel int

const (
	LevelNormal SafetyLevel = iota
	LevelWarning
	LevelDanger
	LevelEmergency
)

func (l SafetyLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelWarning:
		return "warning"
	case LevelDanger:
		return "danger"
	case LevelEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalJSON emits the string form so display layers never see raw ints.
func (l SafetyLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}
