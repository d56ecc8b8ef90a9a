package overtime

import (
	"fmt"
	"strings"
)

// Mode selects where the person set comes from.
type Mode int

const (
	// ModeRosterDriven reports exactly the roster, zero activity included.
	ModeRosterDriven Mode = iota
	// ModeSourceDriven reports whoever the worklog sources return.
	ModeSourceDriven
)

func (m Mode) String() string {
	switch m {
	case ModeRosterDriven:
		return "roster"
	case ModeSourceDriven:
		return "source"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "roster" and "source" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "roster", "roster-driven", "roster_driven":
		return ModeRosterDriven, nil
	case "source", "source-driven", "source_driven":
		return ModeSourceDriven, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}
