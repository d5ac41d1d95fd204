// Package status classifies flight progress from observed departure and arrival times.
package status

import (
	"fmt"
	"time"
)

// Status represents the lifecycle phase of a tracked flight.
// Values are ordered: a later phase always compares greater than an earlier one.
type Status int

const (
	// Awaiting means the flight has not departed yet
	Awaiting Status = iota

	// Departed means the flight has an actual departure time but no arrival
	Departed

	// Arrived means the flight has both actual departure and arrival times.
	// It is terminal: no refresh ever moves a flight out of it.
	Arrived
)

var statusNames = [...]string{
	Awaiting: "AWAITING",
	Departed: "DEPARTED",
	Arrived:  "ARRIVED",
}

// String returns the wire token for the status
func (s Status) String() string {
	if s < Awaiting || s > Arrived {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == Arrived
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	if s < Awaiting || s > Arrived {
		return nil, fmt.Errorf("invalid status: %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parse converts a wire token into a Status
func Parse(value string) (Status, error) {
	for i, name := range statusNames {
		if name == value {
			return Status(i), nil
		}
	}
	return Awaiting, fmt.Errorf("unknown status %q", value)
}

// Classify maps a pair of observed times to a status.
// An arrival without a departure is treated as not departed.
func Classify(departure, arrival *time.Time) Status {
	switch {
	case departure != nil && arrival != nil:
		return Arrived
	case departure != nil:
		return Departed
	default:
		return Awaiting
	}
}

// Merge returns the later of the current and observed phases, so a refresh
// can move a flight forward but never back.
func Merge(current, observed Status) Status {
	return max(current, observed)
}
