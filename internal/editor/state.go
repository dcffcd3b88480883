// Package editor implements the create/edit modal shared by every screen as
// an explicit state machine over one Edit Draft.
package editor

import (
	"errors"
	"fmt"
)

// Phase is the modal state. Only Empty and Populated hold an editable draft.
type Phase int

const (
	Closed Phase = iota
	Loading
	Empty
	Populated
	Saving
	Failed
)

var phaseNames = map[Phase]string{
	Closed:    "closed",
	Loading:   "loading",
	Empty:     "empty",
	Populated: "populated",
	Saving:    "saving",
	Failed:    "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText renders the phase name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

var transitions = map[Phase][]Phase{
	Closed:    {Empty, Loading, Populated},
	Loading:   {Populated, Failed, Closed},
	Empty:     {Saving, Closed},
	Populated: {Saving, Closed},
	Saving:    {Closed, Empty, Populated},
	Failed:    {Closed},
}

var (
	// ErrIllegalTransition rejects operations the current phase does not allow.
	ErrIllegalTransition = errors.New("editor: illegal transition")
	// ErrBusy rejects a second save while one is in flight.
	ErrBusy = errors.New("editor: save already in progress")
	// ErrNotConfirmed is returned when a destructive action was declined.
	ErrNotConfirmed = errors.New("editor: action not confirmed")
)

func canTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Outcome tells the parent screen whether its list must be refreshed.
type Outcome struct {
	Changed bool `json:"changed"`
}
