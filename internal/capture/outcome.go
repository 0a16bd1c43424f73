package capture

import "github.com/shahar-caura/lurker/internal/event"

// State is a step of the capture state machine.
type State string

const (
	StateIdle         State = "idle"
	StateAwaitingCopy State = "awaiting_copy"
	StateValidating   State = "validating"
	StateEmit         State = "emit"
	StateRetry        State = "retry"
	StateAbandon      State = "abandon"
)

// Abandon reasons.
const (
	ReasonCopyFailed   = "copy keystroke failed"
	ReasonReadFailed   = "clipboard read failed"
	ReasonUnrecognized = "unrecognized text"
	ReasonParseFailed  = "item did not parse"
	ReasonUnidentified = "item still unidentified"
	ReasonDuplicate    = "duplicate text"
	ReasonEmpty        = "empty text"
	ReasonCancelled    = "cancelled"
)

// Outcome is where one pass through the state machine ended. State is
// always StateEmit or StateAbandon.
type Outcome struct {
	State    State
	Reason   string
	Attempts int
	Event    event.Event // nil unless State is StateEmit
	Err      error       // underlying failure, if any
}

// Emitted reports whether the pass produced an event.
func (o Outcome) Emitted() bool { return o.State == StateEmit }

// Stats counts what the orchestrator has done since construction.
type Stats struct {
	Gestures     int64 `json:"gestures" yaml:"gestures"`
	Items        int64 `json:"items" yaml:"items"`
	Trades       int64 `json:"trades" yaml:"trades"`
	Abandoned    int64 `json:"abandoned" yaml:"abandoned"`
	Deduplicated int64 `json:"deduplicated" yaml:"deduplicated"`
	Dropped      int64 `json:"dropped" yaml:"dropped"`
}
