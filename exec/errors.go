package locexec

import "fmt"

// Kind enumerates the error taxonomy of spec.md §7. None of these are
// ever converted to a boolean; callers switch on Kind when they need to
// branch, and the message is always safe to show.
type Kind string

const (
	KindSessionLost  Kind = "session_lost"
	KindTimeout      Kind = "timeout"
	KindAmbiguous    Kind = "ambiguous"
	KindNotFound     Kind = "not_found"
	KindStale        Kind = "stale"
	KindOccluded     Kind = "occluded"
	KindDisabled     Kind = "disabled"
	KindOffScreen    Kind = "off_screen"
	KindStoreCorrupt Kind = "store_corrupt"
)

// Error is a typed locexec failure. Stage records which part of the
// pipeline raised it, for log correlation with heal.Attempt's transition
// log.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("locexec: %s: %s", e.Stage, e.Message)
}

func newError(kind Kind, stage, message string) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message}
}
