package rhino

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the result code returned by every engine entry point.
type Status int32

const (
	StatusSuccess                Status = 0
	StatusOutOfMemory            Status = 1
	StatusIOError                Status = 2
	StatusInvalidArgument        Status = 3
	StatusStopIteration          Status = 4
	StatusKeyError               Status = 5
	StatusInvalidState           Status = 6
	StatusRuntimeError           Status = 7
	StatusActivationError        Status = 8
	StatusActivationLimitReached Status = 9
	StatusActivationThrottled    Status = 10
	StatusActivationRefused      Status = 11
)

var statusNames = [...]string{
	StatusSuccess:                "SUCCESS",
	StatusOutOfMemory:            "OUT_OF_MEMORY",
	StatusIOError:                "IO_ERROR",
	StatusInvalidArgument:        "INVALID_ARGUMENT",
	StatusStopIteration:          "STOP_ITERATION",
	StatusKeyError:               "KEY_ERROR",
	StatusInvalidState:           "INVALID_STATE",
	StatusRuntimeError:           "RUNTIME_ERROR",
	StatusActivationError:        "ACTIVATION_ERROR",
	StatusActivationLimitReached: "ACTIVATION_LIMIT_REACHED",
	StatusActivationThrottled:    "ACTIVATION_THROTTLED",
	StatusActivationRefused:      "ACTIVATION_REFUSED",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("UNKNOWN_STATUS(%d)", int32(s))
}

// Error reports a failed engine call or a local validation failure. Engine
// failures carry the diagnostic lines the engine recorded, oldest first.
type Error struct {
	Status       Status
	Message      string
	MessageStack []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	b.WriteString(": ")
	b.WriteString(e.Status.String())
	for i, line := range e.MessageStack {
		fmt.Fprintf(&b, "\n  [%d] %s", i, line)
	}
	return b.String()
}

// Is matches any *Error with the same status, so callers can test kinds with
// errors.Is(err, rhino.ErrActivationLimitReached).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Status == e.Status
}

// Error kinds, one per engine status.
var (
	ErrOutOfMemory            = &Error{Status: StatusOutOfMemory, Message: "out of memory"}
	ErrIO                     = &Error{Status: StatusIOError, Message: "i/o error"}
	ErrInvalidArgument        = &Error{Status: StatusInvalidArgument, Message: "invalid argument"}
	ErrStopIteration          = &Error{Status: StatusStopIteration, Message: "stop iteration"}
	ErrKey                    = &Error{Status: StatusKeyError, Message: "key error"}
	ErrInvalidState           = &Error{Status: StatusInvalidState, Message: "invalid state"}
	ErrRuntime                = &Error{Status: StatusRuntimeError, Message: "runtime error"}
	ErrActivation             = &Error{Status: StatusActivationError, Message: "activation error"}
	ErrActivationLimitReached = &Error{Status: StatusActivationLimitReached, Message: "activation limit reached"}
	ErrActivationThrottled    = &Error{Status: StatusActivationThrottled, Message: "activation throttled"}
	ErrActivationRefused      = &Error{Status: StatusActivationRefused, Message: "activation refused"}
)

// ErrNativeUnavailable is returned by OpenLibrary in builds without cgo.
var ErrNativeUnavailable = errors.New("rhino: native backend unavailable")

func localError(status Status, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}
