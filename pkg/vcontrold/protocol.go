package vcontrold

import (
	"errors"
	"fmt"
	"strings"
)

// Constants of the vcontrold text protocol
const (
	// Prompt is sent by vcontrold whenever it is ready to accept a command.
	Prompt = "vctrld>"

	// LineTerminator ends every command written to the socket.
	LineTerminator = "\n"

	// IdentifyCommand asks the heating control for model, ID and protocol.
	IdentifyCommand = "getDevType"

	// DefaultMaxReplySize is the byte ceiling for a single read.
	// Replies carry no length field, so one read of at most this size
	// is treated as the whole reply.
	DefaultMaxReplySize = 1000

	// Reply markers
	markerNotOK        = "NOT OK"
	markerUnknown      = "command unknown"
	markerWrongResult  = "Wrong result, terminating"
	verboseTempSuffix  = "Grad Celsius"
	timerPlaceholder   = "--"
	devTypeIDPrefix    = "ID="
	devTypeProtoPrefix = "Protokoll:"
)

var (
	// ErrConnection is returned when the socket cannot be opened or a read fails.
	ErrConnection = errors.New("connection error")
	// ErrIO is returned when a command cannot be written completely.
	ErrIO = errors.New("i/o error")
	// ErrProtocol marks replies that do not have the expected shape.
	ErrProtocol = errors.New("protocol error")
	// ErrCommandUnavailable marks commands skipped because they are disabled
	// or not valid for the identified device.
	ErrCommandUnavailable = errors.New("command unavailable")
	// ErrPermanentFailure marks replies that disable the command.
	ErrPermanentFailure = errors.New("permanent command failure")
	// ErrTransientFailure marks replies worth retrying on a later run.
	ErrTransientFailure = errors.New("transient command failure")
	// ErrUnknownCommand is returned for names missing from the catalog.
	ErrUnknownCommand = errors.New("command not in catalog")
)

// CommandError attaches the command name and operation to an error.
type CommandError struct {
	Command string
	Op      string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Command, e.Err)
}

// Unwrap returns the underlying error
func (e *CommandError) Unwrap() error {
	return e.Err
}

// classifyReply maps a raw reply to an execution state and the directive
// the catalog owner has to apply.
func classifyReply(reply string) (State, Directive, error) {
	switch {
	case strings.Contains(reply, markerNotOK):
		return StateFailed, DirectiveDisable, fmt.Errorf("%w: %s", ErrPermanentFailure, markerNotOK)
	case strings.Contains(reply, markerUnknown):
		return StateFailed, DirectiveDisable, fmt.Errorf("%w: %s", ErrPermanentFailure, markerUnknown)
	case strings.Contains(reply, markerWrongResult):
		return StateFailedTemporarily, DirectiveNone, fmt.Errorf("%w: %s", ErrTransientFailure, markerWrongResult)
	default:
		return StateSuccess, DirectiveNone, nil
	}
}
