package vcontrold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Outcome is the result of one execution plus the catalog change it asks for.
type Outcome struct {
	Result    Result
	Directive Directive
}

// executor runs single commands. It never writes to the catalog; the
// returned directive is applied by the caller.
type executor struct {
	session  *session
	catalog  Catalog
	identity *DeviceIdentity
	sanitize SanitizeOptions
	logger   *slog.Logger
}

// execute runs the named command. Per-command failures are reported in
// the outcome; the returned error is reserved for unknown names and
// transport failures, which leave the connection unusable.
func (e *executor) execute(ctx context.Context, name string) (Outcome, error) {
	start := time.Now()

	cmd, ok := e.catalog.Get(name)
	if !ok {
		return Outcome{}, &CommandError{Command: name, Op: "execute", Err: ErrUnknownCommand}
	}

	if reason := e.unavailable(cmd); reason != nil {
		if e.logger != nil {
			e.logger.Info("command skipped", "command", name, "reason", reason)
		}
		return Outcome{Result: Result{
			Command:     name,
			Description: cmd.Description,
			State:       StateSkipped,
			Err:         reason,
		}}, nil
	}

	reply, err := e.session.roundTrip(ctx, name)
	if err != nil && !errors.Is(err, ErrProtocol) {
		return Outcome{}, &CommandError{Command: name, Op: "execute", Err: err}
	}

	result := Result{
		Command:     name,
		Description: cmd.Description,
	}
	directive := DirectiveNone

	if err != nil {
		result.State = StateFailed
		result.Err = err
	} else {
		var cause error
		result.State, directive, cause = classifyReply(reply)
		result.Err = cause
		if result.State == StateSuccess {
			value, unit, err := Sanitize(ParseUnit(cmd.Unit), reply, e.sanitize)
			if err != nil {
				result.State = StateFailed
				result.Err = err
			} else {
				result.Value = value
				result.Unit = unit
			}
		}
	}

	result.Duration = time.Since(start)

	if e.logger != nil {
		switch result.State {
		case StateSuccess:
			e.logger.Debug("command executed", "command", name, "duration", result.Duration)
		case StateFailedTemporarily:
			e.logger.Warn("command failed temporarily, retry on a later run", "command", name)
		default:
			e.logger.Warn("command failed", "command", name, "directive", directive, "error", result.Err)
		}
	}

	return Outcome{Result: result, Directive: directive}, nil
}

// unavailable returns why cmd must not be sent, or nil.
func (e *executor) unavailable(cmd Command) error {
	if !cmd.Enabled() {
		return fmt.Errorf("%w: %s is disabled", ErrCommandUnavailable, cmd.Name)
	}
	if e.identity == nil {
		return fmt.Errorf("%w: device not identified", ErrCommandUnavailable)
	}
	if !cmd.SupportsDevice(e.identity.ID) {
		return fmt.Errorf("%w: %s not available for device ID %d (available: %v)",
			ErrCommandUnavailable, cmd.Name, e.identity.ID, cmd.Devices)
	}
	return nil
}
