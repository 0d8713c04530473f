package vcontrold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DeviceIdentity describes the heating control answering on the socket.
type DeviceIdentity struct {
	Model    string `json:"model" yaml:"model"`
	ID       int    `json:"id" yaml:"id"`
	Protocol string `json:"protocol" yaml:"protocol"`
}

// HandshakeState is the progress of the identification exchange.
type HandshakeState int

const (
	HandshakeConnecting HandshakeState = iota
	HandshakeAwaitingPrompt
	HandshakeIdentifying
	HandshakeIdentified
	HandshakeFailed
)

// String returns the string representation of the handshake state
func (s HandshakeState) String() string {
	switch s {
	case HandshakeConnecting:
		return "connecting"
	case HandshakeAwaitingPrompt:
		return "awaiting-prompt"
	case HandshakeIdentifying:
		return "identifying"
	case HandshakeIdentified:
		return "identified"
	case HandshakeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// session runs request/response cycles over a Transport.
type session struct {
	transport Transport
	maxReply  int
	logger    *slog.Logger

	// promptPending is set when the last reply already carried the next prompt.
	promptPending bool
}

// readPrompt consumes the ready prompt. A mismatch is logged and reported
// as false; the caller carries on regardless.
func (s *session) readPrompt(ctx context.Context) (bool, error) {
	if s.promptPending {
		s.promptPending = false
		return true, nil
	}

	raw, err := s.transport.Receive(ctx, s.maxReply)
	if err != nil {
		return false, err
	}
	if got := strings.TrimSpace(string(raw)); got != Prompt {
		if s.logger != nil {
			s.logger.Warn("unexpected data instead of prompt", "expected", Prompt, "received", got)
		}
		return false, nil
	}
	return true, nil
}

// roundTrip waits for the prompt, sends command and returns the decoded reply.
func (s *session) roundTrip(ctx context.Context, command string) (string, error) {
	if _, err := s.readPrompt(ctx); err != nil {
		return "", err
	}
	return s.exchange(ctx, command)
}

// exchange sends command and returns the decoded reply.
func (s *session) exchange(ctx context.Context, command string) (string, error) {
	if err := s.transport.SendLine(ctx, command); err != nil {
		return "", err
	}
	raw, err := s.transport.Receive(ctx, s.maxReply)
	if err != nil {
		return "", err
	}
	reply, err := decodeReply(raw)
	if err != nil {
		return "", err
	}

	// vcontrold writes the next prompt right after the reply; both may
	// arrive in one read.
	if trimmed := strings.TrimRight(reply, " \r\n"); strings.HasSuffix(trimmed, Prompt) {
		reply = strings.TrimSuffix(trimmed, Prompt)
		s.promptPending = true
	}
	return reply, nil
}

// handshake identifies the heating control once per connection.
type handshake struct {
	session  *session
	attempts int
	logger   *slog.Logger

	state    HandshakeState
	identity *DeviceIdentity
}

// run performs the identification. Replies that never match leave the
// identity unset without error; transport failures are returned.
func (h *handshake) run(ctx context.Context) error {
	if h.identity != nil {
		return nil
	}

	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(h.attempts-1)), ctx)

	operation := func() error {
		attempt++
		h.state = HandshakeAwaitingPrompt
		if _, err := h.session.readPrompt(ctx); err != nil {
			return backoff.Permanent(err)
		}

		h.state = HandshakeIdentifying
		reply, err := h.session.exchange(ctx, IdentifyCommand)
		if err != nil {
			if errors.Is(err, ErrProtocol) {
				return err
			}
			return backoff.Permanent(err)
		}

		identity, err := parseDevType(reply)
		if err != nil {
			return err
		}
		h.identity = &identity
		h.state = HandshakeIdentified
		if h.logger != nil {
			h.logger.Info("device identified",
				"model", identity.Model, "id", identity.ID, "protocol", identity.Protocol,
				"attempt", attempt, "attempts", h.attempts)
		}
		return nil
	}

	notify := func(err error, _ time.Duration) {
		if h.logger != nil {
			h.logger.Warn("failed to identify heating control",
				"attempt", attempt, "attempts", h.attempts, "error", err)
		}
	}

	err := backoff.RetryNotify(operation, b, notify)
	if err == nil {
		return nil
	}

	h.state = HandshakeFailed
	if errors.Is(err, ErrProtocol) {
		if h.logger != nil {
			h.logger.Warn("identification gave up, device-specific commands will be skipped",
				"attempts", h.attempts)
		}
		return nil
	}
	return err
}

// parseDevType parses "<model> ID=<id> Protokoll:<protocol>".
func parseDevType(reply string) (DeviceIdentity, error) {
	reply = strings.TrimSpace(reply)
	fields := strings.Split(reply, " ")
	if len(fields) != 3 {
		return DeviceIdentity{}, fmt.Errorf("%w: unexpected identification reply %q", ErrProtocol, reply)
	}

	idText, ok := strings.CutPrefix(fields[1], devTypeIDPrefix)
	if !ok {
		return DeviceIdentity{}, fmt.Errorf("%w: missing %s in %q", ErrProtocol, devTypeIDPrefix, reply)
	}
	id, err := strconv.Atoi(idText)
	if err != nil {
		return DeviceIdentity{}, fmt.Errorf("%w: device id %q is not numeric", ErrProtocol, idText)
	}
	protocol, ok := strings.CutPrefix(fields[2], devTypeProtoPrefix)
	if !ok {
		return DeviceIdentity{}, fmt.Errorf("%w: missing %s in %q", ErrProtocol, devTypeProtoPrefix, reply)
	}

	return DeviceIdentity{Model: fields[0], ID: id, Protocol: protocol}, nil
}
