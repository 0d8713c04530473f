package vcontrold

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"
)

// Transport is a blocking line-oriented connection to vcontrold.
// Implementations are not safe for concurrent use.
type Transport interface {
	// SendLine writes line followed by the protocol line terminator.
	SendLine(ctx context.Context, line string) error
	// Receive blocks until data arrives and returns at most maxBytes of it.
	Receive(ctx context.Context, maxBytes int) ([]byte, error)
	// Close releases the connection. Calling it more than once is a no-op.
	Close() error
}

// TCPTransport is a Transport over a TCP socket.
type TCPTransport struct {
	conn        net.Conn
	addr        string
	readTimeout time.Duration
	logger      *slog.Logger
	mu          sync.Mutex
	isClosed    bool
}

// Dial connects to vcontrold at host. The context bounds the connection
// attempt; without a deadline the configured connect timeout applies.
func Dial(ctx context.Context, host string, opts ...ClientOption) (*TCPTransport, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return dial(ctx, host, cfg)
}

func dial(ctx context.Context, host string, cfg *clientConfig) (*TCPTransport, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.connectTimeout)
		defer cancel()
	}

	addr := net.JoinHostPort(host, strconv.Itoa(cfg.port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, addr, err)
	}

	if cfg.logger != nil {
		cfg.logger.Debug("connected to vcontrold", "addr", addr)
	}

	return &TCPTransport{
		conn:        conn,
		addr:        addr,
		readTimeout: cfg.readTimeout,
		logger:      cfg.logger,
	}, nil
}

// Addr returns the remote address.
func (t *TCPTransport) Addr() string {
	return t.addr
}

// SendLine implements Transport.
func (t *TCPTransport) SendLine(ctx context.Context, line string) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.readTimeout)
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set write deadline: %v", ErrIO, err)
	}

	stop := t.interruptOnDone(ctx)
	_, err := t.conn.Write([]byte(line + LineTerminator))
	stop()
	if err != nil {
		if t.logger != nil {
			t.logger.Error("failed to send line", "line", line, "error", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: write %q: %w", ErrIO, line, ctxErr)
		}
		return fmt.Errorf("%w: write %q: %v", ErrIO, line, err)
	}

	if t.logger != nil {
		t.logger.Debug("line sent", "line", line)
	}
	return nil
}

// Receive implements Transport. A single read is performed; whatever the
// peer delivered up to maxBytes is the reply.
func (t *TCPTransport) Receive(ctx context.Context, maxBytes int) ([]byte, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.readTimeout)
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: set read deadline: %v", ErrConnection, err)
	}

	buf := make([]byte, maxBytes)
	stop := t.interruptOnDone(ctx)
	n, err := t.conn.Read(buf)
	stop()
	if n > 0 {
		if t.logger != nil {
			t.logger.Debug("data received", "bytes", n)
		}
		return buf[:n], nil
	}
	if err != nil {
		if t.logger != nil {
			t.logger.Error("failed to receive", "addr", t.addr, "error", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: read: %w", ErrConnection, ctxErr)
		}
		return nil, fmt.Errorf("%w: read: %v", ErrConnection, err)
	}
	return nil, nil
}

// interruptOnDone expires the pending read or write once ctx is done. The
// returned func disarms it; the next call sets a fresh deadline anyway.
func (t *TCPTransport) interruptOnDone(ctx context.Context) func() {
	stop := context.AfterFunc(ctx, func() {
		t.conn.SetDeadline(time.Now())
	})
	return func() { stop() }
}

// Close implements Transport.
func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isClosed {
		return nil
	}
	t.isClosed = true
	if t.logger != nil {
		t.logger.Debug("connection closed", "addr", t.addr)
	}
	return t.conn.Close()
}

// decodeReply converts raw bytes to text.
func decodeReply(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: reply is not valid UTF-8", ErrProtocol)
	}
	return string(raw), nil
}
