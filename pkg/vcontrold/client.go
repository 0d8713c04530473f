package vcontrold

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Client represents an identified connection to vcontrold.
// Methods may be called from several goroutines; commands are serialized.
type Client struct {
	transport Transport
	catalog   Catalog
	cfg       *clientConfig
	logger    *slog.Logger
	mu        sync.Mutex
	handshake *handshake
	sched     *scheduler
	groups    []string
}

// NewClient connects to vcontrold at host and identifies the heating control.
// The context is used for the connection timeout and the identification.
// Options can be provided to configure the client behavior.
func NewClient(ctx context.Context, host string, catalog Catalog, opts ...ClientOption) (*Client, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	t, err := dial(ctx, host, cfg)
	if err != nil {
		return nil, err
	}

	c, err := newClient(ctx, t, catalog, cfg)
	if err != nil {
		t.Close()
		return nil, err
	}
	return c, nil
}

// NewClientWithTransport identifies the heating control over an already
// open transport. The client owns t afterwards.
func NewClientWithTransport(ctx context.Context, t Transport, catalog Catalog, opts ...ClientOption) (*Client, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newClient(ctx, t, catalog, cfg)
}

func buildConfig(opts []ClientOption) (*clientConfig, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return cfg, nil
}

func newClient(ctx context.Context, t Transport, catalog Catalog, cfg *clientConfig) (*Client, error) {
	s := &session{
		transport: t,
		maxReply:  cfg.maxReplySize,
		logger:    cfg.logger,
	}
	h := &handshake{
		session:  s,
		attempts: cfg.identifyAttempts,
		logger:   cfg.logger,
	}
	if err := h.run(ctx); err != nil {
		return nil, err
	}

	exec := &executor{
		session:  s,
		catalog:  catalog,
		identity: h.identity,
		sanitize: cfg.sanitize,
		logger:   cfg.logger,
	}

	return &Client{
		transport: t,
		catalog:   catalog,
		cfg:       cfg,
		logger:    cfg.logger,
		handshake: h,
		sched: &scheduler{
			exec:          exec,
			catalog:       catalog,
			excludeTimers: cfg.excludeTimers,
			logger:        cfg.logger,
		},
	}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.Close()
}

// Catalog returns the catalog the client executes from.
func (c *Client) Catalog() Catalog {
	return c.catalog
}

// Identity returns the identified heating control. The second result is
// false when identification did not succeed.
func (c *Client) Identity() (DeviceIdentity, bool) {
	if c.handshake.identity == nil {
		return DeviceIdentity{}, false
	}
	return *c.handshake.identity, true
}

// HandshakeState returns the final state of the identification.
func (c *Client) HandshakeState() HandshakeState {
	return c.handshake.state
}

// SetGroups sets the group filter for Run. Groups unknown to the catalog
// are dropped with a warning; if none remain the filter is unchanged.
// It returns the effective filter.
func (c *Client) SetGroups(groups ...string) []string {
	known := Groups(c.catalog)
	var accepted []string
	for _, g := range groups {
		if slices.Contains(known, g) {
			accepted = append(accepted, g)
		} else if c.logger != nil {
			c.logger.Warn("requested group is not configured in the catalog", "group", g)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(accepted) > 0 {
		c.groups = accepted
	}
	return slices.Clone(c.groups)
}

// ClearGroups removes the group filter.
func (c *Client) ClearGroups() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = nil
}

// GroupFilter returns the current group filter, nil when unset.
func (c *Client) GroupFilter() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.groups)
}

// Execute runs a single command and applies its catalog directive.
// Skipped commands are returned with StateSkipped.
func (c *Client) Execute(ctx context.Context, name string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcome, err := c.sched.exec.execute(ctx, name)
	if err != nil {
		return Result{}, err
	}
	if err := outcome.Directive.Apply(c.catalog, name); err != nil {
		return outcome.Result, fmt.Errorf("apply %s to %s: %w", outcome.Directive, name, err)
	}
	return outcome.Result, nil
}

// Run executes every eligible command and collects the results.
// On a transport failure the partial report is returned with the error.
func (c *Client) Run(ctx context.Context, opts BatchOptions) (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	groups := opts.Groups
	if groups == nil {
		groups = c.groups
	}
	report, err := c.sched.run(ctx, groups, opts.MaxValues)
	if c.logger != nil {
		c.logger.Info("batch finished", "items", report.Len(), "skipped", len(report.Skipped), "duration", report.Duration)
	}
	return report, err
}

// RunCommands executes the named commands in order, ignoring the group
// filter. Disabled commands and those not valid for the device are skipped.
func (c *Client) RunCommands(ctx context.Context, names ...string) (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched.runNamed(ctx, names)
}
