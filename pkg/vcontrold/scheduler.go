package vcontrold

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BatchOptions select what a batch run executes.
type BatchOptions struct {
	// Groups restricts the run to commands in any of these groups.
	// Nil falls back to the client's group filter.
	Groups []string
	// MaxValues caps the number of commands visited. Zero or less means no cap.
	MaxValues int
}

// scheduler drives the executor over the eligible catalog commands.
type scheduler struct {
	exec          *executor
	catalog       Catalog
	excludeTimers bool
	logger        *slog.Logger
}

// selectCommands returns the enabled commands matching groups in catalog order.
func (s *scheduler) selectCommands(groups []string) []string {
	var selected []string
	for _, name := range s.catalog.Names() {
		cmd, ok := s.catalog.Get(name)
		if !ok || !cmd.Enabled() || !cmd.InAnyGroup(groups) {
			continue
		}
		selected = append(selected, name)
	}
	return selected
}

// limit applies the cap to n selected commands.
func (s *scheduler) limit(n, maxValues int) int {
	switch {
	case maxValues <= 0:
		return n
	case maxValues < n:
		if s.logger != nil {
			s.logger.Info("limited the number of executed commands", "max_values", maxValues, "selected", n)
		}
		return maxValues
	default:
		if s.logger != nil {
			s.logger.Debug("max_values exceeds selection, ignoring", "max_values", maxValues, "selected", n)
		}
		return n
	}
}

// run executes the batch. Command failures end up in the report; a
// transport failure stops the run and is returned with the partial report.
func (s *scheduler) run(ctx context.Context, groups []string, maxValues int) (*Report, error) {
	selected := s.selectCommands(groups)
	return s.collect(ctx, selected[:s.limit(len(selected), maxValues)])
}

// runNamed executes the named commands in the given order, each once. All
// names must exist in the catalog; nothing is sent otherwise.
func (s *scheduler) runNamed(ctx context.Context, names []string) (*Report, error) {
	seen := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := s.catalog.Get(name); !ok {
			return &Report{excludeTimers: s.excludeTimers}, &CommandError{Command: name, Op: "run", Err: ErrUnknownCommand}
		}
		if !seen[name] {
			seen[name] = true
			unique = append(unique, name)
		}
	}
	return s.collect(ctx, unique)
}

func (s *scheduler) collect(ctx context.Context, names []string) (*Report, error) {
	start := time.Now()
	report := &Report{excludeTimers: s.excludeTimers}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("batch stopped before %s: %w", name, err)
		}
		if s.logger != nil {
			s.logger.Debug("executing command", "index", i+1, "total", len(names), "command", name)
		}

		outcome, err := s.exec.execute(ctx, name)
		if err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		if err := outcome.Directive.Apply(s.catalog, name); err != nil && s.logger != nil {
			s.logger.Error("failed to apply catalog directive", "command", name, "directive", outcome.Directive, "error", err)
		}

		if outcome.Result.State == StateSkipped {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		report.Items = append(report.Items, outcome.Result)
	}

	report.Duration = time.Since(start)
	return report, nil
}
