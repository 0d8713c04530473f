package vcontrold

import (
	"strconv"
	"time"
)

// State is the outcome of one command execution.
type State string

const (
	StateSuccess           State = "success"
	StateFailed            State = "failed"
	StateFailedTemporarily State = "failed_temporarily"
	// StateSkipped is used for commands that were never sent.
	StateSkipped State = "skipped"
)

// Result is the outcome of executing one command.
type Result struct {
	Command     string
	Value       Value // nil unless State is StateSuccess
	Unit        string
	Description string
	State       State
	Duration    time.Duration
	// Err explains failed and skipped states.
	Err error
}

// Report is the outcome of a batch run. Items are in execution order.
type Report struct {
	Items    []Result
	Skipped  []string
	Duration time.Duration

	excludeTimers bool
}

// Len returns the number of executed items.
func (r *Report) Len() int {
	return len(r.Items)
}

// Get returns the result of the named command.
func (r *Report) Get(name string) (Result, bool) {
	for _, item := range r.Items {
		if item.Command == name {
			return item, true
		}
	}
	return Result{}, false
}

// Record is the presentation-neutral form of a report.
type Record struct {
	ExecutionTime *string
	NumItems      int
	Items         []RecordItem
}

// RecordItem is the presentation-neutral form of a result.
type RecordItem struct {
	Command       string
	Value         Value
	Unit          *string
	Description   string
	State         State
	ExecutionTime *string
}

// Record converts the report. Execution times are left out when the
// client was configured to exclude timers.
func (r *Report) Record() Record {
	rec := Record{
		NumItems: len(r.Items),
		Items:    make([]RecordItem, 0, len(r.Items)),
	}
	if !r.excludeTimers {
		rec.ExecutionTime = formatSeconds(r.Duration)
	}
	for _, item := range r.Items {
		ri := RecordItem{
			Command:     item.Command,
			Value:       item.Value,
			Description: item.Description,
			State:       item.State,
		}
		if item.Unit != "" {
			unit := item.Unit
			ri.Unit = &unit
		}
		if !r.excludeTimers {
			ri.ExecutionTime = formatSeconds(item.Duration)
		}
		rec.Items = append(rec.Items, ri)
	}
	return rec
}

// formatSeconds renders d like "2.512 seconds", rounded to milliseconds.
func formatSeconds(d time.Duration) *string {
	s := strconv.FormatFloat(d.Round(time.Millisecond).Seconds(), 'f', -1, 64) + " seconds"
	return &s
}
