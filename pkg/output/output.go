// Package output renders vcontrold reports for humans and machines.
package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

// Format names a rendering of a report.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

// ErrUnknownFormat is returned for format names that have no renderer.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats returns the supported format names.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatCSV), string(FormatTable)}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatYAML, FormatCSV, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
	}
}

// Options tune the renderers.
type Options struct {
	CSV CSVOptions
	// Color enables ANSI colors in table output.
	Color bool
}

// DefaultOptions returns comma separated, double quoted CSV and no colors.
func DefaultOptions() Options {
	return Options{CSV: DefaultCSVOptions()}
}

// WriteReport renders rec to w.
func WriteReport(w io.Writer, format Format, rec vcontrold.Record, opts Options) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, rec)
	case FormatYAML:
		return writeYAML(w, rec)
	case FormatCSV:
		return writeCSV(w, rec, opts.CSV)
	case FormatTable:
		return writeTable(w, rec, opts.Color)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// field is one key of an ordered record object.
type field struct {
	key   string
	value any
}

func metaFields(rec vcontrold.Record) []field {
	var fields []field
	if rec.ExecutionTime != nil {
		fields = append(fields, field{"execution_time", *rec.ExecutionTime})
	}
	return append(fields, field{"num_items", rec.NumItems})
}

func itemFields(item vcontrold.RecordItem) []field {
	fields := []field{
		{"value", plainValue(item.Value)},
		{"unit", item.Unit},
		{"description", item.Description},
		{"state", string(item.State)},
	}
	if item.ExecutionTime != nil {
		fields = append(fields, field{"execution_time", *item.ExecutionTime})
	}
	return fields
}

// plainValue unwraps a sanitized value for the encoders. Items without a
// value render as an empty string.
func plainValue(v vcontrold.Value) any {
	switch v := v.(type) {
	case nil:
		return ""
	case vcontrold.Number:
		return float64(v)
	case vcontrold.Bool:
		return bool(v)
	case vcontrold.Text:
		return string(v)
	default:
		return v
	}
}

// text renders a field value for the line based formats.
func text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
