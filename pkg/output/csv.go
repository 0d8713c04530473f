package output

import (
	"io"
	"slices"
	"strings"

	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

// CSVOptions control the CSV rendering. Every cell is quoted.
type CSVOptions struct {
	Delimiter    string
	LineBreak    string
	SingleQuotes bool
}

// DefaultCSVOptions returns comma separated, newline terminated rows in
// double quotes.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ",", LineBreak: "\n"}
}

func (o CSVOptions) quote() string {
	if o.SingleQuotes {
		return "'"
	}
	return `"`
}

// writeCSV writes a header row of "Command" plus the item keys, then one
// row per item. Rows are joined by the line break without a trailing one.
func writeCSV(w io.Writer, rec vcontrold.Record, opts CSVOptions) error {
	if opts.Delimiter == "" {
		opts.Delimiter = ","
	}
	if opts.LineBreak == "" {
		opts.LineBreak = "\n"
	}

	header := []string{"Command"}
	rows := make([]string, 0, len(rec.Items))
	for _, item := range rec.Items {
		cells := []string{item.Command}
		for _, f := range itemFields(item) {
			if !slices.Contains(header, f.key) {
				header = append(header, f.key)
			}
			cells = append(cells, text(f.value))
		}
		rows = append(rows, opts.row(cells))
	}

	var b strings.Builder
	b.WriteString(opts.row(header))
	b.WriteString(opts.LineBreak)
	b.WriteString(strings.Join(rows, opts.LineBreak))

	_, err := io.WriteString(w, b.String())
	return err
}

// row quotes every cell; quote characters inside a cell are doubled.
func (o CSVOptions) row(cells []string) string {
	q := o.quote()
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = q + strings.ReplaceAll(c, q, q+q) + q
	}
	return strings.Join(quoted, o.Delimiter)
}
