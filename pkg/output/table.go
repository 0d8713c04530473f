package output

import (
	"io"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

// writeTable prints one row per item followed by the meta line.
func writeTable(w io.Writer, rec vcontrold.Record, colored bool) error {
	headers := []string{"Command", "Value", "Unit", "State", "Description"}
	withTimes := rec.ExecutionTime != nil
	if withTimes {
		headers = append(headers, "Time")
	}

	rows := make([][]string, 0, len(rec.Items))
	for _, item := range rec.Items {
		row := []string{item.Command, text(item.Value), text(item.Unit), string(item.State), item.Description}
		if withTimes {
			row = append(row, text(item.ExecutionTime))
		}
		rows = append(rows, row)
	}

	if err := WriteTable(w, headers, rows, colored); err != nil {
		return err
	}

	footer := table.New("Items", "Execution time").WithWriter(w)
	footer.AddRow(rec.NumItems, text(rec.ExecutionTime))
	footer.Print()
	return nil
}

// WriteTable prints rows under headers. With colored set, the header is
// green and underlined and the first column yellow.
func WriteTable(w io.Writer, headers []string, rows [][]string, colored bool) error {
	cols := make([]any, len(headers))
	for i, h := range headers {
		cols[i] = h
	}

	tbl := table.New(cols...).WithWriter(w)
	if colored {
		headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
		columnFmt := color.New(color.FgYellow).SprintfFunc()
		tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	}

	for _, row := range rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		tbl.AddRow(cells...)
	}
	tbl.Print()
	return nil
}
