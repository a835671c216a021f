package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/dropwatch/pkg/monitor"
	"github.com/0xmhha/dropwatch/pkg/watcher"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatStats implements Formatter.FormatStats.
func (f *tableFormatter) FormatStats(w io.Writer, stats watcher.Stats) error {
	if err := writeHeader(w, "Watcher Statistics", f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Processed", formatNumber(stats.Processed)},
		{"Ignored", formatNumber(stats.Ignored)},
		{"Rescans", formatNumber(stats.Rescans)},
		{"Decode Errors", formatNumber(stats.DecodeErrors)},
	}

	return f.writeTable(w, []string{"Metric", "Value"}, rows)
}

// FormatUpdate implements Formatter.FormatUpdate.
func (f *tableFormatter) FormatUpdate(w io.Writer, update monitor.Update) error {
	if err := writeHeader(w, "Update "+formatTime(update.Timestamp), f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Processed", formatNumber(update.Delta.Processed), formatNumber(update.Stats.Processed)},
		{"Ignored", formatNumber(update.Delta.Ignored), formatNumber(update.Stats.Ignored)},
		{"Rescans", formatNumber(update.Delta.Rescans), formatNumber(update.Stats.Rescans)},
		{"Decode Errors", formatNumber(update.Delta.DecodeErrors), formatNumber(update.Stats.DecodeErrors)},
		{"Files/sec", formatFloat(update.Rate, 2), ""},
	}

	return f.writeTable(w, []string{"Metric", "Interval", "Total"}, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row. Trailing padding is trimmed.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	var line strings.Builder
	for i, cell := range cells {
		if i > 0 {
			line.WriteString(gap)
		}
		fmt.Fprintf(&line, "%-*s", widths[i], cell)
	}

	_, err := fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	return err
}
