package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/dropwatch/pkg/monitor"
	"github.com/0xmhha/dropwatch/pkg/watcher"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatStats implements Formatter.FormatStats.
func (f *simpleFormatter) FormatStats(w io.Writer, stats watcher.Stats) error {
	_, err := fmt.Fprintf(w, "Processed: %s | Ignored: %s | Rescans: %s | Decode errors: %s\n",
		formatNumber(stats.Processed),
		formatNumber(stats.Ignored),
		formatNumber(stats.Rescans),
		formatNumber(stats.DecodeErrors))
	return err
}

// FormatUpdate implements Formatter.FormatUpdate.
func (f *simpleFormatter) FormatUpdate(w io.Writer, update monitor.Update) error {
	_, err := fmt.Fprintf(w, "[%s] +%s processed (%s total) | +%s ignored | %s files/sec\n",
		formatTime(update.Timestamp),
		formatNumber(update.Delta.Processed),
		formatNumber(update.Stats.Processed),
		formatNumber(update.Delta.Ignored),
		formatFloat(update.Rate, 1))
	return err
}
