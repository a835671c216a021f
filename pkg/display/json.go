package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/dropwatch/pkg/monitor"
	"github.com/0xmhha/dropwatch/pkg/watcher"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// jsonUpdate is the wire shape of a monitor update.
type jsonUpdate struct {
	Timestamp  string        `json:"timestamp"`
	Stats      watcher.Stats `json:"stats"`
	Delta      watcher.Stats `json:"delta"`
	Cumulative watcher.Stats `json:"cumulative"`
	Rate       float64       `json:"files_per_second"`
}

// FormatStats implements Formatter.FormatStats.
func (f *jsonFormatter) FormatStats(w io.Writer, stats watcher.Stats) error {
	return f.encode(w, stats)
}

// FormatUpdate implements Formatter.FormatUpdate.
func (f *jsonFormatter) FormatUpdate(w io.Writer, update monitor.Update) error {
	return f.encode(w, jsonUpdate{
		Timestamp:  update.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Stats:      update.Stats,
		Delta:      update.Delta,
		Cumulative: update.Cumulative,
		Rate:       update.Rate,
	})
}

func (f *jsonFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(v)
}
