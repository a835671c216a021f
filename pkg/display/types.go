// Package display provides output formatting for watcher statistics.
//
// It supports multiple output formats (table, JSON, simple text) for the
// final counters of a watch run and for periodic monitor updates.
package display

import (
	"errors"
	"io"

	"github.com/0xmhha/dropwatch/pkg/monitor"
	"github.com/0xmhha/dropwatch/pkg/watcher"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays statistics in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays statistics as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays statistics in simple text format.
	FormatSimple Format = "simple"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter formats and displays watcher statistics.
type Formatter interface {
	// FormatStats formats a counter snapshot.
	//
	// Parameters:
	//   - w: Output writer
	//   - stats: Counters to format
	//
	// Returns error if formatting fails.
	FormatStats(w io.Writer, stats watcher.Stats) error

	// FormatUpdate formats one monitor sample.
	//
	// Parameters:
	//   - w: Output writer
	//   - update: Sample to format
	//
	// Returns error if formatting fails.
	FormatUpdate(w io.Writer, update monitor.Update) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
