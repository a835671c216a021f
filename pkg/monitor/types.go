// Package monitor samples watcher counters periodically and publishes
// the change between samples.
//
// Example usage:
//
//	m := monitor.New(monitor.Config{RefreshInterval: 10 * time.Second}, w, log)
//	if err := m.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	for update := range m.Updates() {
//	    fmt.Printf("%d files in the last interval\n", update.Delta.Processed)
//	}
package monitor

import (
	"time"

	"github.com/0xmhha/dropwatch/pkg/watcher"
)

// Config holds the configuration for the monitor.
type Config struct {
	// RefreshInterval is the interval between samples.
	// Default: 1s.
	RefreshInterval time.Duration
}

// StatsSource provides counter snapshots. *watcher.Watcher implements it.
type StatsSource interface {
	Stats() watcher.Stats
}

// Update represents one sample.
type Update struct {
	// Timestamp of the sample
	Timestamp time.Time

	// Stats are the counters at Timestamp
	Stats watcher.Stats

	// Delta is the change since the previous sample
	Delta watcher.Stats

	// Cumulative is the change since the monitor started
	Cumulative watcher.Stats

	// Rate is processed files per second over the last interval
	Rate float64
}
