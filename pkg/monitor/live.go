package monitor

import (
	"sync"
	"time"

	"github.com/0xmhha/dropwatch/pkg/logger"
	"github.com/0xmhha/dropwatch/pkg/watcher"
)

// Monitor publishes periodic counter updates for a StatsSource.
type Monitor struct {
	config Config
	source StatsSource
	logger logger.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	updates chan Update

	first  watcher.Stats
	last   watcher.Stats
	lastAt time.Time
}

// New creates a monitor for source.
func New(cfg Config, source StatsSource, log logger.Logger) *Monitor {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Second
	}
	if log == nil {
		log = logger.Noop()
	}

	return &Monitor{
		config:  cfg,
		source:  source,
		logger:  log,
		updates: make(chan Update, 10),
	}
}

// Start begins periodic sampling on a new goroutine.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if m.running {
		return ErrMonitorRunning
	}

	m.first = m.source.Stats()
	m.last = m.first
	m.lastAt = time.Now()
	m.stopChan = make(chan struct{})
	m.running = true

	m.wg.Add(1)
	go m.periodicUpdates(m.stopChan)

	m.logger.Debug("monitor started", "refresh_interval", m.config.RefreshInterval)
	return nil
}

// Stop ends sampling. The monitor can be started again.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if !m.running {
		m.mu.Unlock()
		return ErrMonitorNotRunning
	}
	close(m.stopChan)
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Debug("monitor stopped")
	return nil
}

// Updates returns the channel updates are published on. It is closed by
// Close.
func (m *Monitor) Updates() <-chan Update {
	return m.updates
}

// Sample takes a sample immediately and publishes it.
func (m *Monitor) Sample() Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampleLocked(time.Now())
}

// Close stops sampling and closes the updates channel.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.running {
		close(m.stopChan)
		m.running = false
	}
	m.mu.Unlock()

	m.wg.Wait()
	close(m.updates)
	return nil
}

// periodicUpdates samples on every tick until stop is closed.
func (m *Monitor) periodicUpdates(stop <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return

		case now := <-ticker.C:
			m.mu.Lock()
			m.sampleLocked(now)
			m.mu.Unlock()
		}
	}
}

// sampleLocked builds an update and sends it without blocking.
// m.mu must be held.
func (m *Monitor) sampleLocked(now time.Time) Update {
	current := m.source.Stats()

	update := Update{
		Timestamp:  now,
		Stats:      current,
		Delta:      diff(current, m.last),
		Cumulative: diff(current, m.first),
	}
	if elapsed := now.Sub(m.lastAt).Seconds(); elapsed > 0 {
		update.Rate = float64(update.Delta.Processed) / elapsed
	}

	m.last = current
	m.lastAt = now

	if m.closed {
		return update
	}
	select {
	case m.updates <- update:
	default:
		m.logger.Warn("updates channel full, dropping update")
	}
	return update
}

// diff returns a - b per counter. Counters only grow, so a >= b.
func diff(a, b watcher.Stats) watcher.Stats {
	return watcher.Stats{
		Processed:    a.Processed - b.Processed,
		Ignored:      a.Ignored - b.Ignored,
		Rescans:      a.Rescans - b.Rescans,
		DecodeErrors: a.DecodeErrors - b.DecodeErrors,
	}
}
