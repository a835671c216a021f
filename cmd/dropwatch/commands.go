package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/0xmhha/dropwatch/pkg/config"
	"github.com/0xmhha/dropwatch/pkg/discovery"
	"github.com/0xmhha/dropwatch/pkg/display"
	"github.com/0xmhha/dropwatch/pkg/filter"
	"github.com/0xmhha/dropwatch/pkg/logger"
	"github.com/0xmhha/dropwatch/pkg/monitor"
	"github.com/0xmhha/dropwatch/pkg/notify"
	"github.com/0xmhha/dropwatch/pkg/watcher"
)

// watchCommand watches a directory and processes arriving files.
type watchCommand struct {
	configPath string
	out        io.Writer

	dir      string
	exts     string
	duration time.Duration
	backend  string
	queue    int
	delay    time.Duration
	remove   *bool // nil keeps the configured value

	backlog       bool
	statsInterval time.Duration
	format        display.Format
}

// runWatchCommand parses watch flags and runs the command.
func runWatchCommand(configPath string, args []string, out io.Writer) error {
	cmd, err := parseWatchFlags(configPath, args, out)
	if err != nil {
		return err
	}
	return cmd.Execute(context.Background())
}

// parseWatchFlags builds a watchCommand from command-line arguments.
func parseWatchFlags(configPath string, args []string, out io.Writer) (*watchCommand, error) {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags.SetOutput(out)
	dir := flags.String("dir", "", "directory to watch")
	exts := flags.String("ext", "", "comma-separated extensions (e.g. dat,csv)")
	duration := flags.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	backend := flags.String("backend", "", "notification backend (native, portable)")
	queue := flags.Int("queue", -1, "dispatch queue length")
	delay := flags.Duration("delay", -1, "simulated processing time per file")
	remove := flags.Bool("remove", true, "remove files after processing")
	backlog := flags.Bool("backlog", false, "process files already in the directory before watching")
	statsInterval := flags.Duration("stats-interval", 0, "print statistics at this interval (0 disables)")
	format := flags.String("format", string(display.FormatSimple), "statistics format (table, json, simple)")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if *duration < 0 {
		return nil, fmt.Errorf("invalid duration: %v", *duration)
	}
	if *statsInterval < 0 {
		return nil, fmt.Errorf("invalid stats interval: %v", *statsInterval)
	}
	outputFormat, err := display.ParseFormat(*format)
	if err != nil {
		return nil, err
	}

	cmd := &watchCommand{
		configPath: configPath,
		out:        out,
		dir:        *dir,
		exts:       *exts,
		duration:   *duration,
		backend:    *backend,
		queue:      *queue,
		delay:      *delay,

		backlog:       *backlog,
		statsInterval: *statsInterval,
		format:        outputFormat,
	}

	// Only an explicit -remove overrides the configuration.
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "remove" {
			cmd.remove = remove
		}
	})

	return cmd, nil
}

// apply overlays command-line values on the loaded configuration.
func (c *watchCommand) apply(cfg *config.Config) error {
	if c.dir != "" {
		cfg.Watch.Directory = c.dir
	}
	if c.exts != "" {
		cfg.Watch.Extensions = config.ParseExtensions(c.exts)
	}
	if c.backend != "" {
		cfg.Watch.Backend = c.backend
	}
	if c.queue >= 0 {
		cfg.Watch.DispatchQueue = c.queue
	}
	if c.delay >= 0 {
		cfg.Processing.Delay = c.delay
	}
	if c.remove != nil {
		cfg.Processing.RemoveProcessed = *c.remove
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Execute runs the watch command until interrupted, the duration elapses,
// or the notification channel fails.
func (c *watchCommand) Execute(ctx context.Context) error {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := c.apply(cfg); err != nil {
		return err
	}

	log := logger.New(cfg.LoggerConfig())

	if err := os.MkdirAll(cfg.Watch.Directory, 0750); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	backend, err := notify.ParseBackend(cfg.Watch.Backend)
	if err != nil {
		return err
	}

	proc := &processor{
		logger: log,
		delay:  cfg.Processing.Delay,
		remove: cfg.Processing.RemoveProcessed,
	}

	w := watcher.New(watcher.Config{
		Directory:     cfg.Watch.Directory,
		Extensions:    cfg.Watch.Extensions,
		Callback:      proc.Process,
		WaitTimeout:   cfg.Watch.WaitTimeout,
		BufferSize:    cfg.Watch.BufferSize,
		Backend:       backend,
		DispatchQueue: cfg.Watch.DispatchQueue,
	}, log)
	if !w.Valid() {
		return fmt.Errorf("failed to start watcher: %w", w.Err())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.duration)
		defer cancel()
	}

	formatter := display.New(display.Config{Format: c.format, Compact: c.format == display.FormatJSON})

	if c.backlog {
		n, err := c.processBacklog(cfg, proc, log)
		if err != nil {
			_ = w.Close() //nolint:errcheck // backlog error takes precedence
			return err
		}
		fmt.Fprintf(c.out, "Backlog: %d files\n", n)
	}

	fmt.Fprintf(c.out, "Watching %s for %v (Ctrl+C to stop)\n", cfg.Watch.Directory, cfg.Watch.Extensions)

	waitUpdates := c.startMonitor(w, formatter, log)

	ok := w.WatchContext(ctx)
	waitUpdates()
	if !ok {
		return fmt.Errorf("failed to start watcher: %w", w.Err())
	}

	if err := formatter.FormatStats(c.out, w.Stats()); err != nil {
		return fmt.Errorf("failed to write statistics: %w", err)
	}

	if err := w.Err(); err != nil {
		return fmt.Errorf("watcher stopped: %w", err)
	}
	return nil
}

// processBacklog hands files that were already in the directory to the
// processor. It runs after the watcher acquired its channel, so a file
// arriving during the scan may be processed twice.
func (c *watchCommand) processBacklog(cfg *config.Config, proc *processor, log logger.Logger) (int, error) {
	d := discovery.New(cfg.Watch.Directory, filter.New(cfg.Watch.Extensions), log)
	files, err := d.Discover()
	if err != nil {
		return 0, fmt.Errorf("failed to scan backlog: %w", err)
	}

	for _, f := range files {
		proc.Process(f.Path)
	}
	log.Info("backlog processed", "files", len(files))
	return len(files), nil
}

// startMonitor prints periodic statistics while the watcher runs. The
// returned function stops the monitor and waits for the last update to be
// written.
func (c *watchCommand) startMonitor(source monitor.StatsSource, formatter display.Formatter, log logger.Logger) func() {
	if c.statsInterval <= 0 {
		return func() {}
	}

	m := monitor.New(monitor.Config{RefreshInterval: c.statsInterval}, source, log)
	if err := m.Start(); err != nil {
		log.Warn("failed to start statistics monitor", "error", err)
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range m.Updates() {
			if err := formatter.FormatUpdate(c.out, update); err != nil {
				log.Warn("failed to write statistics update", "error", err)
			}
		}
	}()

	return func() {
		_ = m.Close() //nolint:errcheck // Close never fails
		<-done
	}
}

// processor is the demo processing step: it counts each file, waits for the
// configured delay and optionally removes the file.
type processor struct {
	logger logger.Logger
	delay  time.Duration
	remove bool
	count  atomic.Uint64
}

// Process handles one file. Failures are logged and never propagate.
func (p *processor) Process(path string) {
	n := p.count.Add(1)
	p.logger.Info("processing file", "counter", n, "path", path)

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	if !p.remove {
		return
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("file vanished before removal", "path", path)
			return
		}
		p.logger.Error("failed to remove processed file", "path", path, "error", err)
		return
	}
	p.logger.Debug("removed processed file", "path", path)
}

// Count returns how many files were processed.
func (p *processor) Count() uint64 {
	return p.count.Load()
}
