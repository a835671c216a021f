package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/dropwatch/pkg/config"
	"github.com/0xmhha/dropwatch/pkg/display"
	"github.com/0xmhha/dropwatch/pkg/logger"
)

// isolate clears dropwatch environment overrides and points HOME at an
// empty directory so no user configuration is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{config.EnvDirectory, config.EnvExtensions, config.EnvBackend, config.EnvLogLevel} {
		t.Setenv(key, "")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestParseWatchFlags(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantDir    string
		wantExts   string
		wantDur    time.Duration
		wantQueue  int
		wantRemove *bool
		wantErr    bool
	}{
		{
			name:      "defaults",
			args:      []string{},
			wantQueue: -1,
		},
		{
			name:      "all flags",
			args:      []string{"-dir", "/data/inbox", "-ext", "dat,csv", "-duration", "5m", "-queue", "8"},
			wantDir:   "/data/inbox",
			wantExts:  "dat,csv",
			wantDur:   5 * time.Minute,
			wantQueue: 8,
		},
		{
			name:       "explicit remove false",
			args:       []string{"-remove=false"},
			wantQueue:  -1,
			wantRemove: boolPtr(false),
		},
		{
			name:    "negative stats interval",
			args:    []string{"-stats-interval", "-1s"},
			wantErr: true,
		},
		{
			name:    "unknown format",
			args:    []string{"-format", "xml"},
			wantErr: true,
		},
		{
			name:    "negative duration",
			args:    []string{"-duration", "-1s"},
			wantErr: true,
		},
		{
			name:    "unknown flag",
			args:    []string{"-recursive"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd, err := parseWatchFlags("/test/config.yaml", tt.args, &out)

			if tt.wantErr {
				if err == nil {
					t.Error("parseWatchFlags() error = nil, wantErr = true")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseWatchFlags() error = %v", err)
			}

			if cmd.configPath != "/test/config.yaml" {
				t.Errorf("configPath = %s", cmd.configPath)
			}
			if cmd.dir != tt.wantDir {
				t.Errorf("dir = %q, want %q", cmd.dir, tt.wantDir)
			}
			if cmd.exts != tt.wantExts {
				t.Errorf("exts = %q, want %q", cmd.exts, tt.wantExts)
			}
			if cmd.duration != tt.wantDur {
				t.Errorf("duration = %v, want %v", cmd.duration, tt.wantDur)
			}
			if cmd.queue != tt.wantQueue {
				t.Errorf("queue = %d, want %d", cmd.queue, tt.wantQueue)
			}
			switch {
			case tt.wantRemove == nil && cmd.remove != nil:
				t.Errorf("remove = %v, want unset", *cmd.remove)
			case tt.wantRemove != nil && (cmd.remove == nil || *cmd.remove != *tt.wantRemove):
				t.Errorf("remove = %v, want %v", cmd.remove, *tt.wantRemove)
			}
		})
	}
}

func TestParseWatchFlagsOutput(t *testing.T) {
	var out bytes.Buffer
	cmd, err := parseWatchFlags("", []string{"-backlog", "-stats-interval", "10s", "-format", "TABLE"}, &out)
	if err != nil {
		t.Fatalf("parseWatchFlags() error = %v", err)
	}
	if !cmd.backlog {
		t.Error("backlog = false, want true")
	}
	if cmd.statsInterval != 10*time.Second {
		t.Errorf("statsInterval = %v, want 10s", cmd.statsInterval)
	}
	if cmd.format != display.FormatTable {
		t.Errorf("format = %v, want table", cmd.format)
	}

	defaults, err := parseWatchFlags("", nil, &out)
	if err != nil {
		t.Fatalf("parseWatchFlags() error = %v", err)
	}
	if defaults.backlog || defaults.statsInterval != 0 || defaults.format != display.FormatSimple {
		t.Errorf("unexpected defaults: %+v", defaults)
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func TestWatchCommandApply(t *testing.T) {
	cfg := config.Default()
	cmd := &watchCommand{
		dir:     "/data/inbox",
		exts:    ".DAT, xml",
		backend: "portable",
		queue:   4,
		delay:   -1,
		remove:  boolPtr(false),
	}

	if err := cmd.apply(cfg); err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if cfg.Watch.Directory != "/data/inbox" {
		t.Errorf("Directory = %s", cfg.Watch.Directory)
	}
	if strings.Join(cfg.Watch.Extensions, ",") != "dat,xml" {
		t.Errorf("Extensions = %v", cfg.Watch.Extensions)
	}
	if cfg.Watch.DispatchQueue != 4 {
		t.Errorf("DispatchQueue = %d", cfg.Watch.DispatchQueue)
	}
	if cfg.Processing.Delay != 0 {
		t.Errorf("Delay = %v, want configured default", cfg.Processing.Delay)
	}
	if cfg.Processing.RemoveProcessed {
		t.Error("RemoveProcessed = true, want false")
	}

	bad := &watchCommand{backend: "polling", queue: -1, delay: -1}
	if err := bad.apply(config.Default()); err == nil {
		t.Error("apply() with unknown backend should fail")
	}
}

func TestProcessor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.dat")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	p := &processor{logger: logger.Noop(), remove: true}
	p.Process(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("processed file still exists: %v", err)
	}

	// A missing file is logged, not fatal.
	p.Process(path)
	if p.Count() != 2 {
		t.Errorf("Count() = %d, want 2", p.Count())
	}

	keep := filepath.Join(dir, "b.dat")
	if err := os.WriteFile(keep, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	(&processor{logger: logger.Noop()}).Process(keep)
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("file should be kept: %v", err)
	}
}

func TestWatchCommandProcessesFiles(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "inbox")

	var out bytes.Buffer
	cmd := &watchCommand{
		out:     &out,
		dir:     dir,
		exts:    "dat",
		backend: "portable",
		queue:   -1,
		delay:   -1,
		format:  display.FormatSimple,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- cmd.Execute(ctx)
	}()

	// The command creates the directory before watching.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watch directory was not created")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "a.dat")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	// Processed files are removed by default.
	for {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("processed file was not removed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Execute() did not return after cancel")
	}

	if !strings.Contains(out.String(), "Processed: 1") {
		t.Errorf("output missing processed count:\n%s", out.String())
	}
}

func TestWatchCommandBacklogAndStats(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	backlog := filepath.Join(dir, "old.dat")
	if err := os.WriteFile(backlog, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "old.txt")
	if err := os.WriteFile(other, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := &watchCommand{
		out:           &out,
		dir:           dir,
		exts:          "dat",
		backend:       "portable",
		queue:         -1,
		delay:         -1,
		duration:      300 * time.Millisecond,
		backlog:       true,
		statsInterval: 20 * time.Millisecond,
		format:        display.FormatSimple,
	}

	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if _, err := os.Stat(backlog); !os.IsNotExist(err) {
		t.Errorf("backlog file was not processed: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("unmatched file should be kept: %v", err)
	}

	output := out.String()
	for _, want := range []string{"Backlog: 1 files", "files/sec", "Processed: 0 |"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestRun(t *testing.T) {
	home := isolate(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "usage", args: nil, want: "Commands:"},
		{name: "help", args: []string{"help"}, want: "dropwatch config"},
		{name: "version", args: []string{"-version"}, want: "dropwatch dev"},
		{name: "unknown command", args: []string{"frobnicate"}, wantErr: true},
		{name: "config help", args: []string{"config"}, want: "Subcommands:"},
		{name: "config unknown", args: []string{"config", "reset"}, wantErr: true},
		{name: "config path", args: []string{"config", "path"}, want: filepath.Join(home, ".config", "dropwatch", "config.yaml")},
		{name: "config show yaml", args: []string{"config", "show"}, want: "wait_timeout: 16ms"},
		{name: "config show bad format", args: []string{"config", "show", "-format", "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(tt.args, &out)

			if tt.wantErr {
				if err == nil {
					t.Error("run() error = nil, wantErr = true")
				}
				return
			}
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output does not contain %q:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestConfigShowJSON(t *testing.T) {
	isolate(t)

	var out bytes.Buffer
	if err := run([]string{"config", "show", "-format", "json"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("config show output is not JSON: %v", err)
	}
	if cfg.Watch.BufferSize != 64*1024 {
		t.Errorf("BufferSize = %d, want 65536", cfg.Watch.BufferSize)
	}
}

func TestConfigInit(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "dropwatch.yaml")

	var out bytes.Buffer
	if err := run([]string{"config", "init", "-output", path}, &out); err != nil {
		t.Fatalf("config init error = %v", err)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if !cfg.Processing.RemoveProcessed {
		t.Error("RemoveProcessed = false, want default true")
	}

	if err := run([]string{"config", "init", "-output", path}, &out); err == nil {
		t.Error("config init should refuse to overwrite without -force")
	}
	if err := run([]string{"config", "init", "-output", path, "-force"}, &out); err != nil {
		t.Errorf("config init -force error = %v", err)
	}

	out.Reset()
	if err := run([]string{"-config", path, "config", "show"}, &out); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out.String(), "# Source: "+path) {
		t.Errorf("show should name the source file:\n%s", out.String())
	}
}
