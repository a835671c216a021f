// Package discovery finds files that already sit in a watched directory.
//
// A watcher only reports files that arrive after its channel is acquired.
// Discover lists the backlog left from before, so a caller can hand those
// files to the same callback.
//
// Example usage:
//
//	d := discovery.New("/var/spool/in", filter.New([]string{"csv"}), logger.Default())
//	files, err := d.Discover()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range files {
//	    process(f.Path)
//	}
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/0xmhha/dropwatch/pkg/filter"
)

// Logger defines the logging interface used by the discovery package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// File represents a discovered backlog file.
type File struct {
	// Path is the file path, rooted at the scanned directory.
	Path string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time
}

// Discoverer lists processable files in a directory.
type Discoverer interface {
	// Discover scans the directory once and returns the regular files whose
	// extension the filter accepts, oldest first.
	//
	// Returns:
	//   - Slice of discovered files
	//   - ErrDirectoryNotFound if the directory does not exist
	//   - Error if the directory cannot be read
	//
	// Subdirectories are not descended into.
	Discover() ([]File, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	dir    string
	filter *filter.Filter
	logger Logger
}

// New creates a new Discoverer for dir.
//
// Parameters:
//   - dir: Directory to scan
//   - f: Extension filter applied to file names
//   - logger: Logger for diagnostics
func New(dir string, f *filter.Filter, logger Logger) Discoverer {
	return &discoverer{
		dir:    dir,
		filter: f,
		logger: logger,
	}
}

// Discover implements Discoverer.Discover.
func (d *discoverer) Discover() ([]File, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, d.dir)
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", d.dir, err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !d.filter.IsProcessable(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed between the listing and the stat.
			d.logger.Debug("skipping vanished file", "name", entry.Name(), "error", err)
			continue
		}

		files = append(files, File{
			Path:    filepath.Join(d.dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		return files[i].Path < files[j].Path
	})

	d.logger.Debug("backlog discovered", "dir", d.dir, "files", len(files), "entries", len(entries))
	return files, nil
}
