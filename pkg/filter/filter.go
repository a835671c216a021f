// Package filter decides which change records are delivered to the callback.
//
// Only arrivals are actionable: entries created in the watched directory or
// renamed into it. An arrival is delivered when the text after the final dot
// of its file name matches one of the configured extensions, ignoring case.
package filter

import (
	"path/filepath"
	"strings"

	"github.com/0xmhha/dropwatch/pkg/decoder"
)

// Filter matches change records against an extension allow-list.
//
// A Filter is immutable and safe for concurrent use.
type Filter struct {
	extensions map[string]struct{}
}

// New creates a filter for the given extensions.
//
// Extensions are normalised: surrounding space and one leading dot are
// removed and the result is lowercased. Empty entries are dropped.
func New(extensions []string) *Filter {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if n := Normalize(ext); n != "" {
			set[n] = struct{}{}
		}
	}
	return &Filter{extensions: set}
}

// Normalize returns the canonical form of a configured extension.
func Normalize(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimPrefix(ext, ".")
	return strings.ToLower(ext)
}

// Extensions returns the configured extensions in no particular order.
func (f *Filter) Extensions() []string {
	out := make([]string, 0, len(f.extensions))
	for ext := range f.extensions {
		out = append(out, ext)
	}
	return out
}

// IsValidAction reports whether the action is an arrival.
// Modify, delete and rename-from never qualify.
func (f *Filter) IsValidAction(action decoder.Action) bool {
	return action == decoder.ActionAdded || action == decoder.ActionRenamedNewName
}

// IsProcessable reports whether the file name's extension is configured.
// A name without a dot, or ending in one, is rejected.
func (f *Filter) IsProcessable(path string) bool {
	name := filepath.Base(path)
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 || dot == len(name)-1 {
		return false
	}
	_, ok := f.extensions[strings.ToLower(name[dot+1:])]
	return ok
}

// Accept reports whether a record at path should be delivered.
func (f *Filter) Accept(rec decoder.ChangeRecord, path string) bool {
	return f.IsValidAction(rec.Action) && f.IsProcessable(path)
}
