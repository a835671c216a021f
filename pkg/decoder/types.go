// Package decoder turns raw directory-change buffers into change records.
//
// A notification backend fills a byte buffer with variable-length records in
// one of two layouts. The decoder walks that buffer with bounds checks on
// every header and name, so a corrupt offset ends decoding instead of reading
// past the filled length.
//
// Example usage:
//
//	d := decoder.New(decoder.LayoutInotify, "/data/inbox")
//	records := d.Decode(buf, n)
//	for records.Next() {
//	    rec := records.Record()
//	    fmt.Println(rec.Action, d.Path(rec))
//	}
//	if err := records.Err(); err != nil {
//	    log.Printf("decode stopped early: %v", err)
//	}
package decoder

// Action describes what happened to a directory entry.
type Action uint8

// Decoded actions.
const (
	ActionOther          Action = iota // Anything that is not an arrival
	ActionAdded                        // Entry created in the directory
	ActionRenamedNewName               // Entry renamed into the directory
)

// String returns a human-readable action name.
func (a Action) String() string {
	switch a {
	case ActionAdded:
		return "ADDED"
	case ActionRenamedNewName:
		return "RENAMED_NEW_NAME"
	default:
		return "OTHER"
	}
}

// Layout identifies the binary record format of a buffer.
type Layout uint8

// Supported layouts.
const (
	// LayoutNotifyInformation is the FILE_NOTIFY_INFORMATION layout:
	// NextEntryOffset u32, Action u32, FileNameLength u32, FileName UTF-16LE.
	LayoutNotifyInformation Layout = iota

	// LayoutInotify is the struct inotify_event layout:
	// wd i32, mask u32, cookie u32, len u32, name[len] (NUL padded).
	LayoutInotify
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutNotifyInformation:
		return "notify-information"
	case LayoutInotify:
		return "inotify"
	default:
		return "unknown"
	}
}

// ChangeRecord is one decoded filesystem event.
type ChangeRecord struct {
	// Action is the decoded event kind.
	Action Action

	// RelativePath is the entry name relative to the watched directory.
	RelativePath string

	// NextOffset is the distance in bytes from the start of this record to
	// the start of the next one. Zero marks the last record of a
	// notify-information buffer.
	NextOffset int
}
