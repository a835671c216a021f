package decoder

import (
	"bytes"
	"encoding/binary"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
)

// Header sizes of the supported layouts.
const (
	NotifyInformationHeaderSize = 12
	InotifyHeaderSize           = 16
)

// FILE_NOTIFY_INFORMATION action codes.
const (
	FileActionAdded          = 1
	FileActionRemoved        = 2
	FileActionModified       = 3
	FileActionRenamedOldName = 4
	FileActionRenamedNewName = 5
)

// inotify mask bits. These are fixed by the Linux ABI and declared here so
// the decoder builds on every platform.
const (
	InModify    = 0x00000002
	InMovedFrom = 0x00000040
	InMovedTo   = 0x00000080
	InCreate    = 0x00000100
	InDelete    = 0x00000200
	InQOverflow = 0x00004000
	InIgnored   = 0x00008000
	InIsDir     = 0x40000000
)

// Decoder decodes buffers of a single layout for one watched directory.
type Decoder struct {
	layout Layout
	root   string
}

// New creates a decoder for buffers in the given layout whose records are
// relative to root.
func New(layout Layout, root string) *Decoder {
	return &Decoder{
		layout: layout,
		root:   root,
	}
}

// Layout returns the layout this decoder reads.
func (d *Decoder) Layout() Layout {
	return d.layout
}

// Path joins the watched directory root with the record's relative path.
func (d *Decoder) Path(rec ChangeRecord) string {
	return filepath.Join(d.root, filepath.FromSlash(rec.RelativePath))
}

// Decode returns a lazy sequence over the first filled bytes of buf.
//
// The sequence is finite and cannot be restarted. Decoding the same buffer
// twice yields the same records.
func (d *Decoder) Decode(buf []byte, filled int) *Records {
	if filled < 0 {
		filled = 0
	}
	if filled > len(buf) {
		filled = len(buf)
	}
	return &Records{
		layout: d.layout,
		buf:    buf[:filled:filled],
	}
}

// Records iterates over the records of one buffer.
//
// Usage mirrors bufio.Scanner: call Next until it returns false, read each
// record with Record, then check Err.
type Records struct {
	layout Layout
	buf    []byte
	offset int
	done   bool
	rec    ChangeRecord
	err    error
}

// Next advances to the next record. It returns false at the end of the
// buffer or at the first malformed record.
func (r *Records) Next() bool {
	if r.done {
		return false
	}

	remaining := len(r.buf) - r.offset
	if remaining == 0 && (r.offset == 0 || r.layout == LayoutInotify) {
		r.done = true
		return false
	}

	var (
		rec ChangeRecord
		err error
	)
	switch {
	case remaining <= 0:
		err = ErrBadOffset
	case r.layout == LayoutInotify:
		rec, err = decodeInotify(r.buf[r.offset:])
	default:
		rec, err = decodeNotifyInformation(r.buf[r.offset:])
	}

	if err != nil {
		r.err = &DecodeError{Layout: r.layout, Offset: r.offset, Err: err}
		r.done = true
		return false
	}

	r.rec = rec
	if rec.NextOffset == 0 {
		r.done = true
	} else {
		r.offset += rec.NextOffset
	}
	return true
}

// Record returns the record produced by the last successful Next.
func (r *Records) Record() ChangeRecord {
	return r.rec
}

// Err returns the decode error that ended the sequence, if any.
func (r *Records) Err() error {
	return r.err
}

// All drains the sequence into a slice. Records decoded before an error are
// returned together with that error.
func (r *Records) All() ([]ChangeRecord, error) {
	var out []ChangeRecord
	for r.Next() {
		out = append(out, r.Record())
	}
	return out, r.Err()
}

// decodeNotifyInformation decodes the record at the start of b.
func decodeNotifyInformation(b []byte) (ChangeRecord, error) {
	if len(b) < NotifyInformationHeaderSize {
		return ChangeRecord{}, ErrTruncatedRecord
	}

	next := binary.LittleEndian.Uint32(b[0:4])
	action := binary.LittleEndian.Uint32(b[4:8])
	nameLen := binary.LittleEndian.Uint32(b[8:12])

	if nameLen%2 != 0 {
		return ChangeRecord{}, ErrBadNameLength
	}
	extent := uint64(NotifyInformationHeaderSize) + uint64(nameLen)
	if extent > uint64(len(b)) {
		return ChangeRecord{}, ErrTruncatedRecord
	}
	if next != 0 && uint64(next) < extent {
		return ChangeRecord{}, ErrBadOffset
	}

	name, err := utf16LE.NewDecoder().Bytes(b[NotifyInformationHeaderSize:extent])
	if err != nil {
		return ChangeRecord{}, err
	}

	rec := ChangeRecord{
		Action:       ActionOther,
		RelativePath: string(name),
		NextOffset:   int(next),
	}
	switch action {
	case FileActionAdded:
		rec.Action = ActionAdded
	case FileActionRenamedNewName:
		rec.Action = ActionRenamedNewName
	}
	return rec, nil
}

// decodeInotify decodes the record at the start of b.
func decodeInotify(b []byte) (ChangeRecord, error) {
	if len(b) < InotifyHeaderSize {
		return ChangeRecord{}, ErrTruncatedRecord
	}

	mask := binary.NativeEndian.Uint32(b[4:8])
	nameLen := binary.NativeEndian.Uint32(b[12:16])

	extent := uint64(InotifyHeaderSize) + uint64(nameLen)
	if extent > uint64(len(b)) {
		return ChangeRecord{}, ErrTruncatedRecord
	}

	name := b[InotifyHeaderSize:extent]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	rec := ChangeRecord{
		Action:       ActionOther,
		RelativePath: string(name),
		NextOffset:   int(extent),
	}
	switch {
	case mask&InIsDir != 0:
	case mask&InCreate != 0:
		rec.Action = ActionAdded
	case mask&InMovedTo != 0:
		rec.Action = ActionRenamedNewName
	}
	return rec, nil
}

// utf16LE is the encoding of notify-information file names.
var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
