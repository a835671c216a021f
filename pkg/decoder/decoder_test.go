package decoder

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeAll packs the given records into a fresh 64 KiB buffer.
func encodeAll(t *testing.T, records ...struct {
	action uint32
	name   string
}) ([]byte, int) {
	t.Helper()

	buf := make([]byte, 64*1024)
	enc := NewEncoder(buf)
	for _, r := range records {
		require.True(t, enc.Encode(r.action, r.name), "record %q does not fit", r.name)
	}
	return buf, enc.Len()
}

type rec = struct {
	action uint32
	name   string
}

func TestDecodeNotifyInformation(t *testing.T) {
	buf, n := encodeAll(t,
		rec{FileActionAdded, "a.dat"},
		rec{FileActionRemoved, "b.dat"},
		rec{FileActionRenamedOldName, "c.tmp"},
		rec{FileActionRenamedNewName, "c.dat"},
		rec{FileActionModified, "d.dat"},
		rec{FileActionAdded, "ünïcode.DAT"},
	)

	d := New(LayoutNotifyInformation, "/inbox")
	records, err := d.Decode(buf, n).All()
	require.NoError(t, err)
	require.Len(t, records, 6)

	want := []struct {
		action Action
		name   string
	}{
		{ActionAdded, "a.dat"},
		{ActionOther, "b.dat"},
		{ActionOther, "c.tmp"},
		{ActionRenamedNewName, "c.dat"},
		{ActionOther, "d.dat"},
		{ActionAdded, "ünïcode.DAT"},
	}
	for i, w := range want {
		assert.Equal(t, w.action, records[i].Action, "record %d action", i)
		assert.Equal(t, w.name, records[i].RelativePath, "record %d name", i)
	}

	assert.Equal(t, 0, records[len(records)-1].NextOffset, "last record must terminate the chain")
	for _, r := range records[:len(records)-1] {
		assert.Positive(t, r.NextOffset)
		assert.Zero(t, r.NextOffset%4, "offsets are DWORD aligned")
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	buf, n := encodeAll(t,
		rec{FileActionAdded, "one.dat"},
		rec{FileActionAdded, "two.txt"},
		rec{FileActionRenamedNewName, "three.dat"},
	)

	d := New(LayoutNotifyInformation, "/inbox")
	first, err := d.Decode(buf, n).All()
	require.NoError(t, err)
	second, err := d.Decode(buf, n).All()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodeEmptyBuffer(t *testing.T) {
	for _, layout := range []Layout{LayoutNotifyInformation, LayoutInotify} {
		t.Run(layout.String(), func(t *testing.T) {
			records := New(layout, "/inbox").Decode(make([]byte, 1024), 0)
			assert.False(t, records.Next())
			assert.NoError(t, records.Err())
		})
	}
}

func TestDecodeIsNotRestartable(t *testing.T) {
	buf, n := encodeAll(t, rec{FileActionAdded, "a.dat"})

	records := New(LayoutNotifyInformation, "/inbox").Decode(buf, n)
	require.True(t, records.Next())
	assert.False(t, records.Next())
	assert.False(t, records.Next())
	assert.NoError(t, records.Err())
}

func TestDecodeTruncatedRecord(t *testing.T) {
	buf, n := encodeAll(t,
		rec{FileActionAdded, "a.dat"},
		rec{FileActionAdded, "b.dat"},
	)

	// Inflate the second record's name length far past the filled length.
	second := binary.LittleEndian.Uint32(buf[0:4])
	binary.LittleEndian.PutUint32(buf[second+8:], 1<<20)

	records := New(LayoutNotifyInformation, "/inbox").Decode(buf, n)
	got, err := records.All()

	require.Len(t, got, 1, "records before the malformed one are kept")
	assert.Equal(t, "a.dat", got[0].RelativePath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncatedRecord))

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, int(second), decodeErr.Offset)
	assert.Equal(t, LayoutNotifyInformation, decodeErr.Layout)
}

func TestDecodeFilledLengthBoundsDecoding(t *testing.T) {
	buf, n := encodeAll(t,
		rec{FileActionAdded, "a.dat"},
		rec{FileActionAdded, "b.dat"},
	)

	// The buffer beyond n holds zeroes; cutting inside the second record's
	// name must stop there even though capacity remains.
	got, err := New(LayoutNotifyInformation, "/inbox").Decode(buf, n-2).All()
	require.Len(t, got, 1)
	assert.ErrorIs(t, err, ErrTruncatedRecord)
}

func TestDecodeBadOffsets(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(buf []byte, n int)
		wantLen int
		wantErr error
	}{
		{
			name: "next offset past filled length",
			corrupt: func(buf []byte, n int) {
				binary.LittleEndian.PutUint32(buf[0:4], uint32(n+128))
			},
			wantLen: 1,
			wantErr: ErrBadOffset,
		},
		{
			name: "next offset exactly at filled length",
			corrupt: func(buf []byte, n int) {
				binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
			},
			wantLen: 1,
			wantErr: ErrBadOffset,
		},
		{
			name: "next offset inside current record",
			corrupt: func(buf []byte, _ int) {
				binary.LittleEndian.PutUint32(buf[0:4], 4)
			},
			wantLen: 0,
			wantErr: ErrBadOffset,
		},
		{
			name: "odd name length",
			corrupt: func(buf []byte, _ int) {
				binary.LittleEndian.PutUint32(buf[8:12], 9)
			},
			wantLen: 0,
			wantErr: ErrBadNameLength,
		},
		{
			name: "huge next offset",
			corrupt: func(buf []byte, _ int) {
				binary.LittleEndian.PutUint32(buf[0:4], 0xFFFFFFF0)
			},
			wantLen: 1,
			wantErr: ErrBadOffset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, n := encodeAll(t,
				rec{FileActionAdded, "a.dat"},
				rec{FileActionAdded, "b.dat"},
			)
			tt.corrupt(buf, n)

			got, err := New(LayoutNotifyInformation, "/inbox").Decode(buf, n).All()
			assert.Len(t, got, tt.wantLen)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeClampsFilledLength(t *testing.T) {
	buf := make([]byte, 64)
	enc := NewEncoder(buf)
	require.True(t, enc.Encode(FileActionAdded, "a.dat"))

	got, err := New(LayoutNotifyInformation, "/inbox").Decode(buf[:enc.Len()], 1<<20).All()
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = New(LayoutNotifyInformation, "/inbox").Decode(buf, -5).All()
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeInotify(t *testing.T) {
	var buf []byte
	buf = AppendInotify(buf, 1, InCreate, 0, "a.dat")
	buf = AppendInotify(buf, 1, InCreate, 0, "b.txt")
	buf = AppendInotify(buf, 1, InMovedFrom, 7, "c.tmp")
	buf = AppendInotify(buf, 1, InMovedTo, 7, "c.dat")
	buf = AppendInotify(buf, 1, InDelete, 0, "a.dat")
	buf = AppendInotify(buf, 1, InCreate|InIsDir, 0, "dir.dat")
	buf = AppendInotify(buf, -1, InQOverflow, 0, "")

	got, err := New(LayoutInotify, "/inbox").Decode(buf, len(buf)).All()
	require.NoError(t, err)
	require.Len(t, got, 7)

	want := []struct {
		action Action
		name   string
	}{
		{ActionAdded, "a.dat"},
		{ActionAdded, "b.txt"},
		{ActionOther, "c.tmp"},
		{ActionRenamedNewName, "c.dat"},
		{ActionOther, "a.dat"},
		{ActionOther, "dir.dat"},
		{ActionOther, ""},
	}
	offset := 0
	for i, w := range want {
		assert.Equal(t, w.action, got[i].Action, "record %d action", i)
		assert.Equal(t, w.name, got[i].RelativePath, "record %d name", i)
		offset += got[i].NextOffset
	}
	assert.Equal(t, len(buf), offset, "offsets walk the whole buffer")
}

func TestDecodeInotifyTruncated(t *testing.T) {
	tests := []struct {
		name  string
		build func() []byte
		want  int
	}{
		{
			name: "partial trailing header",
			build: func() []byte {
				buf := AppendInotify(nil, 1, InCreate, 0, "a.dat")
				return append(buf, 0x01, 0x02, 0x03)
			},
			want: 1,
		},
		{
			name: "name longer than buffer",
			build: func() []byte {
				buf := AppendInotify(nil, 1, InCreate, 0, "a.dat")
				second := len(buf)
				buf = AppendInotify(buf, 1, InCreate, 0, "b.dat")
				binary.NativeEndian.PutUint32(buf[second+12:], 4096)
				return buf
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.build()
			got, err := New(LayoutInotify, "/inbox").Decode(buf, len(buf)).All()
			assert.Len(t, got, tt.want)
			assert.ErrorIs(t, err, ErrTruncatedRecord)
		})
	}
}

func TestPath(t *testing.T) {
	root := filepath.Join("data", "inbox")
	d := New(LayoutInotify, root)

	got := d.Path(ChangeRecord{RelativePath: "a.dat"})
	assert.Equal(t, filepath.Join(root, "a.dat"), got)
	assert.Equal(t, LayoutInotify, d.Layout())
}

func TestEncoderCapacity(t *testing.T) {
	buf := make([]byte, 32)
	enc := NewEncoder(buf)

	assert.True(t, enc.Empty())
	require.True(t, enc.Encode(FileActionAdded, "a.dat"))
	assert.False(t, enc.Empty())
	assert.Equal(t, 22, enc.Len())

	assert.False(t, enc.Encode(FileActionAdded, "b.dat"), "second record exceeds capacity")
	assert.Equal(t, 22, enc.Len(), "failed encode leaves the buffer untouched")
	assert.Equal(t, 32, len(buf))

	enc.Reset()
	assert.True(t, enc.Empty())
	assert.Zero(t, enc.Len())
}

func TestActionString(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionAdded, "ADDED"},
		{ActionRenamedNewName, "RENAMED_NEW_NAME"},
		{ActionOther, "OTHER"},
		{Action(99), "OTHER"},
	}

	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("Action.String() = %s, want %s", got, tt.want)
		}
	}

	if got := Layout(9).String(); got != "unknown" {
		t.Errorf("Layout.String() = %s, want unknown", got)
	}
}
