package decoder

import (
	"encoding/binary"
)

// Encoder packs records into a fixed-capacity buffer using the
// notify-information layout. Backends that do not receive raw kernel
// buffers use it so every channel hands the watcher the same format.
type Encoder struct {
	buf   []byte
	last  int // offset of the previous record, -1 when empty
	end   int // filled length
	write int // next aligned write position
}

// NewEncoder creates an encoder writing into buf. The capacity of buf is
// never changed.
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf, last: -1}
}

// Encode appends one record. It returns false, leaving the buffer
// untouched, when the record does not fit.
func (e *Encoder) Encode(action uint32, name string) bool {
	encoded, err := utf16LE.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return false
	}

	start := e.write
	size := NotifyInformationHeaderSize + len(encoded)
	if start+size > len(e.buf) {
		return false
	}

	binary.LittleEndian.PutUint32(e.buf[start:], 0)
	binary.LittleEndian.PutUint32(e.buf[start+4:], action)
	binary.LittleEndian.PutUint32(e.buf[start+8:], uint32(len(encoded)))
	copy(e.buf[start+NotifyInformationHeaderSize:], encoded)

	if e.last >= 0 {
		binary.LittleEndian.PutUint32(e.buf[e.last:], uint32(start-e.last))
	}

	e.last = start
	e.end = start + size
	e.write = (e.end + 3) &^ 3
	return true
}

// Len returns the number of filled bytes.
func (e *Encoder) Len() int {
	return e.end
}

// Empty reports whether no record has been encoded since the last Reset.
func (e *Encoder) Empty() bool {
	return e.last < 0
}

// Reset discards all encoded records.
func (e *Encoder) Reset() {
	e.last = -1
	e.end = 0
	e.write = 0
}

// AppendInotify appends one inotify_event record to b in host byte order,
// padding the name to a four byte boundary.
func AppendInotify(b []byte, wd int32, mask, cookie uint32, name string) []byte {
	nameLen := 0
	if name != "" {
		nameLen = (len(name) + 1 + 3) &^ 3
	}

	var header [InotifyHeaderSize]byte
	binary.NativeEndian.PutUint32(header[0:4], uint32(wd))
	binary.NativeEndian.PutUint32(header[4:8], mask)
	binary.NativeEndian.PutUint32(header[8:12], cookie)
	binary.NativeEndian.PutUint32(header[12:16], uint32(nameLen))

	b = append(b, header[:]...)
	if nameLen > 0 {
		padded := make([]byte, nameLen)
		copy(padded, name)
		b = append(b, padded...)
	}
	return b
}
