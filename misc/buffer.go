package misc

import (
	"io"

	"github.com/cockroachdb/errors"
)

var errNegativePosition = errors.New("misc: negative position")

// Buffer is an in memory io.ReadWriteSeeker. Writing past the end grows the
// buffer, writing before it overwrites. The zero value is an empty buffer.
type Buffer struct {
	buf []byte
	pos int64
}

func NewBuffer(b []byte) *Buffer {
	return &Buffer{buf: b}
}

func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if old := int64(len(b.buf)); end > old {
		if end > int64(cap(b.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(b.buf))))
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
			if b.pos > old {
				clear(b.buf[old:b.pos])
			}
		}
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.buf)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = b.pos + offset
	case io.SeekEnd:
		pos = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("misc: invalid whence")
	}
	if pos < 0 {
		return 0, errNegativePosition
	}
	b.pos = pos
	return pos, nil
}

// Bytes returns the whole buffer, regardless of the current position.
func (b *Buffer) Bytes() []byte { return b.buf }

func (b *Buffer) Len() int { return len(b.buf) }
