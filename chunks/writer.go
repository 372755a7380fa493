package chunks

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/chunkfile/telemetry"
)

type writerState int

const (
	writerUnopened writerState = iota
	writerOpened
	writerClosed
)

func (s writerState) String() string {
	switch s {
	case writerUnopened:
		return "unopened"
	case writerOpened:
		return "opened"
	default:
		return "closed"
	}
}

// Writer lays out a container on a seekable stream.
//
// Chunks are written one at a time through the ChunkWriter returned by
// OpenChunk, which must be closed before the next chunk is opened or the
// container is closed. Close writes the table of contents after the last chunk
// and patches its offset into the header.
type Writer struct {
	ws          io.WriteSeeker
	fingerprint uint64
	log         telemetry.Logger

	state writerState
	base  int64  // stream position of the container start
	pos   uint64 // bytes written since base
	toc   *Toc
	open  *ChunkWriter
}

// NewWriter wraps ws. Nothing is written until Open is called.
func NewWriter(ws io.WriteSeeker, fingerprint uint64, opts ...Option) *Writer {
	o := buildOptions(opts)
	return &Writer{
		ws:          ws,
		fingerprint: fingerprint,
		log:         o.logger,
		toc:         newToc(),
	}
}

// Open writes the container header at the current stream position.
func (w *Writer) Open() error {
	if w.state != writerUnopened {
		return misuse("can not open a writer that is %s", w.state)
	}

	base, err := w.ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "can not get container start position")
	}
	w.base = base

	var b [headerSize]byte
	Header{Signature: Signature, Fingerprint: w.fingerprint}.encode(b[:])
	if err := w.writeRaw(b[:]); err != nil {
		return errors.Wrap(err, "can not write container header")
	}

	w.state = writerOpened
	w.log.Debug(fmt.Sprintf("opened container writer at %d, fingerprint 0x%016X", base, w.fingerprint))
	return nil
}

// OpenChunk starts a new chunk. Ids must be unique within a container.
func (w *Writer) OpenChunk(id ChunkId) (*ChunkWriter, error) {
	if w.state != writerOpened {
		return nil, misuse("can not open chunk %s, writer is %s", id, w.state)
	}
	if w.open != nil {
		return nil, misuse("can not open chunk %s while chunk %s is open", id, w.open.id)
	}
	if w.toc.Contains(id) {
		return nil, misuse("chunk %s was already written", id)
	}

	start := w.pos
	var b [chunkIdLen]byte
	binary.LittleEndian.PutUint64(b[:], uint64(id))
	if err := w.writeRaw(b[:]); err != nil {
		return nil, errors.Wrapf(err, "can not write id of chunk %s", id)
	}

	cw := &ChunkWriter{w: w, id: id, start: start}
	w.open = cw
	w.log.Debug(fmt.Sprintf("opened chunk %s at %d", id, start))
	return cw, nil
}

// Close writes the table of contents and patches the header. A chunk still
// open at this point is an error.
func (w *Writer) Close() error {
	if w.state != writerOpened {
		return misuse("can not close a writer that is %s", w.state)
	}
	if w.open != nil {
		return misuse("can not close writer while chunk %s is open", w.open.id)
	}
	w.state = writerClosed

	tocOffset := w.pos
	n, err := w.toc.encode(w.ws)
	w.pos += uint64(n)
	if err != nil {
		return errors.Wrap(err, "can not write table of contents")
	}
	end := w.pos

	if _, err := w.ws.Seek(w.base+16, io.SeekStart); err != nil {
		return errors.Wrap(err, "can not seek to header")
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], tocOffset)
	if _, err := w.ws.Write(b[:]); err != nil {
		return errors.Wrap(err, "can not patch table of contents offset")
	}
	if _, err := w.ws.Seek(w.base+int64(end), io.SeekStart); err != nil {
		return errors.Wrap(err, "can not seek to container end")
	}

	w.log.Debug(fmt.Sprintf("closed container writer, %d chunks, toc at %d, %d bytes", w.toc.Len(), tocOffset, end))
	return nil
}

// Chunks returns the entries of every chunk closed so far.
func (w *Writer) Chunks() []TocEntry { return w.toc.Entries() }

// Size is the number of bytes written to the container so far.
func (w *Writer) Size() uint64 { return w.pos }

func (w *Writer) writeRaw(p []byte) error {
	n, err := w.ws.Write(p)
	w.pos += uint64(n)
	return err
}

// ChunkWriter appends little endian values to the open chunk.
type ChunkWriter struct {
	w      *Writer
	id     ChunkId
	start  uint64
	closed bool

	tmp [binary.MaxVarintLen64]byte
}

func (cw *ChunkWriter) Id() ChunkId { return cw.id }

// Len returns the number of payload bytes written so far.
func (cw *ChunkWriter) Len() uint64 {
	return cw.w.pos - cw.start - chunkIdLen
}

func (cw *ChunkWriter) Write(p []byte) (int, error) {
	if cw.closed {
		return 0, misuse("write to closed chunk %s", cw.id)
	}
	n, err := cw.w.ws.Write(p)
	cw.w.pos += uint64(n)
	if err != nil {
		return n, errors.Wrapf(err, "can not write to chunk %s", cw.id)
	}
	return n, nil
}

func (cw *ChunkWriter) write(p []byte) error {
	_, err := cw.Write(p)
	return err
}

func (cw *ChunkWriter) WriteByte(v byte) error {
	cw.tmp[0] = v
	return cw.write(cw.tmp[:1])
}

func (cw *ChunkWriter) WriteBool(v bool) error {
	if v {
		return cw.WriteByte(1)
	}
	return cw.WriteByte(0)
}

func (cw *ChunkWriter) WriteInt8(v int8) error { return cw.WriteByte(byte(v)) }

func (cw *ChunkWriter) WriteUint16(v uint16) error {
	binary.LittleEndian.PutUint16(cw.tmp[:], v)
	return cw.write(cw.tmp[:2])
}

func (cw *ChunkWriter) WriteInt16(v int16) error { return cw.WriteUint16(uint16(v)) }

func (cw *ChunkWriter) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(cw.tmp[:], v)
	return cw.write(cw.tmp[:4])
}

func (cw *ChunkWriter) WriteInt32(v int32) error { return cw.WriteUint32(uint32(v)) }

func (cw *ChunkWriter) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(cw.tmp[:], v)
	return cw.write(cw.tmp[:8])
}

func (cw *ChunkWriter) WriteInt64(v int64) error { return cw.WriteUint64(uint64(v)) }

func (cw *ChunkWriter) WriteFloat32(v float32) error { return cw.WriteUint32(math.Float32bits(v)) }

func (cw *ChunkWriter) WriteFloat64(v float64) error { return cw.WriteUint64(math.Float64bits(v)) }

// WriteBytes writes a uvarint length followed by p.
func (cw *ChunkWriter) WriteBytes(p []byte) error {
	n := binary.PutUvarint(cw.tmp[:], uint64(len(p)))
	if err := cw.write(cw.tmp[:n]); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return cw.write(p)
}

// WriteString writes s as length prefixed UTF-8.
func (cw *ChunkWriter) WriteString(s string) error { return cw.WriteBytes([]byte(s)) }

// WriteValue writes any fixed size value (or pointer / slice of them) the way
// encoding/binary lays it out.
func (cw *ChunkWriter) WriteValue(v any) error {
	if cw.closed {
		return misuse("write to closed chunk %s", cw.id)
	}
	if binary.Size(v) < 0 {
		return errors.Newf("chunks: %T is not a fixed size value", v)
	}
	return binary.Write(cw, binary.LittleEndian, v)
}

// Close records the chunk in the table of contents. Closing twice is a no-op.
func (cw *ChunkWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true

	w := cw.w
	e := TocEntry{Id: cw.id, Offset: cw.start, Size: w.pos - cw.start}
	w.toc.add(e)
	if w.open == cw {
		w.open = nil
	}
	w.log.Debug(fmt.Sprintf("closed chunk %s, %d bytes", cw.id, e.Size))
	return nil
}
