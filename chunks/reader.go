package chunks

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/chunkfile/telemetry"
)

type readerState int

const (
	readerConstructed readerState = iota
	readerOpened
	readerClosed
)

func (s readerState) String() string {
	switch s {
	case readerConstructed:
		return "not opened"
	case readerOpened:
		return "opened"
	default:
		return "closed"
	}
}

// Reader serves chunks of a container by id, in any order.
type Reader struct {
	rs           io.ReadSeeker
	fingerprints []uint64
	log          telemetry.Logger

	state  readerState
	base   int64
	header Header
	toc    *Toc
	open   *ChunkReader
}

// NewReader wraps a container starting at the current position of rs. The
// header must be fully present, but its contents are not checked until Open.
func NewReader(rs io.ReadSeeker, fingerprints []uint64, opts ...Option) (*Reader, error) {
	if len(fingerprints) == 0 {
		return nil, argumentEmpty("fingerprints")
	}

	base, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "can not get container start position")
	}

	var b [headerSize]byte
	_, err = io.ReadFull(rs, b[:])
	if _, serr := rs.Seek(base, io.SeekStart); err == nil && serr != nil {
		err = serr
	}
	if err != nil {
		return nil, readFailed(err, "container header")
	}

	o := buildOptions(opts)
	return &Reader{
		rs:           rs,
		fingerprints: append([]uint64(nil), fingerprints...),
		log:          o.logger,
		base:         base,
	}, nil
}

// IsReadable reports whether rs holds a finished container with one of the
// given fingerprints. The stream position is restored.
func IsReadable(rs io.ReadSeeker, fingerprints []uint64) bool {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return false
	}
	defer func() { _, _ = rs.Seek(pos, io.SeekStart) }()

	h, err := readHeader(rs)
	if err != nil {
		return false
	}
	return h.validate(fingerprints) == nil && h.TocOffset >= headerSize
}

// Open validates the header and loads the table of contents.
func (r *Reader) Open() error {
	if r.state != readerConstructed {
		return misuse("can not open a reader that is %s", r.state)
	}

	if _, err := r.rs.Seek(r.base, io.SeekStart); err != nil {
		return errors.Wrap(err, "can not seek to container start")
	}
	h, err := readHeader(r.rs)
	if err != nil {
		return err
	}
	if err := h.validate(r.fingerprints); err != nil {
		return err
	}
	if h.TocOffset < headerSize {
		return malformed(BadToc, "table of contents offset %d points into the header, was the writer closed?", h.TocOffset)
	}
	if h.TocOffset > uint64(math.MaxInt64-r.base) {
		return malformed(BadToc, "table of contents offset %d is out of range", h.TocOffset)
	}

	if _, err := r.rs.Seek(r.base+int64(h.TocOffset), io.SeekStart); err != nil {
		return errors.Wrap(err, "can not seek to table of contents")
	}
	toc, err := decodeToc(r.rs, h.TocOffset)
	if err != nil {
		return err
	}

	r.header = h
	r.toc = toc
	r.state = readerOpened
	r.log.Debug(fmt.Sprintf("opened container at %d, fingerprint 0x%016X, %d chunks", r.base, h.Fingerprint, toc.Len()))
	return nil
}

func (r *Reader) Fingerprint() uint64 { return r.header.Fingerprint }

// Chunks lists the table of contents in write order. Empty until Open.
func (r *Reader) Chunks() []TocEntry {
	if r.toc == nil {
		return nil
	}
	return r.toc.Entries()
}

func (r *Reader) HasChunk(id ChunkId) bool {
	return r.toc != nil && r.toc.Contains(id)
}

// OpenChunk positions the stream on the chunk payload. The returned reader
// must be closed before another chunk can be opened.
func (r *Reader) OpenChunk(id ChunkId) (*ChunkReader, error) {
	if r.state != readerOpened {
		return nil, misuse("can not open chunk %s, reader is %s", id, r.state)
	}
	if r.open != nil {
		return nil, misuse("can not open chunk %s while chunk %s is open", id, r.open.entry.Id)
	}
	e, ok := r.toc.Lookup(id)
	if !ok {
		return nil, chunkNotFound(id)
	}

	if _, err := r.rs.Seek(r.base+int64(e.Offset), io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "can not seek to chunk %s", id)
	}
	var b [chunkIdLen]byte
	if _, err := io.ReadFull(r.rs, b[:]); err != nil {
		return nil, readFailed(err, "chunk id")
	}
	if stored := ChunkId(binary.LittleEndian.Uint64(b[:])); stored != id {
		return nil, malformed(BadChunkId, "chunk %s at offset %d is tagged %s", id, e.Offset, stored)
	}

	cr := &ChunkReader{r: r, entry: e}
	r.open = cr
	r.log.Debug(fmt.Sprintf("opened chunk %s at %d, %d bytes", id, e.Offset, e.Size))
	return cr, nil
}

// Payload reads a whole chunk in one go.
func (r *Reader) Payload(id ChunkId) ([]byte, error) {
	cr, err := r.OpenChunk(id)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	b := make([]byte, cr.Size())
	if err := cr.fill(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Close releases the reader. An open chunk is closed with it. The stream is
// left to the caller.
func (r *Reader) Close() error {
	if r.open != nil {
		r.open.closed = true
		r.open = nil
	}
	r.state = readerClosed
	return nil
}

// ChunkReader reads values back in the order they were written. Reads never
// go past the end of the chunk.
type ChunkReader struct {
	r      *Reader
	entry  TocEntry
	read   uint64 // payload bytes consumed
	closed bool

	tmp [8]byte
}

func (cr *ChunkReader) Id() ChunkId { return cr.entry.Id }

// Size is the payload size of the chunk.
func (cr *ChunkReader) Size() uint64 { return cr.entry.PayloadSize() }

// Remaining is the number of payload bytes not yet read.
func (cr *ChunkReader) Remaining() uint64 { return cr.entry.PayloadSize() - cr.read }

func (cr *ChunkReader) check() error {
	if cr.closed {
		return misuse("read from closed chunk %s", cr.entry.Id)
	}
	return nil
}

// Read implements io.Reader and returns io.EOF at the end of the chunk.
func (cr *ChunkReader) Read(p []byte) (int, error) {
	if err := cr.check(); err != nil {
		return 0, err
	}
	left := cr.Remaining()
	if left == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	if uint64(len(p)) > left {
		p = p[:left]
	}
	n, err := cr.r.rs.Read(p)
	cr.read += uint64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	if err != nil {
		return n, readFailed(err, fmt.Sprintf("chunk %s", cr.entry.Id))
	}
	return n, nil
}

func (cr *ChunkReader) fill(b []byte) error {
	if err := cr.check(); err != nil {
		return err
	}
	if left := cr.Remaining(); uint64(len(b)) > left {
		return pastChunkEnd(cr.entry.Id, uint64(len(b)), left)
	}
	n, err := io.ReadFull(cr.r.rs, b)
	cr.read += uint64(n)
	if err != nil {
		return readFailed(err, fmt.Sprintf("chunk %s", cr.entry.Id))
	}
	return nil
}

func (cr *ChunkReader) ReadByte() (byte, error) {
	if err := cr.fill(cr.tmp[:1]); err != nil {
		return 0, err
	}
	return cr.tmp[0], nil
}

func (cr *ChunkReader) ReadBool() (bool, error) {
	b, err := cr.ReadByte()
	return b != 0, err
}

func (cr *ChunkReader) ReadInt8() (int8, error) {
	b, err := cr.ReadByte()
	return int8(b), err
}

func (cr *ChunkReader) ReadUint16() (uint16, error) {
	if err := cr.fill(cr.tmp[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(cr.tmp[:]), nil
}

func (cr *ChunkReader) ReadInt16() (int16, error) {
	v, err := cr.ReadUint16()
	return int16(v), err
}

func (cr *ChunkReader) ReadUint32() (uint32, error) {
	if err := cr.fill(cr.tmp[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(cr.tmp[:]), nil
}

func (cr *ChunkReader) ReadInt32() (int32, error) {
	v, err := cr.ReadUint32()
	return int32(v), err
}

func (cr *ChunkReader) ReadUint64() (uint64, error) {
	if err := cr.fill(cr.tmp[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(cr.tmp[:]), nil
}

func (cr *ChunkReader) ReadInt64() (int64, error) {
	v, err := cr.ReadUint64()
	return int64(v), err
}

func (cr *ChunkReader) ReadFloat32() (float32, error) {
	v, err := cr.ReadUint32()
	return math.Float32frombits(v), err
}

func (cr *ChunkReader) ReadFloat64() (float64, error) {
	v, err := cr.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBytes reads a uvarint length prefixed byte slice.
func (cr *ChunkReader) ReadBytes() ([]byte, error) {
	n, err := binary.ReadUvarint(cr)
	if err != nil {
		if KindOf(err) == KindUnknown {
			return nil, malformed(BadLength, "chunk %s: %v", cr.entry.Id, err)
		}
		return nil, err
	}
	if left := cr.Remaining(); n > left {
		return nil, pastChunkEnd(cr.entry.Id, n, left)
	}
	b := make([]byte, n)
	if err := cr.fill(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (cr *ChunkReader) ReadString() (string, error) {
	b, err := cr.ReadBytes()
	return string(b), err
}

// ReadValue decodes into v, a pointer to a fixed size value, with encoding/binary.
func (cr *ChunkReader) ReadValue(v any) error {
	if err := cr.check(); err != nil {
		return err
	}
	size := binary.Size(v)
	if size < 0 {
		return errors.Newf("chunks: %T is not a fixed size value", v)
	}
	if left := cr.Remaining(); uint64(size) > left {
		return pastChunkEnd(cr.entry.Id, uint64(size), left)
	}
	b := make([]byte, size)
	if err := cr.fill(b); err != nil {
		return err
	}
	_, err := binary.Decode(b, binary.LittleEndian, v)
	return err
}

// ReadAs is ReadValue for callers that want the value back.
func ReadAs[T any](cr *ChunkReader) (T, error) {
	var v T
	err := cr.ReadValue(&v)
	return v, err
}

// Skip discards n payload bytes.
func (cr *ChunkReader) Skip(n uint64) error {
	if err := cr.check(); err != nil {
		return err
	}
	if left := cr.Remaining(); n > left {
		return pastChunkEnd(cr.entry.Id, n, left)
	}
	if _, err := cr.r.rs.Seek(int64(n), io.SeekCurrent); err != nil {
		return errors.Wrapf(err, "can not skip in chunk %s", cr.entry.Id)
	}
	cr.read += n
	return nil
}

// Close ends the chunk so another one can be opened. Closing twice is a no-op.
func (cr *ChunkReader) Close() error {
	if cr.closed {
		return nil
	}
	cr.closed = true
	if cr.r.open == cr {
		cr.r.open = nil
	}
	cr.r.log.Debug(fmt.Sprintf("closed chunk %s", cr.entry.Id))
	return nil
}
