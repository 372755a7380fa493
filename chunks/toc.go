package chunks

import (
	"encoding/binary"
	"io"
)

// One entry in the table of contents. Offset points at the chunk's id and
// Size covers the id plus the payload.
type TocEntry struct {
	Id     ChunkId
	Offset uint64
	Size   uint64
}

func (e TocEntry) End() uint64 { return e.Offset + e.Size }

// PayloadSize is the number of bytes following the chunk id.
func (e TocEntry) PayloadSize() uint64 {
	if e.Size < chunkIdLen {
		return 0
	}
	return e.Size - chunkIdLen
}

// The table of contents keeps entries in write order and indexes them by id.
type Toc struct {
	entries []TocEntry
	byId    map[ChunkId]int
}

func newToc() *Toc {
	return &Toc{byId: map[ChunkId]int{}}
}

func (t *Toc) add(e TocEntry) {
	t.byId[e.Id] = len(t.entries)
	t.entries = append(t.entries, e)
}

func (t *Toc) Lookup(id ChunkId) (TocEntry, bool) {
	idx, ok := t.byId[id]
	if !ok {
		return TocEntry{}, false
	}
	return t.entries[idx], true
}

func (t *Toc) Contains(id ChunkId) bool {
	_, ok := t.byId[id]
	return ok
}

func (t *Toc) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in write order.
func (t *Toc) Entries() []TocEntry {
	out := make([]TocEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Toc) encode(w io.Writer) (int64, error) {
	var tmp [tocEntrySize]byte

	binary.LittleEndian.PutUint32(tmp[:], uint32(len(t.entries)))
	n, err := w.Write(tmp[:tocCountSize])
	written := int64(n)
	if err != nil {
		return written, err
	}

	for _, e := range t.entries {
		binary.LittleEndian.PutUint64(tmp[0:], uint64(e.Id))
		binary.LittleEndian.PutUint64(tmp[8:], e.Offset)
		binary.LittleEndian.PutUint64(tmp[16:], e.Size)
		n, err = w.Write(tmp[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// decodeToc reads a table of contents stored at tocOffset. Every entry must
// sit between the header and the table itself.
func decodeToc(r io.Reader, tocOffset uint64) (*Toc, error) {
	var tmp [tocEntrySize]byte

	if _, err := io.ReadFull(r, tmp[:tocCountSize]); err != nil {
		return nil, readFailed(err, "table of contents")
	}
	count := binary.LittleEndian.Uint32(tmp[:])

	t := newToc()
	t.entries = make([]TocEntry, 0, min(int(count), 1024))
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, tmp[:]); err != nil {
			return nil, readFailed(err, "table of contents entry")
		}
		e := TocEntry{
			Id:     ChunkId(binary.LittleEndian.Uint64(tmp[0:])),
			Offset: binary.LittleEndian.Uint64(tmp[8:]),
			Size:   binary.LittleEndian.Uint64(tmp[16:]),
		}

		if t.Contains(e.Id) {
			return nil, malformed(BadToc, "duplicate entry for chunk %s", e.Id)
		}
		if e.Size < chunkIdLen {
			return nil, malformed(BadToc, "chunk %s has size %d, smaller than its id", e.Id, e.Size)
		}
		end := e.End()
		if e.Offset < headerSize || end < e.Offset || end > tocOffset {
			return nil, malformed(BadToc, "chunk %s spans [%d, %d), outside [%d, %d)",
				e.Id, e.Offset, end, headerSize, tocOffset)
		}
		t.add(e)
	}
	return t, nil
}
