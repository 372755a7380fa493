package chunks

import "fmt"

// A ChunkId is a 64 bit tag naming a chunk inside a container.
// Ids built from a name hold up to the first 8 bytes of the name, least
// significant byte first, so "HEADER" can still be read back out of a hex dump.
type ChunkId uint64

const chunkIdLen = 8

// NewChunkId packs name into a ChunkId. Bytes past the 8th are ignored.
func NewChunkId(name string) (ChunkId, error) {
	if name == "" {
		return 0, argumentEmpty("name")
	}

	var id uint64
	b := []byte(name)
	for i := 0; i < len(b) && i < chunkIdLen; i++ {
		id |= uint64(b[i]) << (8 * i)
	}
	return ChunkId(id), nil
}

// MustChunkId is NewChunkId for package level declarations.
func MustChunkId(name string) ChunkId {
	id, err := NewChunkId(name)
	if err != nil {
		panic(err)
	}
	return id
}

func ChunkIdFromLiteral(v uint64) ChunkId { return ChunkId(v) }

// Name returns the packed bytes as a string, if they look like a name.
func (c ChunkId) Name() (string, bool) {
	var b []byte
	for i := 0; i < chunkIdLen; i++ {
		ch := byte(c >> (8 * i))
		if ch == 0 {
			// only trailing zero padding is allowed
			if c>>(8*i) != 0 {
				return "", false
			}
			break
		}
		if ch < 0x20 || ch > 0x7e {
			return "", false
		}
		b = append(b, ch)
	}
	if len(b) == 0 {
		return "", false
	}
	return string(b), true
}

func (c ChunkId) String() string {
	if name, ok := c.Name(); ok {
		return name
	}
	return fmt.Sprintf("0x%016X", uint64(c))
}
