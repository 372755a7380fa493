package chunks

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Signature is the first 8 bytes of every container, packed like a ChunkId.
var Signature = MustChunkId("CHNKFILE")

const (
	headerSize   = 24
	tocEntrySize = 24
	tocCountSize = 4
)

// This is what is actually stored at the start of a container.
//
//	+-------------------+---------------------+--------------------+
//	| signature (8 LE)  | fingerprint (8 LE)  | toc offset (8 LE)  |
//	+-------------------+---------------------+--------------------+
//
// The toc offset is relative to the start of the container and is zero until
// the writer is closed.
type Header struct {
	Signature   ChunkId
	Fingerprint uint64
	TocOffset   uint64
}

func (h Header) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:], uint64(h.Signature))
	binary.LittleEndian.PutUint64(b[8:], h.Fingerprint)
	binary.LittleEndian.PutUint64(b[16:], h.TocOffset)
}

func decodeHeader(b []byte) Header {
	return Header{
		Signature:   ChunkId(binary.LittleEndian.Uint64(b[0:])),
		Fingerprint: binary.LittleEndian.Uint64(b[8:]),
		TocOffset:   binary.LittleEndian.Uint64(b[16:]),
	}
}

func readHeader(r io.Reader) (Header, error) {
	var b [headerSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Header{}, readFailed(err, "container header")
	}
	return decodeHeader(b[:]), nil
}

func (h Header) validate(fingerprints []uint64) error {
	if h.Signature != Signature {
		return malformed(BadSignature, "signature 0x%016X, expected 0x%016X", uint64(h.Signature), uint64(Signature))
	}
	for _, f := range fingerprints {
		if f == h.Fingerprint {
			return nil
		}
	}
	return malformed(FingerprintMismatch, "fingerprint 0x%016X not in accepted set %s",
		h.Fingerprint, formatFingerprints(fingerprints))
}

func formatFingerprints(fps []uint64) string {
	parts := make([]string, len(fps))
	for i, f := range fps {
		parts[i] = fmt.Sprintf("0x%016X", f)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
