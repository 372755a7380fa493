package chunks

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestTocRoundTrip(t *testing.T) {
	toc := newToc()
	toc.add(TocEntry{Id: MustChunkId("VRSNDATA"), Offset: 24, Size: 10})
	toc.add(TocEntry{Id: MustChunkId("ANIMDATA"), Offset: 34, Size: 30})
	toc.add(TocEntry{Id: ChunkIdFromLiteral(1111), Offset: 64, Size: 8})

	var buf bytes.Buffer
	n, err := toc.encode(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(tocCountSize+3*tocEntrySize), n)

	got, err := decodeToc(bytes.NewReader(buf.Bytes()), 72)
	require.NoError(t, err)
	if diff := cmp.Diff(toc.Entries(), got.Entries()); diff != "" {
		t.Fatalf("toc mismatch (-want +got):\n%s", diff)
	}

	e, ok := got.Lookup(ChunkIdFromLiteral(1111))
	require.True(t, ok)
	require.Equal(t, uint64(72), e.End())
	require.Equal(t, uint64(0), e.PayloadSize())
	require.False(t, got.Contains(MustChunkId("NOPE")))
}

func TestTocRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []TocEntry
	}{
		{"duplicate", []TocEntry{{Id: 1, Offset: 24, Size: 8}, {Id: 1, Offset: 32, Size: 8}}},
		{"inside header", []TocEntry{{Id: 1, Offset: 8, Size: 16}}},
		{"past toc", []TocEntry{{Id: 1, Offset: 24, Size: 100}}},
		{"smaller than id", []TocEntry{{Id: 1, Offset: 24, Size: 4}}},
		{"overflow", []TocEntry{{Id: 1, Offset: 24, Size: ^uint64(0)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toc := &Toc{entries: tt.entries, byId: map[ChunkId]int{}}
			var buf bytes.Buffer
			_, err := toc.encode(&buf)
			require.NoError(t, err)

			_, err = decodeToc(&buf, 64)
			require.ErrorIs(t, err, ErrMalformedContainer)
			code, ok := ResultCodeOf(err)
			require.True(t, ok)
			require.Equal(t, BadToc, code)
		})
	}
}

func TestTocTruncated(t *testing.T) {
	_, err := decodeToc(bytes.NewReader([]byte{2, 0, 0, 0, 1, 2, 3}), 64)
	require.ErrorIs(t, err, ErrEndOfStream)
	require.Equal(t, KindEndOfStream, KindOf(err))
}
