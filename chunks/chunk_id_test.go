package chunks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkIdPacking(t *testing.T) {
	tests := []struct {
		name string
		want ChunkId
	}{
		{"Short", 0x0000000074726F6853},
		{"ExactLen", 0x6E654C7463617845},
		{"TooLongInput", 0x49676E6F4C6F6F54},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewChunkId(tt.name)
			require.NoError(t, err)
			require.Equal(t, tt.want, id)
		})
	}
}

func TestChunkIdEmptyName(t *testing.T) {
	_, err := NewChunkId("")
	require.ErrorIs(t, err, ErrArgumentEmpty)
	require.Equal(t, KindArgumentEmpty, KindOf(err))

	require.Panics(t, func() { MustChunkId("") })
}

func TestChunkIdString(t *testing.T) {
	require.Equal(t, "Short", MustChunkId("Short").String())
	require.Equal(t, "TooLongI", MustChunkId("TooLongInput").String())
	require.Equal(t, "0x0000000000000666", ChunkIdFromLiteral(0x666).String())

	// a zero byte followed by more data is not a name
	_, ok := ChunkId(0x4100).Name()
	require.False(t, ok)
	_, ok = ChunkId(0).Name()
	require.False(t, ok)
}
