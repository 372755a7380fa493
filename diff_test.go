package chunkfile

import (
	"context"
	"testing"

	"github.com/hoyle1974/chunkfile/chunks"
	"github.com/hoyle1974/chunkfile/storage"
	"github.com/stretchr/testify/require"
)

func rawChunks(payloads map[chunks.ChunkId]string, order ...chunks.ChunkId) func(w *chunks.Writer) error {
	return func(w *chunks.Writer) error {
		for _, id := range order {
			cw, err := w.OpenChunk(id)
			if err != nil {
				return err
			}
			if _, err := cw.Write([]byte(payloads[id])); err != nil {
				return err
			}
			if err := cw.Close(); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestDiff(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryStorage(), StoreConfig{})

	keep := chunks.MustChunkId("KEEP")
	edit := chunks.MustChunkId("EDIT")
	gone := chunks.MustChunkId("GONE")
	added := chunks.MustChunkId("NEW")

	oldEdit := "the quick brown fox jumps over the lazy dog"
	newEdit := "the quick brown cat jumps over the lazy dog"

	_, err := s.Save(ctx, "a", testFingerprint, rawChunks(map[chunks.ChunkId]string{
		keep: "unchanged", edit: oldEdit, gone: "bye",
	}, keep, edit, gone))
	require.NoError(t, err)
	_, err = s.Save(ctx, "b", testFingerprint, rawChunks(map[chunks.ChunkId]string{
		keep: "unchanged", edit: newEdit, added: "hello",
	}, added, edit, keep))
	require.NoError(t, err)

	diffs, err := s.Diff(ctx, "a", "b", []uint64{testFingerprint})
	require.NoError(t, err)
	require.Len(t, diffs, 4)

	require.Equal(t, keep, diffs[0].Id)
	require.Equal(t, Same, diffs[0].Change)
	require.Nil(t, diffs[0].Patch)

	require.Equal(t, edit, diffs[1].Id)
	require.Equal(t, Changed, diffs[1].Change)
	require.Equal(t, uint64(len(oldEdit)), diffs[1].OldSize)
	require.Equal(t, uint64(len(newEdit)), diffs[1].NewSize)
	require.NotEmpty(t, diffs[1].Patch)

	patched, err := ApplyPatch([]byte(oldEdit), diffs[1])
	require.NoError(t, err)
	require.Equal(t, newEdit, string(patched))

	require.Equal(t, ChunkDiff{Id: gone, Change: Removed, OldSize: 3}, diffs[2])
	require.Equal(t, ChunkDiff{Id: added, Change: Added, NewSize: 5}, diffs[3])

	_, err = ApplyPatch(nil, diffs[0])
	require.Error(t, err)
}

func TestDiffMissing(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryStorage(), StoreConfig{})
	_, err := s.Save(ctx, "a", testFingerprint, rawChunks(nil))
	require.NoError(t, err)

	_, err = s.Diff(ctx, "a", "b", []uint64{testFingerprint})
	require.ErrorIs(t, err, storage.ErrDoesNotExist)
}
