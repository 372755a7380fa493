package chunkfile

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gabstv/go-bsdiff/pkg/bsdiff"
	"github.com/gabstv/go-bsdiff/pkg/bspatch"
	"github.com/hoyle1974/chunkfile/chunks"
)

type Change int

const (
	Same Change = iota
	Added
	Removed
	Changed
)

func (c Change) String() string {
	switch c {
	case Same:
		return "same"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	}
	return "unknown"
}

// ChunkDiff describes what happened to one chunk between two containers.
type ChunkDiff struct {
	Id      chunks.ChunkId
	Change  Change
	OldSize uint64 // payload bytes in the first container
	NewSize uint64 // payload bytes in the second container

	// Patch turns the old payload into the new one, only set for Changed.
	Patch []byte
}

// Diff compares two stored containers chunk by chunk.
func (s *Store) Diff(ctx context.Context, a, b string, fingerprints []uint64) ([]ChunkDiff, error) {
	ra, err := s.Load(ctx, a, fingerprints)
	if err != nil {
		return nil, err
	}
	defer ra.Close()

	rb, err := s.Load(ctx, b, fingerprints)
	if err != nil {
		return nil, err
	}
	defer rb.Close()

	return DiffContainers(ra, rb)
}

// DiffContainers compares two opened readers. Chunks of a come first in the
// order they were written, followed by the chunks only b has.
func DiffContainers(a, b *chunks.Reader) ([]ChunkDiff, error) {
	var ret []ChunkDiff

	for _, e := range a.Chunks() {
		if !b.HasChunk(e.Id) {
			ret = append(ret, ChunkDiff{Id: e.Id, Change: Removed, OldSize: e.PayloadSize()})
			continue
		}

		oldData, err := a.Payload(e.Id)
		if err != nil {
			return nil, err
		}
		newData, err := b.Payload(e.Id)
		if err != nil {
			return nil, err
		}

		d := ChunkDiff{Id: e.Id, OldSize: uint64(len(oldData)), NewSize: uint64(len(newData))}
		if bytes.Equal(oldData, newData) {
			d.Change = Same
		} else {
			d.Change = Changed
			if d.Patch, err = generatePatch(oldData, newData); err != nil {
				return nil, errors.Wrapf(err, "can not diff chunk %s", e.Id)
			}
		}
		ret = append(ret, d)
	}

	for _, e := range b.Chunks() {
		if !a.HasChunk(e.Id) {
			ret = append(ret, ChunkDiff{Id: e.Id, Change: Added, NewSize: e.PayloadSize()})
		}
	}
	return ret, nil
}

func generatePatch(a, b []byte) ([]byte, error) {
	patch, err := bsdiff.Bytes(a, b)
	if err != nil {
		return nil, errors.Wrap(err, "can not generate diff")
	}
	return patch, nil
}

// ApplyPatch rebuilds the new payload of a Changed chunk from the old one.
func ApplyPatch(old []byte, d ChunkDiff) ([]byte, error) {
	if d.Change != Changed {
		return nil, errors.Newf("chunkfile: chunk %s is %s, there is no patch to apply", d.Id, d.Change)
	}
	newData, err := bspatch.Bytes(old, d.Patch)
	if err != nil {
		return nil, errors.Wrap(err, "can not apply diff")
	}
	return newData, nil
}
