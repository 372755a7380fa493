package chunks

import (
	"encoding/binary"
	stderrors "errors"
	"io"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/chunkfile/misc"
	"github.com/stretchr/testify/require"
)

func TestKindsVisibleToBothErrorPackages(t *testing.T) {
	_, err := NewWriter(&misc.Buffer{}, testFingerprint).OpenChunk(1)
	require.True(t, stderrors.Is(err, ErrIoMisuse))
	require.True(t, errors.Is(err, ErrIoMisuse))
	require.False(t, stderrors.Is(err, ErrChunkNotFound))
	require.Equal(t, KindIoMisuse, KindOf(err))

	wrapped := errors.Wrap(err, "outer")
	require.True(t, stderrors.Is(wrapped, ErrIoMisuse))
	require.Equal(t, KindIoMisuse, KindOf(wrapped))

	m := malformed(BadToc, "broken")
	require.True(t, stderrors.Is(m, ErrMalformedContainer))
	require.True(t, errors.Is(errors.Wrap(m, "outer"), ErrMalformedContainer))
	code, ok := ResultCodeOf(errors.Wrap(m, "outer"))
	require.True(t, ok)
	require.Equal(t, BadToc, code)

	// the stream error stays reachable under the kind
	eos := readFailed(io.ErrUnexpectedEOF, "header")
	require.True(t, stderrors.Is(eos, ErrEndOfStream))
	require.True(t, stderrors.Is(eos, io.ErrUnexpectedEOF))
	require.Contains(t, eos.Error(), "header")
}

func TestTocOffsetOutOfRange(t *testing.T) {
	buf := writeContainer(t, func(w *Writer) {
		writeStringChunk(t, w, 1, "one")
	})
	binary.LittleEndian.PutUint64(buf.Bytes()[16:], math.MaxUint64-8)

	_, err := buf.Seek(0, io.SeekStart)
	require.NoError(t, err)
	r, err := NewReader(buf, []uint64{testFingerprint})
	require.NoError(t, err)

	err = r.Open()
	require.ErrorIs(t, err, ErrMalformedContainer)
	code, _ := ResultCodeOf(err)
	require.Equal(t, BadToc, code)
}

func TestLengthPrefixOverflow(t *testing.T) {
	buf := writeContainer(t, func(w *Writer) {
		cw, err := w.OpenChunk(1)
		require.NoError(t, err)
		// eleven continuation bytes never terminate a uvarint
		_, err = cw.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})
		require.NoError(t, err)
		require.NoError(t, cw.Close())
	})
	r := openContainer(t, buf)

	cr, err := r.OpenChunk(1)
	require.NoError(t, err)
	_, err = cr.ReadBytes()
	require.ErrorIs(t, err, ErrMalformedContainer)
	code, _ := ResultCodeOf(err)
	require.Equal(t, BadLength, code)
}
