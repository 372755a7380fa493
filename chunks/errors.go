package chunks

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// Kind classifies the failures returned by this package.
type Kind int

const (
	KindUnknown Kind = iota
	KindArgumentEmpty
	KindEndOfStream
	KindMalformedContainer
	KindIoMisuse
	KindChunkNotFound
)

func (k Kind) String() string {
	switch k {
	case KindArgumentEmpty:
		return "ArgumentEmpty"
	case KindEndOfStream:
		return "EndOfStream"
	case KindMalformedContainer:
		return "MalformedContainer"
	case KindIoMisuse:
		return "IoMisuse"
	case KindChunkNotFound:
		return "ChunkNotFound"
	default:
		return "Unknown"
	}
}

// Every error produced here is marked with one of these, test with errors.Is.
var (
	ErrArgumentEmpty      = errors.New("chunks: argument empty")
	ErrEndOfStream        = errors.New("chunks: end of stream")
	ErrMalformedContainer = errors.New("chunks: malformed container")
	ErrIoMisuse           = errors.New("chunks: io misuse")
	ErrChunkNotFound      = errors.New("chunks: chunk not found")
)

// KindOf returns the Kind an error was marked with.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrArgumentEmpty):
		return KindArgumentEmpty
	case errors.Is(err, ErrMalformedContainer):
		return KindMalformedContainer
	case errors.Is(err, ErrIoMisuse):
		return KindIoMisuse
	case errors.Is(err, ErrChunkNotFound):
		return KindChunkNotFound
	case errors.Is(err, ErrEndOfStream):
		return KindEndOfStream
	}
	return KindUnknown
}

// ResultCode says why a container was rejected as malformed.
type ResultCode int

const (
	BadSignature ResultCode = iota + 1
	FingerprintMismatch
	BadToc
	BadChunkId
	BadLength
)

func (c ResultCode) String() string {
	switch c {
	case BadSignature:
		return "bad signature"
	case FingerprintMismatch:
		return "fingerprint mismatch"
	case BadToc:
		return "bad table of contents"
	case BadChunkId:
		return "bad chunk id"
	case BadLength:
		return "bad length prefix"
	default:
		return fmt.Sprintf("result code %d", int(c))
	}
}

// MalformedError is the cause of every ErrMalformedContainer.
type MalformedError struct {
	Code   ResultCode
	Detail string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("chunks: malformed container (%s): %s", e.Code, e.Detail)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedContainer }

// ResultCodeOf extracts the ResultCode from a malformed container error.
func ResultCodeOf(err error) (ResultCode, bool) {
	var me *MalformedError
	if errors.As(err, &me) {
		return me.Code, true
	}
	return 0, false
}

// kindError tags a cause with one of the sentinels above while keeping the
// cause's message and chain.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string        { return e.cause.Error() }
func (e *kindError) Unwrap() error        { return e.cause }
func (e *kindError) Is(target error) bool { return target == e.kind }

func withKind(err error, kind error) error {
	return &kindError{kind: kind, cause: err}
}

func argumentEmpty(arg string) error {
	return withKind(errors.Newf("chunks: %s must not be empty", arg), ErrArgumentEmpty)
}

func misuse(format string, args ...interface{}) error {
	return withKind(errors.Newf("chunks: "+format, args...), ErrIoMisuse)
}

func malformed(code ResultCode, format string, args ...interface{}) error {
	return errors.WithStack(&MalformedError{Code: code, Detail: fmt.Sprintf(format, args...)})
}

func chunkNotFound(id ChunkId) error {
	return withKind(errors.Newf("chunks: chunk %s (0x%X) not found", id, uint64(id)), ErrChunkNotFound)
}

func pastChunkEnd(id ChunkId, want, left uint64) error {
	return withKind(
		errors.Newf("chunks: read of %d bytes past end of chunk %s, %d bytes left", want, id, left),
		ErrEndOfStream)
}

// readFailed wraps an error from the underlying stream. Running out of bytes
// becomes ErrEndOfStream, anything else propagates as is.
func readFailed(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return withKind(errors.Wrapf(err, "chunks: unexpected end of stream reading %s", what), ErrEndOfStream)
	}
	return errors.Wrapf(err, "can not read %s", what)
}
