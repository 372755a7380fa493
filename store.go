package chunkfile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hoyle1974/chunkfile/chunks"
	"github.com/hoyle1974/chunkfile/misc"
	"github.com/hoyle1974/chunkfile/storage"
	"github.com/hoyle1974/chunkfile/telemetry"
	"github.com/patrickmn/go-cache"
)

// Every container lives under this prefix in the storage system, the
// names handed out by the Store have it stripped.
const containerPrefix = "containers/"

const defaultCacheTTL = 5 * time.Minute

// ErrNotReadable is returned by Import for streams that do not hold a finished
// container with an accepted fingerprint.
var ErrNotReadable = errors.New("chunkfile: not a readable container")

type StoreConfig struct {
	// How long loaded containers stay in memory. Zero means 5 minutes, a
	// negative value turns the cache off.
	CacheTTL time.Duration
	Logger   telemetry.Logger
	Metrics  telemetry.Metrics
}

// Store keeps containers in a storage.System, keyed by name.
type Store struct {
	storage storage.System
	cache   *cache.Cache
	stats   CacheStats
	log     telemetry.Logger
	metrics telemetry.Metrics
}

func NewStore(sys storage.System, cfg StoreConfig) *Store {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NOPLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NOPMetrics{}
	}

	s := &Store{
		storage: sys,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
	}
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return s
}

func storageKey(name string) string {
	return containerPrefix + name
}

// Save builds a container with fill and stores it under name. An empty name
// gets a generated one. The name is returned either way.
func (s *Store) Save(ctx context.Context, name string, fingerprint uint64, fill func(w *chunks.Writer) error) (string, error) {
	if name == "" {
		name = uuid.NewString()
	}

	buf := &misc.Buffer{}
	w := chunks.NewWriter(buf, fingerprint, chunks.WithLogger(s.log))
	if err := w.Open(); err != nil {
		return "", err
	}
	if err := fill(w); err != nil {
		return "", errors.Wrapf(err, "can not fill container %s", name)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "can not finish container %s", name)
	}

	data := buf.Bytes()
	if err := s.storage.Write(ctx, storageKey(name), data); err != nil {
		return "", errors.Wrapf(err, "can not store container %s", name)
	}
	s.remember(name, data)

	s.metrics.SetCount("chunkfile.save.chunks", int64(len(w.Chunks())))
	s.metrics.SetCount("chunkfile.save.bytes", int64(len(data)))
	s.log.Info(fmt.Sprintf("saved container %s, %d chunks, %d bytes", name, len(w.Chunks()), len(data)))
	return name, nil
}

// Load returns an opened reader over the named container. Each call gets its
// own reader, they can be used from different goroutines.
func (s *Store) Load(ctx context.Context, name string, fingerprints []uint64) (*chunks.Reader, error) {
	data, err := s.blob(ctx, name)
	if err != nil {
		return nil, err
	}

	r, err := chunks.NewReader(bytes.NewReader(data), fingerprints, chunks.WithLogger(s.log))
	if err != nil {
		return nil, errors.Wrapf(err, "can not read container %s", name)
	}
	if err := r.Open(); err != nil {
		// Don't hang on to something we can't read
		s.forget(name)
		return nil, errors.Wrapf(err, "can not open container %s", name)
	}
	return r, nil
}

// Import copies an existing container from src, starting at its current
// position, into the store. src is opened and its table of contents checked
// before anything is written.
func (s *Store) Import(ctx context.Context, name string, src io.ReadSeeker, fingerprints []uint64) error {
	if name == "" {
		return errors.Wrap(chunks.ErrArgumentEmpty, "chunkfile: container name")
	}
	if err := checkReadable(src, fingerprints); err != nil {
		return errors.Wrapf(err, "can not import %s", name)
	}

	stream, err := s.storage.BeginStream(ctx, storageKey(name))
	if err != nil {
		return errors.Wrapf(err, "can not import %s", name)
	}
	n, err := io.Copy(stream, src)
	if err != nil {
		_ = stream.Close()
		return errors.Wrapf(err, "can not import %s", name)
	}
	if err := stream.Close(); err != nil {
		return errors.Wrapf(err, "can not import %s", name)
	}
	s.forget(name)

	s.metrics.SetCount("chunkfile.import.bytes", n)
	s.log.Info(fmt.Sprintf("imported container %s, %d bytes", name, n))
	return nil
}

// checkReadable fully opens the container at the current position of src and
// rewinds to it afterwards.
func checkReadable(src io.ReadSeeker, fingerprints []uint64) error {
	if !chunks.IsReadable(src, fingerprints) {
		return ErrNotReadable
	}

	pos, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "can not get source position")
	}
	r, err := chunks.NewReader(src, fingerprints)
	if err != nil {
		return err
	}
	openErr := r.Open()
	_ = r.Close()
	if _, err := src.Seek(pos, io.SeekStart); err != nil {
		return errors.Wrap(err, "can not rewind source")
	}
	return openErr
}

// List returns the names of every stored container, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.storage.GetKeysWithPrefix(ctx, containerPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "can not list containers")
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, containerPrefix))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s.forget(name)
	if err := s.storage.Delete(ctx, storageKey(name)); err != nil {
		return errors.Wrapf(err, "can not delete container %s", name)
	}
	s.log.Info(fmt.Sprintf("deleted container %s", name))
	return nil
}

func (s *Store) Stats() *CacheStats {
	return &s.stats
}

func (s *Store) blob(ctx context.Context, name string) ([]byte, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(name); ok {
			s.stats.Hit()
			s.metrics.SetCount("chunkfile.cache.hits", s.stats.Hits.Load())
			return v.([]byte), nil
		}
		s.stats.Miss()
		s.metrics.SetCount("chunkfile.cache.misses", s.stats.Misses.Load())
	}

	data, err := s.storage.Read(ctx, storageKey(name))
	if err != nil {
		return nil, errors.Wrapf(err, "can not read container %s", name)
	}
	s.remember(name, data)
	return data, nil
}

func (s *Store) remember(name string, data []byte) {
	if s.cache != nil {
		s.cache.Set(name, data, cache.DefaultExpiration)
	}
}

func (s *Store) forget(name string) {
	if s.cache != nil {
		s.cache.Delete(name)
	}
}
