package storage

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hoyle1974/chunkfile/misc"
)

type memoryStorage struct {
	_    misc.NoCopy
	lock sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *memoryStorage {
	return &memoryStorage{data: make(map[string][]byte)}
}

func (m *memoryStorage) GetKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	ret := []string{}

	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			ret = append(ret, k)
		}
	}
	sort.Strings(ret)

	return ret, nil
}

func (m *memoryStorage) Write(ctx context.Context, key string, data []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.data[key] = misc.CopyBytes(data)

	return nil
}

// Buffers everything and swaps it in on Close
type memoryStreamWriter struct {
	storage *memoryStorage
	key     string
	buf     bytes.Buffer
}

func (m *memoryStreamWriter) Write(data []byte) (int, error) {
	return m.buf.Write(data)
}

func (m *memoryStreamWriter) Close() error {
	m.storage.lock.Lock()
	defer m.storage.lock.Unlock()

	m.storage.data[m.key] = m.buf.Bytes()

	return nil
}

func (m *memoryStorage) BeginStream(ctx context.Context, key string) (StreamWriter, error) {
	return &memoryStreamWriter{
		storage: m,
		key:     key,
	}, nil
}

func (m *memoryStorage) Read(ctx context.Context, key string) ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	data, ok := m.data[key]
	if !ok {
		return nil, ErrDoesNotExist
	}

	return data, nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.data, key)

	return nil
}
