package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vvka-141/payetl/pkg/payetl"
)

type memObject struct {
	data     []byte
	modified time.Time
}

// MemoryStore is an in-memory payetl.ObjectStore. Listing is in
// lexicographic key order, as S3 returns it.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]memObject

	downloads []string
	probes    []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]memObject)}
}

// Put stores an object with the given modification time.
func (m *MemoryStore) Put(bucket, key string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.buckets[bucket]
	if !ok {
		objs = make(map[string]memObject)
		m.buckets[bucket] = objs
	}
	objs[key] = memObject{data: append([]byte(nil), data...), modified: modified}
}

// Get returns an object's content.
func (m *MemoryStore) Get(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Downloads returns the keys downloaded so far, in order.
func (m *MemoryStore) Downloads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.downloads...)
}

// Probes returns the keys passed to Exists so far, in order.
func (m *MemoryStore) Probes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.probes...)
}

func (m *MemoryStore) List(ctx context.Context, bucket, prefix string, fn func(payetl.ObjectInfo) error) error {
	m.mu.Lock()
	var infos []payetl.ObjectInfo
	for key, obj := range m.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, payetl.ObjectInfo{Key: key, LastModified: obj.modified, Size: int64(len(obj.data))})
		}
	}
	m.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes = append(m.probes, key)
	_, ok := m.buckets[bucket][key]
	return ok, nil
}

func (m *MemoryStore) Download(ctx context.Context, bucket, key, localPath string) error {
	m.mu.Lock()
	obj, ok := m.buckets[bucket][key]
	if ok {
		m.downloads = append(m.downloads, key)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("s3://%s/%s: no such key", bucket, key)
	}
	return writeFile(localPath, bytes.NewReader(obj.data))
}

func (m *MemoryStore) PutIfAbsent(ctx context.Context, bucket, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket][key]; ok {
		return fmt.Errorf("s3://%s/%s: %w", bucket, key, payetl.ErrMarkerExists)
	}
	objs, ok := m.buckets[bucket]
	if !ok {
		objs = make(map[string]memObject)
		m.buckets[bucket] = objs
	}
	objs[key] = memObject{data: append([]byte(nil), body...), modified: time.Now()}
	return nil
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

var _ payetl.ObjectStore = (*MemoryStore)(nil)
