package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps uploads in process. Used when S3 is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string][]byte
}

func NewMemoryStore(bucket string) *MemoryStore {
	if bucket == "" {
		bucket = "local"
	}
	return &MemoryStore{bucket: bucket, objects: make(map[string][]byte)}
}

func (m *MemoryStore) Store(ctx context.Context, bucket, id string, f File) (Object, error) {
	if f.Body == nil {
		return Object{}, ErrEmptyFile
	}
	data, err := io.ReadAll(f.Body)
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Object{}, ErrEmptyFile
	}
	if bucket == "" {
		bucket = m.bucket
	}
	if id == "" {
		id = uuid.NewString()
	}
	key := objectKey(id, f.Name)

	m.mu.Lock()
	m.objects[bucket+"/"+key] = data
	m.mu.Unlock()

	return Object{ID: key, URL: "memory://" + bucket + "/" + key}, nil
}

// Open returns a stored object's contents.
func (m *MemoryStore) Open(bucket, id string) (io.Reader, bool) {
	if bucket == "" {
		bucket = m.bucket
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[bucket+"/"+id]
	if !ok {
		return nil, false
	}
	return bytes.NewReader(data), true
}
