package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
)

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectStore is the object-storage half of the hosted backend. Put must
// fail with ErrObjectExists rather than replace an existing object.
type ObjectStore interface {
	Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, path string) error
}

// Object is a stored blob held by MemoryStore
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps objects in process memory. It backs local development
// without cloud credentials and the tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (m *MemoryStore) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; ok {
		return ErrObjectExists
	}
	m.objects[path] = Object{ContentType: contentType, Data: buf.Bytes()}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, path)
	return nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(path string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[path]
	return o, ok
}

// Paths lists stored object paths in order.
func (m *MemoryStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.objects))
	for p := range m.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
