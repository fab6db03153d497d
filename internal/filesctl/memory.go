package filesctl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryManager keeps objects in memory. It backs tests and dry runs.
type MemoryManager struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{objects: make(map[string][]byte)}
}

func (m *MemoryManager) PutFile(ctx context.Context, bucket string, name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("put %s/%s: read %d bytes, expected %d", bucket, name, len(data), size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+name] = data
	return nil
}

func (m *MemoryManager) DownloadFile(ctx context.Context, bucket string, name string, w io.Writer) (int64, error) {
	m.mu.Lock()
	data, ok := m.objects[bucket+"/"+name]
	m.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("object %s/%s not found", bucket, name)
	}
	return io.Copy(w, bytes.NewReader(data))
}

func (m *MemoryManager) Object(bucket, name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+name]
	return data, ok
}
