package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// MemoryStore 进程内对象存储，用于测试和本地开发
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

func (m *MemoryStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) PresignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	q := url.Values{}
	q.Set("key", key)
	q.Set("expires", fmt.Sprintf("%d", m.now().Add(expiresIn).Unix()))
	return fmt.Sprintf("%s/%s?%s", m.baseURL, url.PathEscape(key), q.Encode()), nil
}

func (m *MemoryStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = make(map[string]memoryObject)
	return nil
}

// Fetch 按签名URL取回对象，模拟客户端访问
func (m *MemoryStore) Fetch(rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	var expires int64
	if _, err := fmt.Sscanf(u.Query().Get("expires"), "%d", &expires); err != nil {
		return nil, fmt.Errorf("malformed signed url: %w", err)
	}
	if m.now().Unix() > expires {
		return nil, fmt.Errorf("signed url expired")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[u.Query().Get("key")]
	if !ok {
		return nil, fmt.Errorf("object not found")
	}
	return bytes.Clone(obj.data), nil
}

// Has 对象是否存在
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
