package storage

import (
	"context"
	"path"
	"sync"

	"github.com/google/uuid"
)

// MemoryImageStore keeps images in process memory. It applies the same
// content checks as MinioImageStore and serves tests and local runs without
// an object store.
type MemoryImageStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

func NewMemoryImageStore(baseURL string) *MemoryImageStore {
	return &MemoryImageStore{baseURL: baseURL, objects: map[string][]byte{}}
}

func (s *MemoryImageStore) Upload(_ context.Context, folder string, data []byte) (string, error) {
	mime, err := sniffImage(data)
	if err != nil {
		return "", err
	}
	url := s.baseURL + "/" + path.Join(folder, uuid.NewString()+mime.Extension())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[url] = append([]byte(nil), data...)
	return url, nil
}

func (s *MemoryImageStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, url)
	return nil
}

// Has reports whether an object is stored under url
func (s *MemoryImageStore) Has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[url]
	return ok
}
