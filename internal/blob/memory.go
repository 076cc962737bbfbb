package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
)

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryStore keeps blobs in a map; used by tests and throwaway dev servers.
type MemoryStore struct {
	mu         sync.Mutex
	objects    map[string]memoryObject
	idProvider ids.Provider
	publicBase string
}

// NewMemory builds an empty MemoryStore.
func NewMemory(publicBaseURL string) *MemoryStore {
	return &MemoryStore{
		objects:    make(map[string]memoryObject),
		idProvider: ids.NewUUIDProvider(),
		publicBase: publicBaseURL,
	}
}

func (s *MemoryStore) Driver() Driver { return DriverMemory }

func (s *MemoryStore) Upload(_ context.Context, bucket string, file File) (string, error) {
	blobID, err := newBlobID(s.idProvider, file.Name)
	if err != nil {
		return "", err
	}
	if err := validateNames(bucket, blobID); err != nil {
		return "", err
	}
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[bucket+"/"+blobID] = memoryObject{contentType: file.ContentType, data: data}
	s.mu.Unlock()
	return blobID, nil
}

func (s *MemoryStore) Delete(_ context.Context, bucket, blobID string) error {
	key := bucket + "/" + blobID
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) ViewURL(bucket, blobID string) string {
	return joinURL(s.publicBase, "files", bucket, blobID)
}

func (s *MemoryStore) Open(_ context.Context, bucket, blobID string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	object, ok := s.objects[bucket+"/"+blobID]
	s.mu.Unlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, blobID)
	}
	return io.NopCloser(bytes.NewReader(object.data)), object.contentType, nil
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
