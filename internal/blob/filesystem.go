package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
)

// FilesystemConfig configures a FilesystemStore.
type FilesystemConfig struct {
	Root          string
	PublicBaseURL string
	IDProvider    ids.Provider
}

// FilesystemStore keeps each bucket as a directory below Root.
type FilesystemStore struct {
	root       string
	publicBase string
	idProvider ids.Provider
}

// NewFilesystem builds a FilesystemStore, creating Root when missing.
func NewFilesystem(cfg FilesystemConfig) (*FilesystemStore, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("blob: filesystem root required")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, err
	}
	provider := cfg.IDProvider
	if provider == nil {
		provider = ids.NewUUIDProvider()
	}
	return &FilesystemStore{root: cfg.Root, publicBase: cfg.PublicBaseURL, idProvider: provider}, nil
}

func (s *FilesystemStore) Driver() Driver { return DriverFilesystem }

func (s *FilesystemStore) Upload(ctx context.Context, bucket string, file File) (string, error) {
	blobID, err := newBlobID(s.idProvider, file.Name)
	if err != nil {
		return "", err
	}
	if err := validateNames(bucket, blobID); err != nil {
		return "", err
	}
	directory := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", err
	}
	target := filepath.Join(directory, blobID)
	handle, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(handle, readerWithContext(ctx, file.Body)); err != nil {
		handle.Close()
		os.Remove(target)
		return "", err
	}
	if err := handle.Close(); err != nil {
		os.Remove(target)
		return "", err
	}
	return blobID, nil
}

func (s *FilesystemStore) Delete(_ context.Context, bucket, blobID string) error {
	if err := validateNames(bucket, blobID); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, bucket, blobID))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, blobID)
	}
	return err
}

func (s *FilesystemStore) ViewURL(bucket, blobID string) string {
	return joinURL(s.publicBase, "files", bucket, blobID)
}

// Open streams a stored blob with the content type implied by its extension.
func (s *FilesystemStore) Open(_ context.Context, bucket, blobID string) (io.ReadCloser, string, error) {
	if err := validateNames(bucket, blobID); err != nil {
		return nil, "", err
	}
	handle, err := os.Open(filepath.Join(s.root, bucket, blobID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, blobID)
	}
	if err != nil {
		return nil, "", err
	}
	contentType := mime.TypeByExtension(path.Ext(blobID))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return handle, contentType, nil
}

type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func readerWithContext(ctx context.Context, reader io.Reader) io.Reader {
	return &contextReader{ctx: ctx, reader: reader}
}

func (r *contextReader) Read(buffer []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(buffer)
}
