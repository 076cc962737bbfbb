// Package blob stores uploaded files (skill and badge icons, the CV document)
// behind a bucket/blob-id interface with filesystem, S3 and in-memory drivers.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	// DriverFilesystem keeps blobs under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 keeps blobs in an S3 compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps blobs in process memory (tests).
	DriverMemory Driver = "memory"
)

// Logical buckets.
const (
	BucketIcons     = "icons"
	BucketDocuments = "documents"
)

var (
	// ErrNotFound indicates the blob does not exist.
	ErrNotFound = errors.New("blob: not found")
	// ErrInvalidName indicates a bucket or blob id outside the safe character set.
	ErrInvalidName = errors.New("blob: invalid bucket or blob id")

	safeName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,189}$`)
)

// File is an upload handed to a Store.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Store uploads and deletes blobs and builds their public view URLs.
type Store interface {
	Upload(ctx context.Context, bucket string, file File) (string, error)
	Delete(ctx context.Context, bucket, blobID string) error
	ViewURL(bucket, blobID string) string
	Driver() Driver
}

// Opener is implemented by stores that can stream a blob back (the filesystem and
// memory drivers, which the API serves directly).
type Opener interface {
	Open(ctx context.Context, bucket, blobID string) (io.ReadCloser, string, error)
}

func validateNames(bucket, blobID string) error {
	if !safeName.MatchString(bucket) || !safeName.MatchString(blobID) || strings.Contains(blobID, "..") {
		return ErrInvalidName
	}
	return nil
}

// newBlobID issues an id that keeps the upload's extension so view URLs stay typed.
func newBlobID(provider ids.Provider, fileName string) (string, error) {
	id, err := provider.NewID()
	if err != nil {
		return "", err
	}
	extension := strings.ToLower(path.Ext(fileName))
	if extension != "" && safeName.MatchString("x"+extension) {
		id += extension
	}
	return id, nil
}

func joinURL(base string, parts ...string) string {
	trimmed := strings.TrimRight(base, "/")
	return trimmed + "/" + strings.Join(parts, "/")
}
