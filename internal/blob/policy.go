package blob

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes caps every accepted upload (50 MiB).
const MaxUploadBytes int64 = 50 << 20

const sniffLength = 3072

var (
	// ErrExtensionNotAllowed indicates the file name extension is outside the allow-list.
	ErrExtensionNotAllowed = errors.New("blob: file extension not allowed")
	// ErrTooLarge indicates the upload exceeds the policy limit.
	ErrTooLarge = errors.New("blob: file too large")
	// ErrContentMismatch indicates the sniffed content type is not allowed.
	ErrContentMismatch = errors.New("blob: file content not allowed")
)

// Policy is the accept rule applied to uploads before they reach a Store.
type Policy struct {
	Extensions   []string
	ContentTypes []string
	MaxBytes     int64
}

// IconPolicy accepts raster and SVG images.
func IconPolicy() Policy {
	return Policy{
		Extensions:   []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"},
		ContentTypes: []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/svg+xml"},
		MaxBytes:     MaxUploadBytes,
	}
}

// DocumentPolicy accepts the CV document.
func DocumentPolicy() Policy {
	return Policy{
		Extensions:   []string{".pdf"},
		ContentTypes: []string{"application/pdf"},
		MaxBytes:     MaxUploadBytes,
	}
}

// Accept checks the extension and declared size, sniffs the content type and returns
// a File whose Body fails once more than MaxBytes are read.
func (p Policy) Accept(file File) (File, error) {
	extension := strings.ToLower(path.Ext(file.Name))
	if !containsFold(p.Extensions, extension) {
		return File{}, fmt.Errorf("%w: %q", ErrExtensionNotAllowed, extension)
	}
	limit := p.MaxBytes
	if limit <= 0 {
		limit = MaxUploadBytes
	}
	if file.Size > limit {
		return File{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, file.Size)
	}
	if file.Body == nil {
		return File{}, fmt.Errorf("%w: empty body", ErrContentMismatch)
	}

	header := make([]byte, sniffLength)
	read, err := io.ReadFull(file.Body, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return File{}, err
	}
	header = header[:read]
	detected := mimetype.Detect(header)
	if len(p.ContentTypes) > 0 && !mimeAllowed(detected, p.ContentTypes) {
		return File{}, fmt.Errorf("%w: %s", ErrContentMismatch, detected.String())
	}

	accepted := file
	accepted.ContentType = detected.String()
	accepted.Body = &limitedReader{
		reader:    io.MultiReader(bytes.NewReader(header), file.Body),
		remaining: limit,
	}
	return accepted, nil
}

func mimeAllowed(detected *mimetype.MIME, allowed []string) bool {
	for current := detected; current != nil; current = current.Parent() {
		for _, contentType := range allowed {
			if current.Is(contentType) {
				return true
			}
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}

type limitedReader struct {
	reader    io.Reader
	remaining int64
}

func (r *limitedReader) Read(buffer []byte) (int, error) {
	if r.remaining < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(buffer)) > r.remaining+1 {
		buffer = buffer[:r.remaining+1]
	}
	read, err := r.reader.Read(buffer)
	r.remaining -= int64(read)
	if r.remaining < 0 {
		return read, ErrTooLarge
	}
	return read, err
}
