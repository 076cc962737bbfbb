package content

import (
	"context"
	"errors"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/blob"
	"github.com/MarcoPoloResearchLab/portfolio/internal/cache"
	"github.com/MarcoPoloResearchLab/portfolio/internal/store"
	"go.uber.org/zap"
)

const cvDocumentID = "current"

// ErrNoCV indicates no CV has been uploaded yet.
var ErrNoCV = errors.New("content: no cv uploaded")

// UploadedIcon identifies a stored icon; the editor records both values on the
// owning skill or badge.
type UploadedIcon struct {
	BlobID string `json:"icon_blob_id"`
	URL    string `json:"icon_url"`
}

// UploadIcon checks file against the icon policy and stores it in the icons bucket.
func (r *Repository) UploadIcon(ctx context.Context, file blob.File) (UploadedIcon, error) {
	accepted, err := blob.IconPolicy().Accept(file)
	if err != nil {
		return UploadedIcon{}, newServiceError(opUploadIcon, "rejected", err)
	}
	blobID, err := r.blobs.Upload(ctx, blob.BucketIcons, accepted)
	if err != nil {
		r.logError(opUploadIcon, "upload_failed", err, zap.String("file_name", file.Name))
		return UploadedIcon{}, newServiceError(opUploadIcon, "upload_failed", err)
	}
	return UploadedIcon{BlobID: blobID, URL: r.blobs.ViewURL(blob.BucketIcons, blobID)}, nil
}

// CurrentCV returns the CV offered for download.
func (r *Repository) CurrentCV(ctx context.Context) (CVFile, error) {
	return cache.GetOrLoad(ctx, r.cache, cache.DetailKey(CollectionCV, cvDocumentID), func(ctx context.Context) (CVFile, error) {
		row, err := r.cv.Get(ctx, cvDocumentID)
		if errors.Is(err, store.ErrNotFound) {
			return CVFile{}, ErrNoCV
		}
		if err != nil {
			r.logError(opCurrentCV, "query_failed", err)
			return CVFile{}, newServiceError(opCurrentCV, "query_failed", err)
		}
		return r.cvFromRow(row), nil
	})
}

// ReplaceCV uploads a new CV document, points the singleton record at it and then
// deletes the previous blob. A failure deleting the old blob leaves an orphan and
// is only logged.
func (r *Repository) ReplaceCV(ctx context.Context, file blob.File) (CVFile, error) {
	accepted, err := blob.DocumentPolicy().Accept(file)
	if err != nil {
		return CVFile{}, newServiceError(opReplaceCV, "rejected", err)
	}
	blobID, err := r.blobs.Upload(ctx, blob.BucketDocuments, accepted)
	if err != nil {
		r.logError(opReplaceCV, "upload_failed", err)
		return CVFile{}, newServiceError(opReplaceCV, "upload_failed", err)
	}

	previous, err := r.cv.Get(ctx, cvDocumentID)
	hasPrevious := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		r.logError(opReplaceCV, "query_failed", err)
		return CVFile{}, newServiceError(opReplaceCV, "query_failed", err)
	}

	row := CVFileRow{
		ID:          cvDocumentID,
		BlobID:      blobID,
		FileName:    strings.TrimSpace(file.Name),
		ContentType: accepted.ContentType,
		UploadedAt:  r.clock().UTC(),
	}
	if hasPrevious {
		err = r.cv.Update(ctx, cvDocumentID, map[string]any{
			"blob_id":      row.BlobID,
			"file_name":    row.FileName,
			"content_type": row.ContentType,
			"uploaded_at":  row.UploadedAt,
		})
	} else {
		_, err = r.cv.Create(ctx, cvDocumentID, &row)
	}
	if err != nil {
		r.logError(opReplaceCV, "store_failed", err)
		return CVFile{}, newServiceError(opReplaceCV, "store_failed", err)
	}
	r.cache.Invalidate(cache.DetailKey(CollectionCV, cvDocumentID))

	if hasPrevious && previous.BlobID != "" && previous.BlobID != blobID {
		if deleteErr := r.blobs.Delete(ctx, blob.BucketDocuments, previous.BlobID); deleteErr != nil && !errors.Is(deleteErr, blob.ErrNotFound) {
			r.logError(opReplaceCV, "old_blob_delete_failed", deleteErr, zap.String("blob_id", previous.BlobID))
		}
	}
	return r.cvFromRow(row), nil
}

func (r *Repository) cvFromRow(row CVFileRow) CVFile {
	return CVFile{
		BlobID:      row.BlobID,
		FileName:    row.FileName,
		ContentType: row.ContentType,
		URL:         r.blobs.ViewURL(blob.BucketDocuments, row.BlobID),
		UploadedAt:  row.UploadedAt,
	}
}
