package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestFilesystemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystem(FilesystemConfig{Root: t.TempDir(), PublicBaseURL: "https://cdn.example.com/"})
	require.NoError(t, err)

	blobID, err := store.Upload(ctx, BucketIcons, File{Name: "Go.PNG", Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(blobID, ".png"))
	require.Equal(t, "https://cdn.example.com/files/icons/"+blobID, store.ViewURL(BucketIcons, blobID))

	reader, contentType, err := store.Open(ctx, BucketIcons, blobID)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, reader.Close())
	require.NoError(t, err)
	require.Equal(t, pngHeader, data)
	require.Equal(t, "image/png", contentType)

	require.NoError(t, store.Delete(ctx, BucketIcons, blobID))
	require.ErrorIs(t, store.Delete(ctx, BucketIcons, blobID), ErrNotFound)
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	store, err := NewFilesystem(FilesystemConfig{Root: t.TempDir()})
	require.NoError(t, err)
	require.ErrorIs(t, store.Delete(context.Background(), BucketIcons, "../secret"), ErrInvalidName)
	_, _, err = store.Open(context.Background(), "..", "x.png")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestIconPolicyAcceptsPNG(t *testing.T) {
	accepted, err := IconPolicy().Accept(File{Name: "go.png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)
	require.Equal(t, "image/png", accepted.ContentType)

	data, err := io.ReadAll(accepted.Body)
	require.NoError(t, err)
	require.Equal(t, pngHeader, data)
}

func TestPolicyRejections(t *testing.T) {
	testCases := []struct {
		name    string
		policy  Policy
		file    File
		wantErr error
	}{
		{
			name:    "extension",
			policy:  IconPolicy(),
			file:    File{Name: "icon.exe", Body: bytes.NewReader(pngHeader)},
			wantErr: ErrExtensionNotAllowed,
		},
		{
			name:    "declared-size",
			policy:  IconPolicy(),
			file:    File{Name: "icon.png", Size: MaxUploadBytes + 1, Body: bytes.NewReader(pngHeader)},
			wantErr: ErrTooLarge,
		},
		{
			name:    "content",
			policy:  DocumentPolicy(),
			file:    File{Name: "cv.pdf", Body: bytes.NewReader(pngHeader)},
			wantErr: ErrContentMismatch,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := testCase.policy.Accept(testCase.file)
			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestPolicyLimitsStreamedBody(t *testing.T) {
	policy := IconPolicy()
	policy.MaxBytes = int64(len(pngHeader)) + 4
	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)

	accepted, err := policy.Accept(File{Name: "big.png", Body: bytes.NewReader(body)})
	require.NoError(t, err)
	_, err = io.ReadAll(accepted.Body)
	require.True(t, errors.Is(err, ErrTooLarge), "expected ErrTooLarge, got %v", err)
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, params)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreUsesPrefixedKeys(t *testing.T) {
	client := &fakeS3{}
	store := newS3Store(client, S3Config{Bucket: "portfolio-assets"}, "eu-west-1")

	blobID, err := store.Upload(context.Background(), BucketDocuments, File{Name: "cv.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF-1.7")})
	require.NoError(t, err)
	require.Len(t, client.puts, 1)
	require.Equal(t, "documents/"+blobID, aws.ToString(client.puts[0].Key))
	require.Equal(t, int64(8), aws.ToInt64(client.puts[0].ContentLength))
	require.Equal(t, "https://portfolio-assets.s3.eu-west-1.amazonaws.com/documents/"+blobID, store.ViewURL(BucketDocuments, blobID))

	require.NoError(t, store.Delete(context.Background(), BucketDocuments, blobID))
	require.Len(t, client.deletes, 1)
	require.Equal(t, "documents/"+blobID, aws.ToString(client.deletes[0].Key))
}
