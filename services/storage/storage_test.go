package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	UploadFn  func(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	DestroyFn func(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

func (m *mockUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	return m.UploadFn(ctx, file, params)
}

func (m *mockUploader) Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	return m.DestroyFn(ctx, params)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUploadAvatar(t *testing.T) {
	var got uploader.UploadParams
	var uploaded []byte
	up := &mockUploader{UploadFn: func(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
		got = params
		r, ok := file.(io.Reader)
		require.True(t, ok)
		uploaded, _ = io.ReadAll(r)
		return &uploader.UploadResult{PublicID: AvatarFolder + "/u1", SecureURL: "https://res.cloudinary.com/demo/u1.png"}, nil
	}}
	s := NewCloudinaryStorage(up, nil)

	url, err := s.UploadAvatar(context.Background(), "u1", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/u1.png", url)
	assert.Equal(t, pngHeader, uploaded)
	assert.Equal(t, AvatarFolder, got.Folder)
	assert.Equal(t, "u1", got.PublicID)
	require.NotNil(t, got.Overwrite)
	assert.True(t, *got.Overwrite)
}

func TestUploadAvatar_RejectsNonImage(t *testing.T) {
	s := NewCloudinaryStorage(&mockUploader{}, nil)
	_, err := s.UploadAvatar(context.Background(), "u1", bytes.NewReader([]byte("%PDF-1.7 not an image")))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestUploadAvatar_TooLarge(t *testing.T) {
	up := &mockUploader{UploadFn: func(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
		_, err := io.ReadAll(file.(io.Reader))
		return nil, err
	}}
	s := NewCloudinaryStorage(up, nil)

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxAvatarSize)...)
	_, err := s.UploadAvatar(context.Background(), "u1", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestUploadAvatar_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		result *uploader.UploadResult
		err    error
	}{
		{"transport error", nil, errors.New("connection reset")},
		{"api error", &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}, nil},
		{"no url", &uploader.UploadResult{PublicID: "x"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &mockUploader{UploadFn: func(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
				return tt.result, tt.err
			}}
			_, err := NewCloudinaryStorage(up, nil).UploadAvatar(context.Background(), "u1", bytes.NewReader(pngHeader))
			assert.Error(t, err)
		})
	}
}

func TestDeleteAvatar(t *testing.T) {
	var got uploader.DestroyParams
	up := &mockUploader{DestroyFn: func(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
		got = params
		return &uploader.DestroyResult{Result: "ok"}, nil
	}}
	require.NoError(t, NewCloudinaryStorage(up, nil).DeleteAvatar(context.Background(), "u1"))
	assert.Equal(t, AvatarFolder+"/u1", got.PublicID)
}

func TestNewCloudinaryStorageFromParams_MissingCredentials(t *testing.T) {
	_, err := NewCloudinaryStorageFromParams("", "key", "secret", nil)
	assert.Error(t, err)
}
