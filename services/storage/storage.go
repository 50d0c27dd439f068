// Package storage keeps profile avatars on Cloudinary.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

const (
	AvatarFolder  = "courtwise/avatars"
	MaxAvatarSize = 5 << 20
)

var (
	ErrUnsupportedImage = errors.New("avatar must be a JPEG, PNG, GIF or WebP image")
	ErrImageTooLarge    = errors.New("avatar exceeds the 5 MB limit")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// AvatarStorage stores one avatar per user and returns its public URL.
type AvatarStorage interface {
	UploadAvatar(ctx context.Context, userID string, file io.Reader) (string, error)
	DeleteAvatar(ctx context.Context, userID string) error
}

// Uploader is the part of the Cloudinary upload API the storage uses.
type Uploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

type CloudinaryStorage struct {
	api    Uploader
	folder string
	logger *zap.Logger
}

// NewCloudinaryStorageFromParams connects to Cloudinary with account credentials.
func NewCloudinaryStorageFromParams(cloudName, apiKey, apiSecret string, logger *zap.Logger) (*CloudinaryStorage, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return NewCloudinaryStorage(&cld.Upload, logger), nil
}

func NewCloudinaryStorage(up Uploader, logger *zap.Logger) *CloudinaryStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudinaryStorage{api: up, folder: AvatarFolder, logger: logger}
}

// UploadAvatar replaces the user's avatar. The public id is the user id, so
// each user has at most one stored image.
func (s *CloudinaryStorage) UploadAvatar(ctx context.Context, userID string, file io.Reader) (string, error) {
	body := bufio.NewReaderSize(io.LimitReader(file, MaxAvatarSize+1), 512)
	head, _ := body.Peek(512)
	if !allowedTypes[http.DetectContentType(head)] {
		return "", ErrUnsupportedImage
	}
	sized := &limitCheck{r: body, max: MaxAvatarSize}

	result, err := s.api.Upload(ctx, sized, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     userID,
		Overwrite:    api.Bool(true),
		Invalidate:   api.Bool(true),
		ResourceType: "image",
	})
	if sized.exceeded {
		return "", ErrImageTooLarge
	}
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload avatar: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("avatar upload returned no URL")
	}
	s.logger.Info("Avatar uploaded", zap.String("userID", userID), zap.String("publicID", result.PublicID))
	return result.SecureURL, nil
}

func (s *CloudinaryStorage) DeleteAvatar(ctx context.Context, userID string) error {
	_, err := s.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:   s.folder + "/" + userID,
		Invalidate: api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	return nil
}

// limitCheck fails reads past max bytes.
type limitCheck struct {
	r        io.Reader
	max      int64
	n        int64
	exceeded bool
}

func (l *limitCheck) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.max {
		l.exceeded = true
		return 0, ErrImageTooLarge
	}
	return n, err
}
