package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp" // register WebP decoder

	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/session"
)

// ObjectStore is an S3-compatible bucket.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error
	DeleteObject(ctx context.Context, key string) error
	// PublicURL returns the public address of key.
	PublicURL(key string) string
}

// MediaService normalizes avatar uploads and stores them. Without an
// object store the image is inlined into the profile as a data URL.
type MediaService struct {
	objects  ObjectStore
	identity *IdentityService
	log      zerolog.Logger
}

func NewMediaService(objects ObjectStore, identity *IdentityService) *MediaService {
	return &MediaService{
		objects:  objects,
		identity: identity,
		log:      logger.New("MediaService"),
	}
}

// UploadAvatar enforces size/type, normalizes to 200x200 JPEG, stores it and
// points the session user's profile image at it.
func (s *MediaService) UploadAvatar(ctx context.Context, sess *session.Session, file io.Reader, size int64, contentType string) (*model.User, error) {
	current, ok := sess.User()
	if !ok {
		return nil, model.ErrNoSession
	}

	data, _, err := readAndValidateImage(file, size, contentType, model.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}
	jpegBytes, err := resizeToJPEG(data, model.AvatarWidth, model.AvatarHeight, model.AvatarJPEGQuality)
	if err != nil {
		return nil, err
	}

	res, err := s.store(ctx, jpegBytes)
	if err != nil {
		return nil, err
	}

	url := res.URL
	user, err := s.identity.UpdateProfile(ctx, sess, model.ProfilePatch{ProfileImage: &url})
	if err != nil {
		return nil, err
	}

	if old := s.ownedKey(current.ProfileImage); old != "" {
		if err := s.objects.DeleteObject(ctx, old); err != nil {
			s.log.Warn().Err(err).Str("key", old).Msg("failed to delete previous avatar")
		}
	}
	s.log.Info().Str("user_id", user.ID).Str("key", res.Key).Int("bytes", len(jpegBytes)).Msg("avatar updated")
	return user, nil
}

func (s *MediaService) store(ctx context.Context, jpegBytes []byte) (*model.UploadResult, error) {
	if s.objects == nil {
		url := "data:" + model.ContentTypeJPEG + ";base64," + base64.StdEncoding.EncodeToString(jpegBytes)
		return &model.UploadResult{URL: url}, nil
	}
	key := fmt.Sprintf("%s/%s%s", model.AvatarFolder, uuid.NewString(), model.AvatarExt)
	if err := s.objects.PutObject(ctx, key, jpegBytes, model.ContentTypeJPEG, model.AvatarCacheControl); err != nil {
		return nil, err
	}
	return &model.UploadResult{URL: s.objects.PublicURL(key), Key: key}, nil
}

// ownedKey returns the bucket key behind url when it points at one of
// our uploaded avatars.
func (s *MediaService) ownedKey(url string) string {
	if s.objects == nil || url == "" {
		return ""
	}
	base := s.objects.PublicURL("")
	if base == "" || !strings.HasPrefix(url, base) {
		return ""
	}
	key := strings.TrimPrefix(url, base)
	if !strings.HasPrefix(key, model.AvatarFolder+"/") {
		return ""
	}
	return key
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file io.Reader, size int64, contentType string, maxSize int64) ([]byte, string, error) {
	if size > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, "", model.ErrInvalidImageType
	}
	return data, contentType, nil
}

// resizeToJPEG centers/crops to target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.ErrInvalidImageType
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
