package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/foodgram/backend/internal/storage"
)

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageService decodes base64 image uploads and hands them to storage.
type ImageService struct {
	store storage.Storage
}

func NewImageService(store storage.Storage) *ImageService {
	return &ImageService{store: store}
}

// Store decodes a data-URI payload ("data:image/png;base64,....") and writes
// it through the configured storage backend, returning the stored URL.
func (s *ImageService) Store(ctx context.Context, dataURI string) (string, error) {
	mediaType, payload, err := splitDataURI(dataURI)
	if err != nil {
		return "", err
	}

	ext, ok := imageExtensions[mediaType]
	if !ok {
		return "", &ValidationError{Field: "image", Message: fmt.Sprintf("unsupported image type %q", mediaType)}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", &ValidationError{Field: "image", Message: "invalid base64 image data"}
	}

	name := fmt.Sprintf("%s.%s", uuid.NewString(), ext)
	return s.store.Save(ctx, name, data, mediaType)
}

func splitDataURI(dataURI string) (mediaType, payload string, err error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return "", "", &ValidationError{Field: "image", Message: "expected a data URI"}
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", &ValidationError{Field: "image", Message: "malformed data URI"}
	}
	mediaType = strings.TrimSuffix(meta, ";base64")
	if mediaType == meta {
		return "", "", &ValidationError{Field: "image", Message: "expected base64 encoding"}
	}
	return mediaType, payload, nil
}
