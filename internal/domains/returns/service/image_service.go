package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"returns-backend/internal/domains/returns/model"
	"returns-backend/internal/infrastructure/storage"
	"returns-backend/internal/shared/apperr"
)

const imageURLExpiry = 15 * time.Minute

// =====================================================
// PROOF IMAGE SERVICE
// =====================================================
type ImageService interface {
	// Upload stores the original and a thumbnail; the returned key goes into
	// CreateReturnRequest.ImageKey.
	Upload(ctx context.Context, userID uuid.UUID, data []byte) (*model.UploadImageResponse, error)
	ViewURL(ctx context.Context, key string) (string, error)
}

type imageService struct {
	store     storage.ObjectStore
	processor *storage.ImageProcessor
}

// NewImageService: a nil store disables uploads
func NewImageService(store storage.ObjectStore, processor *storage.ImageProcessor) ImageService {
	if processor == nil {
		processor = storage.NewImageProcessor()
	}
	return &imageService{store: store, processor: processor}
}

func (s *imageService) Upload(ctx context.Context, userID uuid.UUID, data []byte) (*model.UploadImageResponse, error) {
	if s.store == nil {
		return nil, model.NewReturnError(model.ErrCodeImageUploadDisabled, "image upload disabled", model.ErrImageUploadDisabled)
	}

	if err := s.processor.ValidateImage(data); err != nil {
		return nil, model.NewReturnError(model.ErrCodeInvalidRequest, err.Error(), apperr.ErrValidation)
	}

	variants, err := s.processor.ProcessImage(data)
	if err != nil {
		return nil, model.NewReturnError(model.ErrCodeInvalidRequest, "cannot process image", errors.Join(apperr.ErrValidation, err))
	}

	prefix := fmt.Sprintf("returns/%s/%s", userID, uuid.New())
	resp := &model.UploadImageResponse{
		Key:          prefix + "/" + storage.VariantOriginal + ".jpg",
		ThumbnailKey: prefix + "/" + storage.VariantThumbnail + ".jpg",
	}

	if err := s.store.Upload(ctx, resp.Key, variants[storage.VariantOriginal], "image/jpeg"); err != nil {
		return nil, fmt.Errorf("upload original: %w", err)
	}
	if err := s.store.Upload(ctx, resp.ThumbnailKey, variants[storage.VariantThumbnail], "image/jpeg"); err != nil {
		// Leave no half-uploaded pair behind
		if delErr := s.store.Delete(ctx, resp.Key); delErr != nil {
			log.Warn().Err(delErr).Str("key", resp.Key).Msg("Failed to remove orphaned original")
		}
		return nil, fmt.Errorf("upload thumbnail: %w", err)
	}

	log.Info().Str("user_id", userID.String()).Str("key", resp.Key).Msg("Return proof image uploaded")
	return resp, nil
}

func (s *imageService) ViewURL(ctx context.Context, key string) (string, error) {
	if s.store == nil {
		return "", model.NewReturnError(model.ErrCodeImageUploadDisabled, "image upload disabled", model.ErrImageUploadDisabled)
	}
	return s.store.PresignedURL(ctx, key, imageURLExpiry)
}
