package services

import (
	"context"

	"relaydesk/internal/repository"
	relay_errors "relaydesk/pkg/errors"
	"relaydesk/pkg/logger"

	"github.com/google/uuid"
)

// MediaStore resolves short-lived download URLs for stored media.
type MediaStore interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// AttachmentService hands out download URLs for message media. Media
// mirrored to object storage gets a fresh presigned URL per request;
// attachments that only carry a provider link return that link as-is.
type AttachmentService struct {
	repo   repository.AttachmentRepository
	store  MediaStore
	logger *logger.Logger
}

func NewAttachmentService(repo repository.AttachmentRepository, store MediaStore, l *logger.Logger) *AttachmentService {
	return &AttachmentService{repo: repo, store: store, logger: l}
}

func (s *AttachmentService) DownloadURL(ctx context.Context, actor Actor, id uuid.UUID) (string, error) {
	a, err := s.repo.GetForTeam(ctx, id, actor.TeamID)
	if err != nil {
		return "", err
	}

	if a.StorageKey.Valid && s.store != nil {
		url, err := s.store.PresignGet(ctx, a.StorageKey.String)
		if err != nil {
			s.logger.ErrorfCtx(ctx, "presign failed for attachment %s: %v", id, err)
			return "", err
		}
		return url, nil
	}

	if a.URL == "" {
		return "", relay_errors.ErrNotFound
	}
	return a.URL, nil
}
