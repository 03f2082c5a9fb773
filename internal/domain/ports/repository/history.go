package repository

import (
	"context"

	"video-inspection-console/internal/domain/model"
)

// UploadHistoryRepository persists the bounded upload history as a
// single document under one well-known key. The list is newest-first;
// Load returns an empty slice when nothing was persisted yet.
type UploadHistoryRepository interface {
	Load(ctx context.Context) ([]model.UploadRecord, error)
	Save(ctx context.Context, history []model.UploadRecord) error
}
