package redis

import (
	"context"
	"encoding/json"

	"video-inspection-console/internal/domain/model"
	"video-inspection-console/internal/domain/ports/repository"
)

var _ repository.UploadHistoryRepository = (*HistoryRepo)(nil)

// HistoryRepo stores the bounded upload history as one JSON document
// under a single well-known key. No TTL: the history outlives sessions.
type HistoryRepo struct {
	client RedisClient
	key    string
}

func NewHistoryRepo(client RedisClient, key string) *HistoryRepo {
	if key == "" {
		key = "upload_history"
	}
	return &HistoryRepo{client: client, key: key}
}

func (r *HistoryRepo) Load(ctx context.Context) ([]model.UploadRecord, error) {
	data, err := r.client.Get(ctx, r.key)
	if err != nil {
		if IsNil(err) {
			return []model.UploadRecord{}, nil
		}
		return nil, err
	}
	var history []model.UploadRecord
	if err := json.Unmarshal([]byte(data), &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (r *HistoryRepo) Save(ctx context.Context, history []model.UploadRecord) error {
	// An empty history removes the document instead of storing "[]".
	if len(history) == 0 {
		return r.client.Del(ctx, r.key)
	}
	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, data, 0)
}
