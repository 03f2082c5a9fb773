// Package localstore is the file-backed analog of the redis history
// repo for deployments without redis: the same single JSON document,
// keyed by file path.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"video-inspection-console/internal/domain/model"
	"video-inspection-console/internal/domain/ports/repository"
)

var _ repository.UploadHistoryRepository = (*HistoryRepo)(nil)

type HistoryRepo struct {
	path string
	mu   sync.Mutex
}

func NewHistoryRepo(path string) *HistoryRepo {
	if path == "" {
		path = "upload_history.json"
	}
	return &HistoryRepo{path: path}
}

func (r *HistoryRepo) Load(ctx context.Context) ([]model.UploadRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.UploadRecord{}, nil
		}
		return nil, err
	}
	var history []model.UploadRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Save writes to a temp file and renames so a crash mid-write never
// leaves a truncated history behind.
func (r *HistoryRepo) Save(ctx context.Context, history []model.UploadRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".history-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
