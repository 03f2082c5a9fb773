package adapter

import (
	"context"
	"io"
)

// UploadMeta accompanies a video upload to remote storage.
type UploadMeta struct {
	FileName    string
	UploadDate  string
	ClientID    string
	CameraAngle string
	VideoType   string
	UserName    string
}

// UploadResult mirrors the storage proxy's upload reply.
type UploadResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Key     string `json:"s3_key"`
	Error   string `json:"error"`
}

// StorageAPI is the outbound port for storage writes and existence
// checks. Upload honors ctx cancellation mid-transfer.
type StorageAPI interface {
	Upload(ctx context.Context, content io.Reader, meta UploadMeta) (UploadResult, error)
	CheckExists(ctx context.Context, storageKey string) (bool, error)
}
