package adapter

import (
	"context"

	"video-inspection-console/internal/domain/model"
)

// SubmitResponse mirrors the backend's job-submission reply.
type SubmitResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
	Error   string `json:"error"`
}

// StatusResponse mirrors one task-status poll reply. State is the raw
// backend state string (PENDING, PROGRESS, PROCESSING, SUCCESS,
// FAILURE, REVOKED).
type StatusResponse struct {
	State      string                  `json:"state"`
	Progress   int                     `json:"progress"`
	StatusText string                  `json:"status"`
	Result     *model.ExtractionResult `json:"result"`
	Error      any                     `json:"error"`
}

// VideoFolder is one selectable group of videos already on storage.
type VideoFolder struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Videos []string `json:"videos"`
}

// RetrieveCriteria narrows the folder search.
type RetrieveCriteria struct {
	Date        string `json:"retrieve_date"`
	ClientID    string `json:"client_id"`
	CameraAngle string `json:"camera_angle"`
	VideoType   string `json:"video_type"`
}

// InspectionAPI is the outbound port to the remote job backend.
type InspectionAPI interface {
	// SubmitExtraction asks the backend to start frame extraction for a
	// storage folder prefix and returns the assigned task id.
	SubmitExtraction(ctx context.Context, folderPrefix string) (SubmitResponse, error)
	// TaskStatus polls the current state of a submitted task.
	TaskStatus(ctx context.Context, taskID string) (StatusResponse, error)
	// RetrieveFolders lists candidate video folders matching criteria.
	RetrieveFolders(ctx context.Context, c RetrieveCriteria) ([]VideoFolder, error)
	// VideoURL resolves a storage key to a presigned playback URL.
	VideoURL(ctx context.Context, storageKey string) (string, error)
}
