package model

import "time"

type UploadStatus string

const (
	UploadStatusUploading         UploadStatus = "uploading"
	UploadStatusVerifying         UploadStatus = "verifying"
	UploadStatusVerified          UploadStatus = "verified"
	UploadStatusFailed            UploadStatus = "failed"
	UploadStatusCancelled         UploadStatus = "cancelled"
	UploadStatusVerificationError UploadStatus = "verification_error"
)

// Settled reports whether the record needs no further verification.
func (s UploadStatus) Settled() bool {
	switch s {
	case UploadStatusVerified, UploadStatusFailed, UploadStatusCancelled, UploadStatusVerificationError:
		return true
	}
	return false
}

// UploadRecord is one upload-then-verify lifecycle. Records are plain
// data; verification timers are never persisted with them.
type UploadRecord struct {
	ID         string       `json:"id"`
	FileName   string       `json:"file_name"`
	SizeBytes  int64        `json:"size_bytes"`
	StorageKey string       `json:"s3_key,omitempty"`
	Status     UploadStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}

// PrependBounded inserts rec at the head of history and evicts the
// oldest entries beyond max. history is newest-first.
func PrependBounded(history []UploadRecord, rec UploadRecord, max int) []UploadRecord {
	out := make([]UploadRecord, 0, len(history)+1)
	out = append(out, rec)
	out = append(out, history...)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
