package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrTaskInProgress  = errors.New("a task is already in progress")
	ErrUploadNotFound  = errors.New("upload not found")
	ErrUploadSettled   = errors.New("upload already settled")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidArgument = errors.New("invalid argument")
)
