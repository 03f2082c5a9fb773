package inspection

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"video-inspection-console/internal/domain/ports/adapter"
)

var _ adapter.StorageAPI = (*Client)(nil)

// Upload streams a video to the backend's storage proxy as multipart
// form data. Cancelling ctx aborts the transfer.
func (c *Client) Upload(ctx context.Context, content io.Reader, meta adapter.UploadMeta) (adapter.UploadResult, error) {
	var out adapter.UploadResult

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeUploadForm(mw, content, meta)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/s3-upload", pr)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return out, c.decodeUpload(req, &out)
}

func (c *Client) decodeUpload(req *http.Request, out *adapter.UploadResult) error {
	return c.decode(req, out, true)
}

func writeUploadForm(mw *multipart.Writer, content io.Reader, meta adapter.UploadMeta) error {
	fields := map[string]string{
		"upload_date":  meta.UploadDate,
		"client_id":    meta.ClientID,
		"camera_angle": meta.CameraAngle,
		"video_type":   meta.VideoType,
		"user_name":    meta.UserName,
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("video", meta.FileName)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, content)
	return err
}

type existsResponse struct {
	Success bool `json:"success"`
	Exists  bool `json:"exists"`
}

// CheckExists asks the backend whether the storage key has been
// written yet.
func (c *Client) CheckExists(ctx context.Context, storageKey string) (bool, error) {
	var out existsResponse
	body := map[string]string{"s3_key": storageKey}
	if err := c.postJSON(ctx, "/s3-upload-status", body, &out, true); err != nil {
		return false, err
	}
	if !out.Success {
		return false, errors.New("storage status check failed")
	}
	return out.Exists, nil
}
