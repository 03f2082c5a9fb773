// File: internal/infra/adapters/inspection/client.go
package inspection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"video-inspection-console/internal/domain"
	"video-inspection-console/internal/domain/ports/adapter"
)

var _ adapter.InspectionAPI = (*Client)(nil)

// Client talks to the Flask inspection backend over HTTP with a bearer
// token. It implements both the job port (adapter.InspectionAPI) and
// the storage port (adapter.StorageAPI, see storage.go).
type Client struct {
	baseURL string
	client  *http.Client
	session *Session
	log     *zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, session *Session, logger *zerolog.Logger) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	compLog := logger.With().Str("component", "InspectionClient").Logger()
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		session: session,
		log:     &compLog,
	}, nil
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Login bootstraps the session against /login and returns the role
// the backend assigned.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{"username": username, "password": password}
	var out loginResponse
	if err := c.postJSON(ctx, "/login", payload, &out, false); err != nil {
		return "", err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "invalid credentials"
		}
		return "", errors.New(msg)
	}
	c.session.Set(out.Token, out.Role, username)
	return out.Role, nil
}

// SubmitExtraction starts frame extraction for a storage folder prefix.
func (c *Client) SubmitExtraction(ctx context.Context, folderPrefix string) (adapter.SubmitResponse, error) {
	var out adapter.SubmitResponse
	err := c.postJSON(ctx, "/process-s3-videos", map[string]string{"name": folderPrefix}, &out, true)
	return out, err
}

// TaskStatus polls one submitted task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (adapter.StatusResponse, error) {
	var out adapter.StatusResponse
	err := c.getJSON(ctx, "/task-status/"+url.PathEscape(taskID), &out)
	return out, err
}

type retrieveResponse struct {
	Success bool                  `json:"success"`
	Folders []adapter.VideoFolder `json:"folders"`
	Error   string                `json:"error"`
}

// RetrieveFolders lists candidate video folders matching criteria.
func (c *Client) RetrieveFolders(ctx context.Context, crit adapter.RetrieveCriteria) ([]adapter.VideoFolder, error) {
	var out retrieveResponse
	if err := c.postJSON(ctx, "/retrieve-videos", crit, &out, true); err != nil {
		return nil, err
	}
	if !out.Success {
		if out.Error != "" {
			return nil, errors.New(out.Error)
		}
		return nil, errors.New("failed to retrieve videos")
	}
	return out.Folders, nil
}

type videoURLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Error   string `json:"error"`
}

// VideoURL resolves a storage key to a presigned playback URL.
func (c *Client) VideoURL(ctx context.Context, storageKey string) (string, error) {
	var out videoURLResponse
	if err := c.postJSON(ctx, "/get-video-url", map[string]string{"s3_key": storageKey}, &out, true); err != nil {
		return "", err
	}
	if !out.Success || out.URL == "" {
		return "", errors.New("could not generate video url")
	}
	return out.URL, nil
}

// SystemStatus passes the dashboard card data through untouched.
func (c *Client) SystemStatus(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/system-status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, authed bool) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.decode(req, out, authed)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.decode(req, out, true)
}

func (c *Client) decode(req *http.Request, out any, authed bool) error {
	resp, err := c.do(req, authed)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// do sends the request with the session token attached and turns a 401
// into domain.ErrSessionExpired after firing the session's expiry
// callback.
func (c *Client) do(req *http.Request, authed bool) (*http.Response, error) {
	if authed {
		token := c.session.Token()
		if token == "" {
			return nil, domain.ErrSessionExpired
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.session.expire()
		c.log.Warn().Str("path", req.URL.Path).Msg("backend session expired")
		return nil, domain.ErrSessionExpired
	}
	return resp, nil
}
