package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"video-inspection-console/internal/domain"
	"video-inspection-console/internal/domain/ports/adapter"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	role, err := s.gateway.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.log.Warn().Err(err).Str("user", req.Username).Msg("login refused")
		writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "error": "invalid credentials"})
		return
	}
	token, err := s.auth.Mint(w, req.Username, role)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token, "role": role})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type submitRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleExtractionSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.taskUC.Submit(r.Context(), req.Name); err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskInProgress):
			writeJSON(w, http.StatusConflict, map[string]any{"success": false, "error": "a task is already in progress"})
		case errors.Is(err, domain.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		default:
			http.Error(w, "Failed to submit task", http.StatusInternalServerError)
		}
		return
	}
	// Transport/server failures surface through the projection, same
	// as every other task-level error.
	writeJSON(w, http.StatusAccepted, s.taskUC.Snapshot())
}

func (s *Server) handleExtractionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.taskUC.Snapshot())
}

func (s *Server) handleExtractionReset(w http.ResponseWriter, r *http.Request) {
	s.taskUC.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.uploadUC.History())
}

func (s *Server) handleUploadStart(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("video")
	if err != nil {
		http.Error(w, "No video file found in request", http.StatusBadRequest)
		return
	}
	defer file.Close()

	meta := adapter.UploadMeta{
		UploadDate:  r.FormValue("upload_date"),
		ClientID:    r.FormValue("client_id"),
		CameraAngle: r.FormValue("camera_angle"),
		VideoType:   r.FormValue("video_type"),
	}
	if claims := ClaimsFrom(r.Context()); claims != nil {
		meta.UserName = claims.Subject
	}

	// The transfer outlives this request, but the multipart temp file
	// does not. Spool to a file the upload goroutine owns.
	spool, err := spoolUpload(file)
	if err != nil {
		http.Error(w, "Failed to buffer upload", http.StatusInternalServerError)
		return
	}

	id, err := s.uploadUC.Start(r.Context(), header.Filename, header.Size, spool, meta)
	if err != nil {
		http.Error(w, "Failed to start upload", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "upload_id": id})
}

func (s *Server) handleUploadCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uploadID")
	if err := s.uploadUC.CancelUpload(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrUploadNotFound) {
			http.Error(w, "Upload not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to cancel upload", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFolderSearch(w http.ResponseWriter, r *http.Request) {
	var crit adapter.RetrieveCriteria
	if err := json.NewDecoder(r.Body).Decode(&crit); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	folders, err := s.gateway.RetrieveFolders(r.Context(), crit)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "folders": folders})
}

type videoURLRequest struct {
	StorageKey string `json:"s3_key"`
}

func (s *Server) handleVideoURL(w http.ResponseWriter, r *http.Request) {
	var req videoURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StorageKey == "" {
		http.Error(w, "S3 key is missing", http.StatusBadRequest)
		return
	}
	url, err := s.gateway.VideoURL(r.Context(), req.StorageKey)
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := s.gateway.SystemStatus(r.Context())
	if err != nil {
		s.respondGatewayError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (s *Server) respondGatewayError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSessionExpired) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "session expired"})
		return
	}
	writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// spoolFile deletes itself on Close.
type spoolFile struct {
	*os.File
}

func (f *spoolFile) Close() error {
	err := f.File.Close()
	os.Remove(f.Name())
	return err
}

func spoolUpload(src io.Reader) (io.ReadCloser, error) {
	tmp, err := os.CreateTemp("", "upload-spool-*")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return &spoolFile{tmp}, nil
}
