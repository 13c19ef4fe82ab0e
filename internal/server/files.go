package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"bytehub/internal/app"
	"bytehub/internal/domain"
)

// handleUpload serves POST /api/upload (multipart, authenticated),
// GET /api/upload?hubId= as an alias of the file listing and
// DELETE /api/upload?fileId= as an alias of the file delete.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		s.uploadFile(w, r, user)
	case http.MethodGet:
		s.listFiles(w, r)
	case http.MethodDelete:
		fileID := strings.TrimSpace(r.URL.Query().Get("fileId"))
		if fileID == "" {
			writeFail(w, http.StatusBadRequest, "fileId is required")
			return
		}
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		s.deleteFile(w, r, user, fileID)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request, user domain.User) {
	if !s.allowRate(w, r, s.uploadLimiter, "too many uploads, retry later") {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid multipart body or file too large")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := s.allowedExtensions[ext]; !ok {
		s.audit(r, "file.upload", "fail", "user_id", user.ID, "reason", "extension_not_allowed", "extension", ext)
		writeFail(w, http.StatusBadRequest, "file type not allowed")
		return
	}

	uploaded, err := s.app.UploadFile(r.Context(), user, app.UploadFileInput{
		HubID:       r.FormValue("hubId"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		Note:        r.FormValue("note"),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "file.upload", "success", "user_id", user.ID, "file_id", uploaded.ID, "hub_id", uploaded.HubID)
	writeData(w, http.StatusCreated, uploaded)
}

// handleFiles serves GET /api/files?hubId=|userId= and the query form of
// DELETE /api/files?fileId=.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listFiles(w, r)
	case http.MethodDelete:
		fileID := strings.TrimSpace(r.URL.Query().Get("fileId"))
		if fileID == "" {
			writeFail(w, http.StatusBadRequest, "fileId is required")
			return
		}
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		s.deleteFile(w, r, user, fileID)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	files, err := s.app.ListFiles(q.Get("hubId"), q.Get("userId"), queryLimit(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, files)
}

type fileDetailResponse struct {
	File     domain.File          `json:"file"`
	Versions []domain.FileVersion `json:"versions"`
}

// handleFileByID serves /api/files/{fileId} and /api/files/{fileId}/download.
func (s *Server) handleFileByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/files/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	fileID := parts[0]
	if fileID == "" {
		writeFail(w, http.StatusBadRequest, "file id is required")
		return
	}
	if len(parts) == 2 && parts[1] == "download" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		url, err := s.app.DownloadURL(r.Context(), fileID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"url": url})
		return
	}
	if len(parts) != 1 {
		writeFail(w, http.StatusNotFound, "Not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		file, versions, err := s.app.GetFileWithVersions(fileID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, fileDetailResponse{File: file, Versions: versions})
	case http.MethodDelete:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		s.deleteFile(w, r, user, fileID)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request, user domain.User, fileID string) {
	if err := s.app.DeleteFile(r.Context(), user, fileID); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "file.delete", "success", "user_id", user.ID, "file_id", fileID)
	writeMessage(w, http.StatusOK, nil, "File deleted")
}
