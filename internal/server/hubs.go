package server

import (
	"net/http"
	"strings"

	"bytehub/internal/app"
	"bytehub/internal/domain"
)

type hubRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Tags         []string `json:"tags"`
	Visibility   *string  `json:"visibility"`
	PreviewImage *string  `json:"previewImage"`
}

// handleHubs serves GET /api/hubs (public listing) and POST /api/hubs
// (create, authenticated).
func (s *Server) handleHubs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listHubs(w, r)
	case http.MethodPost:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		s.createHub(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) listHubs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var tags []string
	if raw := strings.TrimSpace(q.Get("tags")); raw != "" {
		tags = strings.Split(raw, ",")
	}
	hubs, err := s.app.ListHubs(app.ListHubsParams{
		UserID:     strings.TrimSpace(q.Get("userId")),
		Visibility: strings.TrimSpace(q.Get("visibility")),
		Search:     q.Get("search"),
		Tags:       tags,
		Limit:      queryLimit(r),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, hubs)
}

func (s *Server) createHub(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req hubRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := app.CreateHubInput{Tags: req.Tags}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Visibility != nil {
		in.Visibility = *req.Visibility
	}
	if req.PreviewImage != nil {
		in.PreviewImage = *req.PreviewImage
	}
	hub, err := s.app.CreateHub(user, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, hub)
}

// handleHubByID serves /api/hubs/{hubId} and /api/hubs/{hubId}/history.
func (s *Server) handleHubByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/hubs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	hubID := parts[0]
	if hubID == "" {
		writeFail(w, http.StatusBadRequest, "hub id is required")
		return
	}
	if len(parts) == 2 && parts[1] == "history" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.hubHistory(w, r, hubID)
		return
	}
	if len(parts) != 1 {
		writeFail(w, http.StatusNotFound, "Not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		hub, err := s.app.GetHub(hubID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, hub)
	case http.MethodPut:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		s.updateHub(w, r, user, hubID)
	case http.MethodDelete:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		if err := s.app.DeleteHub(r.Context(), user, hubID); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		s.audit(r, "hub.delete", "success", "hub_id", hubID, "user_id", user.ID)
		writeMessage(w, http.StatusOK, nil, "Hub deleted")
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) updateHub(w http.ResponseWriter, r *http.Request, user domain.User, hubID string) {
	var req hubRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	hub, err := s.app.UpdateHub(user, hubID, app.UpdateHubInput{
		Title:        req.Title,
		Description:  req.Description,
		Tags:         req.Tags,
		Visibility:   req.Visibility,
		PreviewImage: req.PreviewImage,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, hub)
}

func (s *Server) hubHistory(w http.ResponseWriter, r *http.Request, hubID string) {
	activities, err := s.app.HubHistory(hubID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, activities)
}
