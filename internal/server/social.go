package server

import (
	"net/http"
	"strings"

	"bytehub/internal/domain"
)

// handleStars serves POST /api/stars (toggle) and GET /api/stars (the
// caller's starred hubs). Both require authentication.
func (s *Server) handleStars(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req struct {
			HubID string `json:"hubId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := s.app.ToggleStar(r.Context(), user, req.HubID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, result)
	case http.MethodGet:
		hubs, err := s.app.ListStarred(user)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, hubs)
	default:
		methodNotAllowed(w)
	}
}

// handleFollows serves POST /api/follows (toggle, authenticated) and
// GET /api/follows?userId=&type=followers|following (public).
func (s *Server) handleFollows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			TargetUserID string `json:"targetUserId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := s.app.ToggleFollow(r.Context(), user, req.TargetUserID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, result)
	case http.MethodGet:
		userID := strings.TrimSpace(r.URL.Query().Get("userId"))
		if userID == "" {
			writeFail(w, http.StatusBadRequest, "userId is required")
			return
		}
		users, err := s.app.ListFollows(userID, r.URL.Query().Get("type"))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, users)
	default:
		methodNotAllowed(w)
	}
}

// handleComments serves POST /api/comments (authenticated) and
// GET /api/comments?hubId= (public).
func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			HubID string `json:"hubId"`
			Text  string `json:"text"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		comment, err := s.app.AddComment(r.Context(), user, req.HubID, req.Text)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, comment)
	case http.MethodGet:
		comments, err := s.app.ListComments(r.URL.Query().Get("hubId"))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, comments)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	notifications, err := s.app.ListNotifications(user, queryLimit(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, notifications)
}
