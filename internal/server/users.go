package server

import (
	"net/http"
	"strings"

	"bytehub/internal/app"
	"bytehub/internal/domain"
)

// handleUserByID serves /api/users/{userId} and /api/users/{userId}/settings.
func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	userID := parts[0]
	if userID == "" {
		writeFail(w, http.StatusBadRequest, "user id is required")
		return
	}
	if len(parts) == 2 && parts[1] == "settings" {
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		s.updateSettings(w, r, user, userID)
		return
	}
	if len(parts) != 1 {
		writeFail(w, http.StatusNotFound, "Not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		var viewerID string
		if token, ok := bearerToken(r); ok {
			if viewer, ok := s.app.UserFromToken(token); ok {
				viewerID = viewer.ID
			}
		}
		profile, err := s.app.GetProfile(viewerID, userID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, profile)
	case http.MethodPut:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		s.updateProfile(w, r, user, userID)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, user domain.User, userID string) {
	var req struct {
		Name        *string           `json:"name"`
		Username    *string           `json:"username"`
		Bio         *string           `json:"bio"`
		Institution *string           `json:"institution"`
		Website     *string           `json:"website"`
		AvatarURL   *string           `json:"avatarUrl"`
		SocialLinks map[string]string `json:"socialLinks"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.app.UpdateProfile(user, userID, app.UpdateProfileInput{
		Name:        req.Name,
		Username:    req.Username,
		Bio:         req.Bio,
		Institution: req.Institution,
		Website:     req.Website,
		AvatarURL:   req.AvatarURL,
		SocialLinks: req.SocialLinks,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, updated)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request, user domain.User, userID string) {
	var req struct {
		ProfileVisibility   *string `json:"profileVisibility"`
		EmailNotifications  *bool   `json:"emailNotifications"`
		HubNotifications    *bool   `json:"hubNotifications"`
		FollowNotifications *bool   `json:"followNotifications"`
		ShowEmail           *bool   `json:"showEmail"`
		ShowInstitution     *bool   `json:"showInstitution"`
		Theme               *string `json:"theme"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := s.app.UpdateSettings(user, userID, app.UpdateSettingsInput{
		ProfileVisibility:   req.ProfileVisibility,
		EmailNotifications:  req.EmailNotifications,
		HubNotifications:    req.HubNotifications,
		FollowNotifications: req.FollowNotifications,
		ShowEmail:           req.ShowEmail,
		ShowInstitution:     req.ShowInstitution,
		Theme:               req.Theme,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, settings)
}

// handleSearch serves GET /api/search?q=&type=&limit=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	results, err := s.app.Search(q.Get("q"), q.Get("type"), queryLimit(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, results)
}
