package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"bytehub/internal/app"
	"bytehub/internal/domain"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Institution string `json:"institution"`
}

type sessionResponse struct {
	UID   string      `json:"uid"`
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// handleAuth serves POST /api/auth with action=signup|signin.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	action := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("action")))
	switch action {
	case "signup":
		s.handleSignup(w, r)
	case "signin":
		s.handleSignin(w, r)
	default:
		writeFail(w, http.StatusBadRequest, "action must be signup or signin")
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts, retry later") {
		return
	}
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := s.app.SignUp(app.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Institution: req.Institution,
	})
	if err != nil {
		s.audit(r, "auth.signup", "fail", "email", req.Email)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.signup", "success", "user_id", user.ID)
	writeData(w, http.StatusCreated, sessionResponse{UID: user.ID, User: user, Token: token})
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.signinLimiter, "too many signin attempts, retry later") {
		return
	}
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := s.app.SignIn(req.Email, req.Password)
	if err != nil {
		s.audit(r, "auth.signin", "fail", "email", req.Email)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.signin", "success", "user_id", user.ID)
	writeData(w, http.StatusOK, sessionResponse{UID: user.ID, User: user, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	if err := s.app.Logout(token); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.logout", "success", "user_id", user.ID)
	writeMessage(w, http.StatusOK, nil, "Signed out")
}

type verifyEmailRequest struct {
	Action      string `json:"action"`
	ChallengeID string `json:"challengeId"`
	Code        string `json:"code"`
}

// handleVerifyEmail serves POST /api/auth/verify-email with action=send|confirm.
func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.verifyLimiter, "too many verification attempts, retry later") {
		return
	}
	var req verifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch strings.TrimSpace(strings.ToLower(req.Action)) {
	case "send":
		challenge, err := s.app.SendEmailVerification(r.Context(), user)
		if err != nil {
			s.audit(r, "auth.verify_email.send", "fail", "user_id", user.ID)
			s.writeAppError(w, r, err)
			return
		}
		s.audit(r, "auth.verify_email.send", "success", "user_id", user.ID)
		writeData(w, http.StatusOK, challenge)
	case "confirm":
		updated, err := s.app.ConfirmEmailVerification(user, req.ChallengeID, req.Code)
		if err != nil {
			s.audit(r, "auth.verify_email.confirm", "fail", "user_id", user.ID)
			s.writeAppError(w, r, err)
			return
		}
		s.audit(r, "auth.verify_email.confirm", "success", "user_id", user.ID)
		writeMessage(w, http.StatusOK, updated, "Email verified")
	default:
		writeFail(w, http.StatusBadRequest, "action must be send or confirm")
	}
}
