package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"bytehub/internal/auth"
	"bytehub/internal/domain"
	"bytehub/internal/util"
)

// SignUpInput carries the signup form fields.
type SignUpInput struct {
	Email       string
	Password    string
	Name        string
	Institution string
}

// SignUp registers a new profile and issues a session token.
func (a *App) SignUp(in SignUpInput) (domain.User, string, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.User{}, "", err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %s", ErrInvalidArgument, err.Error())
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Username:     usernameFromEmail(email),
		Institution:  strings.TrimSpace(in.Institution),
		Followers:    []string{},
		Following:    []string{},
		Settings:     domain.DefaultSettings(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// SignIn validates credentials and issues a session token.
func (a *App) SignIn(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// Logout revokes the session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// EmailChallenge describes a pending email verification code.
type EmailChallenge struct {
	ChallengeID      string `json:"challengeId"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
	ResendInSeconds  int    `json:"resendInSeconds"`
}

// SendEmailVerification issues a verification challenge and mails the code.
// Only the challenge handle is returned to the client.
func (a *App) SendEmailVerification(ctx context.Context, user domain.User) (EmailChallenge, error) {
	if a.verifier == nil {
		return EmailChallenge{}, errors.New("email verification not configured")
	}
	if user.EmailVerified {
		return EmailChallenge{}, ErrEmailAlreadyVerified
	}
	challengeID, code, expiresIn, resendIn, err := a.verifier.CreateChallenge(user.ID, user.Email)
	if err != nil {
		return EmailChallenge{}, err
	}
	if err := a.mailer.SendVerificationCode(ctx, user.Email, code); err != nil {
		return EmailChallenge{}, fmt.Errorf("send verification email: %w", err)
	}
	return EmailChallenge{
		ChallengeID:      challengeID,
		ExpiresInSeconds: expiresIn,
		ResendInSeconds:  resendIn,
	}, nil
}

// ConfirmEmailVerification checks the code and marks the email verified.
func (a *App) ConfirmEmailVerification(user domain.User, challengeID, code string) (domain.User, error) {
	if a.verifier == nil {
		return domain.User{}, errors.New("email verification not configured")
	}
	if user.EmailVerified {
		return domain.User{}, ErrEmailAlreadyVerified
	}
	if err := a.verifier.VerifyChallenge(challengeID, user.ID, code); err != nil {
		return domain.User{}, fmt.Errorf("%w: %s", ErrInvalidArgument, err.Error())
	}
	user.EmailVerified = true
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: email format is invalid", ErrInvalidArgument)
	}
	return email, nil
}

func usernameFromEmail(email string) string {
	local := strings.SplitN(email, "@", 2)[0]
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, local)
}
