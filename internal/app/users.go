package app

import (
	"fmt"
	"strings"
	"time"

	"bytehub/internal/domain"
)

// GetProfile returns a user's public profile. The email is hidden unless the
// profile opts into showing it; callers always see their own email.
func (a *App) GetProfile(viewerID, userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(strings.TrimSpace(userID))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	if viewerID == user.ID {
		user.PasswordHash = ""
		return user, nil
	}
	return publicProfile(user), nil
}

// UpdateProfileInput patches profile fields; nil pointers leave fields
// unchanged.
type UpdateProfileInput struct {
	Name        *string
	Username    *string
	Bio         *string
	Institution *string
	Website     *string
	AvatarURL   *string
	SocialLinks map[string]string
}

// UpdateProfile applies a patch to the caller's own profile.
func (a *App) UpdateProfile(user domain.User, userID string, in UpdateProfileInput) (domain.User, error) {
	if user.ID != strings.TrimSpace(userID) {
		return domain.User{}, ErrForbidden
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return domain.User{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidArgument)
		}
		user.Name = name
	}
	if in.Username != nil {
		user.Username = strings.TrimSpace(*in.Username)
	}
	if in.Bio != nil {
		user.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Institution != nil {
		user.Institution = strings.TrimSpace(*in.Institution)
	}
	if in.Website != nil {
		user.Website = strings.TrimSpace(*in.Website)
	}
	if in.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.SocialLinks != nil {
		user.SocialLinks = in.SocialLinks
	}
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateSettingsInput patches preference flags; nil pointers leave flags
// unchanged.
type UpdateSettingsInput struct {
	ProfileVisibility   *string
	EmailNotifications  *bool
	HubNotifications    *bool
	FollowNotifications *bool
	ShowEmail           *bool
	ShowInstitution     *bool
	Theme               *string
}

// UpdateSettings applies a settings patch to the caller's own profile.
func (a *App) UpdateSettings(user domain.User, userID string, in UpdateSettingsInput) (domain.Settings, error) {
	if user.ID != strings.TrimSpace(userID) {
		return domain.Settings{}, ErrForbidden
	}
	settings := user.Settings
	if in.ProfileVisibility != nil {
		visibility, err := parseVisibility(*in.ProfileVisibility, "")
		if err != nil {
			return domain.Settings{}, err
		}
		settings.ProfileVisibility = visibility
	}
	if in.EmailNotifications != nil {
		settings.EmailNotifications = *in.EmailNotifications
	}
	if in.HubNotifications != nil {
		settings.HubNotifications = *in.HubNotifications
	}
	if in.FollowNotifications != nil {
		settings.FollowNotifications = *in.FollowNotifications
	}
	if in.ShowEmail != nil {
		settings.ShowEmail = *in.ShowEmail
	}
	if in.ShowInstitution != nil {
		settings.ShowInstitution = *in.ShowInstitution
	}
	if in.Theme != nil {
		theme, err := parseTheme(*in.Theme)
		if err != nil {
			return domain.Settings{}, err
		}
		settings.Theme = theme
	}
	user.Settings = settings
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.Settings{}, fmt.Errorf("save user: %w", err)
	}
	return settings, nil
}

func parseTheme(raw string) (domain.Theme, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case string(domain.ThemeLight):
		return domain.ThemeLight, nil
	case string(domain.ThemeDark):
		return domain.ThemeDark, nil
	case string(domain.ThemeSystem):
		return domain.ThemeSystem, nil
	default:
		return "", fmt.Errorf("%w: theme must be light, dark or system", ErrInvalidArgument)
	}
}

func publicProfile(u domain.User) domain.User {
	u.PasswordHash = ""
	if !u.Settings.ShowEmail {
		u.Email = ""
	}
	if !u.Settings.ShowInstitution {
		u.Institution = ""
	}
	return u
}
