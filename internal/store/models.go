package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"bytehub/internal/domain"
)

// GORM models used for persistence. Set-valued document fields are stored as
// JSON columns so the document shapes survive round-trips unchanged.
type UserModel struct {
	ID            string `gorm:"primaryKey"`
	Email         string `gorm:"uniqueIndex;not null"`
	PasswordHash  string `gorm:"not null"`
	Name          string `gorm:"not null"`
	Username      string `gorm:"index"`
	Bio           string
	Institution   string
	Website       string
	AvatarURL     string
	SocialLinks   datatypes.JSON
	Followers     datatypes.JSON
	Following     datatypes.JSON
	Settings      datatypes.JSON
	EmailVerified bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type HubModel struct {
	ID           string `gorm:"primaryKey"`
	OwnerID      string `gorm:"not null;index"`
	Title        string `gorm:"not null"`
	Description  string
	Tags         datatypes.JSON
	Visibility   string `gorm:"not null;index"`
	PreviewImage string
	Files        datatypes.JSON
	Stars        int `gorm:"not null"`
	StarredBy    datatypes.JSON
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null;index"`
}

type FileModel struct {
	ID           string `gorm:"primaryKey"`
	HubID        string `gorm:"not null;index"`
	UploaderID   string `gorm:"not null;index"`
	FileName     string `gorm:"not null"`
	OriginalName string `gorm:"not null"`
	FileSize     int64  `gorm:"not null"`
	FileType     string
	FileURL      string
	StorageKey   string
	Version      int       `gorm:"not null"`
	UploadedAt   time.Time `gorm:"not null;index"`
}

type FileVersionModel struct {
	ID         string `gorm:"primaryKey"`
	FileID     string `gorm:"not null;index"`
	Version    int    `gorm:"not null"`
	FileSize   int64  `gorm:"not null"`
	FileURL    string
	StorageKey string
	UploaderID string
	Note       string
	CreatedAt  time.Time `gorm:"not null"`
}

type CommentModel struct {
	ID         string `gorm:"primaryKey"`
	HubID      string `gorm:"not null;index"`
	UserID     string `gorm:"not null"`
	UserName   string
	UserAvatar string
	Text       string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

type NotificationModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	Kind      string `gorm:"not null"`
	Title     string
	Message   string
	ActorID   string
	TargetID  string
	Read      bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func toJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}

func stringsFromJSON(raw datatypes.JSON) []string {
	var out []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func mapFromJSON(raw datatypes.JSON) map[string]string {
	var out map[string]string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

func settingsFromJSON(raw datatypes.JSON) domain.Settings {
	settings := domain.DefaultSettings()
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &settings)
	}
	return settings
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:            u.ID,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		Name:          u.Name,
		Username:      u.Username,
		Bio:           u.Bio,
		Institution:   u.Institution,
		Website:       u.Website,
		AvatarURL:     u.AvatarURL,
		SocialLinks:   toJSON(u.SocialLinks),
		Followers:     toJSON(u.Followers),
		Following:     toJSON(u.Following),
		Settings:      toJSON(u.Settings),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:            m.ID,
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		Name:          m.Name,
		Username:      m.Username,
		Bio:           m.Bio,
		Institution:   m.Institution,
		Website:       m.Website,
		AvatarURL:     m.AvatarURL,
		SocialLinks:   mapFromJSON(m.SocialLinks),
		Followers:     stringsFromJSON(m.Followers),
		Following:     stringsFromJSON(m.Following),
		Settings:      settingsFromJSON(m.Settings),
		EmailVerified: m.EmailVerified,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func hubToModel(h domain.Hub) HubModel {
	return HubModel{
		ID:           h.ID,
		OwnerID:      h.OwnerID,
		Title:        h.Title,
		Description:  h.Description,
		Tags:         toJSON(h.Tags),
		Visibility:   string(h.Visibility),
		PreviewImage: h.PreviewImage,
		Files:        toJSON(h.Files),
		Stars:        h.Stars,
		StarredBy:    toJSON(h.StarredBy),
		CreatedAt:    h.CreatedAt,
		UpdatedAt:    h.UpdatedAt,
	}
}

func hubFromModel(m HubModel) domain.Hub {
	return domain.Hub{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		Title:        m.Title,
		Description:  m.Description,
		Tags:         stringsFromJSON(m.Tags),
		Visibility:   domain.Visibility(m.Visibility),
		PreviewImage: m.PreviewImage,
		Files:        stringsFromJSON(m.Files),
		Stars:        m.Stars,
		StarredBy:    stringsFromJSON(m.StarredBy),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fileToModel(f domain.File) FileModel {
	return FileModel{
		ID:           f.ID,
		HubID:        f.HubID,
		UploaderID:   f.UploaderID,
		FileName:     f.FileName,
		OriginalName: f.OriginalName,
		FileSize:     f.FileSize,
		FileType:     f.FileType,
		FileURL:      f.FileURL,
		StorageKey:   f.StorageKey,
		Version:      f.Version,
		UploadedAt:   f.UploadedAt,
	}
}

func fileFromModel(m FileModel) domain.File {
	return domain.File{
		ID:           m.ID,
		HubID:        m.HubID,
		UploaderID:   m.UploaderID,
		FileName:     m.FileName,
		OriginalName: m.OriginalName,
		FileSize:     m.FileSize,
		FileType:     m.FileType,
		FileURL:      m.FileURL,
		StorageKey:   m.StorageKey,
		Version:      m.Version,
		UploadedAt:   m.UploadedAt,
	}
}

func versionToModel(v domain.FileVersion) FileVersionModel {
	return FileVersionModel{
		ID:         v.ID,
		FileID:     v.FileID,
		Version:    v.Version,
		FileSize:   v.FileSize,
		FileURL:    v.FileURL,
		StorageKey: v.StorageKey,
		UploaderID: v.UploaderID,
		Note:       v.Note,
		CreatedAt:  v.CreatedAt,
	}
}

func versionFromModel(m FileVersionModel) domain.FileVersion {
	return domain.FileVersion{
		ID:         m.ID,
		FileID:     m.FileID,
		Version:    m.Version,
		FileSize:   m.FileSize,
		FileURL:    m.FileURL,
		StorageKey: m.StorageKey,
		UploaderID: m.UploaderID,
		Note:       m.Note,
		CreatedAt:  m.CreatedAt,
	}
}

func commentToModel(c domain.Comment) CommentModel {
	return CommentModel{
		ID:         c.ID,
		HubID:      c.HubID,
		UserID:     c.UserID,
		UserName:   c.UserName,
		UserAvatar: c.UserAvatar,
		Text:       c.Text,
		CreatedAt:  c.CreatedAt,
	}
}

func commentFromModel(m CommentModel) domain.Comment {
	return domain.Comment{
		ID:         m.ID,
		HubID:      m.HubID,
		UserID:     m.UserID,
		UserName:   m.UserName,
		UserAvatar: m.UserAvatar,
		Text:       m.Text,
		CreatedAt:  m.CreatedAt,
	}
}

func notificationToModel(n domain.Notification) NotificationModel {
	return NotificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Message:   n.Message,
		ActorID:   n.ActorID,
		TargetID:  n.TargetID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func notificationFromModel(m NotificationModel) domain.Notification {
	return domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Kind:      domain.NotificationKind(m.Kind),
		Title:     m.Title,
		Message:   m.Message,
		ActorID:   m.ActorID,
		TargetID:  m.TargetID,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}
