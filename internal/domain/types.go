package domain

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Settings groups a user's notification, privacy and theme preferences.
type Settings struct {
	ProfileVisibility   Visibility `json:"profileVisibility"`
	EmailNotifications  bool       `json:"emailNotifications"`
	HubNotifications    bool       `json:"hubNotifications"`
	FollowNotifications bool       `json:"followNotifications"`
	ShowEmail           bool       `json:"showEmail"`
	ShowInstitution     bool       `json:"showInstitution"`
	Theme               Theme      `json:"theme"`
}

// DefaultSettings returns the preferences applied to every new profile.
func DefaultSettings() Settings {
	return Settings{
		ProfileVisibility:   VisibilityPublic,
		EmailNotifications:  true,
		HubNotifications:    true,
		FollowNotifications: true,
		ShowEmail:           false,
		ShowInstitution:     true,
		Theme:               ThemeSystem,
	}
}

type User struct {
	ID            string            `json:"id"`
	Email         string            `json:"email,omitempty"`
	PasswordHash  string            `json:"-"`
	Name          string            `json:"name"`
	Username      string            `json:"username"`
	Bio           string            `json:"bio"`
	Institution   string            `json:"institution"`
	Website       string            `json:"website"`
	AvatarURL     string            `json:"avatarURL"`
	SocialLinks   map[string]string `json:"socialLinks,omitempty"`
	Followers     []string          `json:"followers"`
	Following     []string          `json:"following"`
	Settings      Settings          `json:"settings"`
	EmailVerified bool              `json:"emailVerified"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type Hub struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Tags         []string   `json:"tags"`
	Visibility   Visibility `json:"visibility"`
	PreviewImage string     `json:"previewImage"`
	Files        []string   `json:"files"`
	Stars        int        `json:"stars"`
	StarredBy    []string   `json:"starredBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type File struct {
	ID           string    `json:"id"`
	HubID        string    `json:"hubId"`
	UploaderID   string    `json:"uploaderId"`
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	FileSize     int64     `json:"fileSize"`
	FileType     string    `json:"fileType"`
	FileURL      string    `json:"fileURL"`
	StorageKey   string    `json:"-"`
	Version      int       `json:"version"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// FileVersion is an immutable snapshot of a superseded file upload.
type FileVersion struct {
	ID         string    `json:"id"`
	FileID     string    `json:"fileId"`
	Version    int       `json:"version"`
	FileSize   int64     `json:"fileSize"`
	FileURL    string    `json:"fileURL"`
	StorageKey string    `json:"-"`
	UploaderID string    `json:"uploaderId"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Comment struct {
	ID         string    `json:"id"`
	HubID      string    `json:"hubId"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar,omitempty"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

type NotificationKind string

const (
	NotificationStar    NotificationKind = "star"
	NotificationFollow  NotificationKind = "follow"
	NotificationComment NotificationKind = "comment"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	ActorID   string           `json:"actorId"`
	TargetID  string           `json:"targetId"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Activity is a synthesized history entry; it is derived from hub and file
// timestamps on read and never persisted.
type Activity struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	UserID    string         `json:"userId"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
