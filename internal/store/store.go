package store

import (
	"errors"

	"bytehub/internal/domain"
)

// ErrNotFound is returned by write operations whose target document is gone.
var ErrNotFound = errors.New("record not found")

// HubFilter narrows ListHubs. Zero values mean "no constraint"; Limit <= 0
// falls back to the default page size.
type HubFilter struct {
	OwnerID    string
	Visibility domain.Visibility
	Limit      int
}

// Store defines persistence operations for profiles, hubs, files, comments
// and notifications.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	GetUsersByIDs(ids []string) ([]domain.User, error)
	ListUsers() ([]domain.User, error)

	// hubs
	SaveHub(domain.Hub) error
	GetHub(id string) (domain.Hub, bool, error)
	ListHubs(filter HubFilter) ([]domain.Hub, error)
	ListHubsStarredBy(userID string) ([]domain.Hub, error)
	// DeleteHubCascade removes the hub with its files, versions and comments
	// in one transaction and returns the deleted file records so callers can
	// clean up media objects.
	DeleteHubCascade(hubID string) ([]domain.File, error)
	// ToggleStar flips the caller's membership in starredBy atomically and
	// returns the updated hub plus whether it is now starred.
	ToggleStar(hubID, userID string) (domain.Hub, bool, error)
	// ToggleFollow flips the follow edge atomically, updating both mirrored
	// arrays, and returns the new state and the target's follower count.
	ToggleFollow(userID, targetUserID string) (bool, int, error)

	// files
	AddFileToHub(f domain.File) error
	ReplaceFile(f domain.File, snapshot domain.FileVersion) error
	GetFile(id string) (domain.File, bool, error)
	FindFileByName(hubID, fileName string) (domain.File, bool, error)
	ListFilesByHub(hubID string, limit int) ([]domain.File, error)
	ListFilesByUploader(userID string, limit int) ([]domain.File, error)
	ListFileVersions(fileID string) ([]domain.FileVersion, error)
	// DeleteFileCascade removes the file and its versions in one transaction,
	// detaches the id from the hub's file list, and returns the deleted
	// records for media cleanup.
	DeleteFileCascade(fileID string) (domain.File, []domain.FileVersion, error)

	// comments
	SaveComment(domain.Comment) error
	ListCommentsByHub(hubID string) ([]domain.Comment, error)

	// notifications
	SaveNotification(domain.Notification) error
	ListNotificationsByUser(userID string, limit int) ([]domain.Notification, error)
}
