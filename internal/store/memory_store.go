package store

import (
	"sort"
	"sync"
	"time"

	"bytehub/internal/domain"
)

// MemoryStore keeps documents in-process. It implements Store so tests and
// local runs can inject it in place of the Postgres-backed store. A single
// mutex section per operation gives the same atomicity as the SQL
// transactions in GormStore.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	email         map[string]string // email -> user ID
	hubs          map[string]domain.Hub
	files         map[string]domain.File
	versions      map[string][]domain.FileVersion // file ID -> versions
	comments      map[string][]domain.Comment     // hub ID -> comments
	notifications map[string][]domain.Notification
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		email:         make(map[string]string),
		hubs:          make(map[string]domain.Hub),
		files:         make(map[string]domain.File),
		versions:      make(map[string][]domain.FileVersion),
		comments:      make(map[string][]domain.Comment),
		notifications: make(map[string][]domain.Notification),
	}
}

// SaveUser creates or updates a profile.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = cloneUser(u)
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a profile by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return cloneUser(u), exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a profile by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return cloneUser(u), ok, nil
}

// GetUsersByIDs resolves ids to profiles, skipping dangling ids.
func (m *MemoryStore) GetUsersByIDs(ids []string) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			res = append(res, cloneUser(u))
		}
	}
	return res, nil
}

// ListUsers returns all profiles ordered by creation time.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, cloneUser(u))
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

// SaveHub creates or updates a hub.
func (m *MemoryStore) SaveHub(h domain.Hub) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hubs[h.ID] = cloneHub(h)
	return nil
}

// GetHub retrieves a hub.
func (m *MemoryStore) GetHub(id string) (domain.Hub, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hubs[id]
	return cloneHub(h), ok, nil
}

// ListHubs returns hubs matching the filter, newest first.
func (m *MemoryStore) ListHubs(filter HubFilter) ([]domain.Hub, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHubLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Hub, 0, len(m.hubs))
	for _, h := range m.hubs {
		if filter.OwnerID != "" && h.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Visibility != "" && h.Visibility != filter.Visibility {
			continue
		}
		res = append(res, cloneHub(h))
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// ListHubsStarredBy returns hubs starred by the user, newest-updated first.
func (m *MemoryStore) ListHubsStarredBy(userID string) ([]domain.Hub, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Hub, 0)
	for _, h := range m.hubs {
		if containsString(h.StarredBy, userID) {
			res = append(res, cloneHub(h))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].UpdatedAt.After(res[j].UpdatedAt)
	})
	return res, nil
}

// DeleteHubCascade removes the hub with its files, versions and comments.
func (m *MemoryStore) DeleteHubCascade(hubID string) ([]domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hubs[hubID]; !ok {
		return nil, ErrNotFound
	}
	var deleted []domain.File
	for id, f := range m.files {
		if f.HubID != hubID {
			continue
		}
		deleted = append(deleted, f)
		delete(m.files, id)
		delete(m.versions, id)
	}
	delete(m.comments, hubID)
	delete(m.hubs, hubID)
	return deleted, nil
}

// ToggleStar flips the user's star on the hub inside one mutex section.
func (m *MemoryStore) ToggleStar(hubID, userID string) (domain.Hub, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hub, ok := m.hubs[hubID]
	if !ok {
		return domain.Hub{}, false, ErrNotFound
	}
	var isStarred bool
	if containsString(hub.StarredBy, userID) {
		hub.StarredBy = removeString(hub.StarredBy, userID)
		if hub.Stars > 0 {
			hub.Stars--
		}
		isStarred = false
	} else {
		hub.StarredBy = append(cloneStrings(hub.StarredBy), userID)
		hub.Stars++
		isStarred = true
	}
	hub.UpdatedAt = time.Now().UTC()
	m.hubs[hubID] = hub
	return cloneHub(hub), isStarred, nil
}

// ToggleFollow flips the follow edge, updating both mirrored arrays.
func (m *MemoryStore) ToggleFollow(userID, targetUserID string) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	follower, ok := m.users[userID]
	if !ok {
		return false, 0, ErrNotFound
	}
	target, ok := m.users[targetUserID]
	if !ok {
		return false, 0, ErrNotFound
	}
	now := time.Now().UTC()
	var isFollowing bool
	if containsString(follower.Following, targetUserID) {
		follower.Following = removeString(follower.Following, targetUserID)
		target.Followers = removeString(target.Followers, userID)
		isFollowing = false
	} else {
		follower.Following = append(cloneStrings(follower.Following), targetUserID)
		target.Followers = append(cloneStrings(target.Followers), userID)
		isFollowing = true
	}
	follower.UpdatedAt = now
	target.UpdatedAt = now
	m.users[userID] = follower
	m.users[targetUserID] = target
	return isFollowing, len(target.Followers), nil
}

// AddFileToHub persists the file and appends its id to the hub's file list.
func (m *MemoryStore) AddFileToHub(f domain.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hub, ok := m.hubs[f.HubID]
	if !ok {
		return ErrNotFound
	}
	m.files[f.ID] = f
	if !containsString(hub.Files, f.ID) {
		hub.Files = append(cloneStrings(hub.Files), f.ID)
	}
	hub.UpdatedAt = time.Now().UTC()
	m.hubs[f.HubID] = hub
	return nil
}

// ReplaceFile snapshots the previous upload as a version and overwrites the
// file record.
func (m *MemoryStore) ReplaceFile(f domain.File, snapshot domain.FileVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[f.ID]; !ok {
		return ErrNotFound
	}
	m.versions[f.ID] = append(m.versions[f.ID], snapshot)
	m.files[f.ID] = f
	return nil
}

// GetFile retrieves a file record.
func (m *MemoryStore) GetFile(id string) (domain.File, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	return f, ok, nil
}

// FindFileByName looks up a hub's file by its stored name.
func (m *MemoryStore) FindFileByName(hubID, fileName string) (domain.File, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.files {
		if f.HubID == hubID && f.FileName == fileName {
			return f, true, nil
		}
	}
	return domain.File{}, false, nil
}

// ListFilesByHub returns a hub's files, newest first.
func (m *MemoryStore) ListFilesByHub(hubID string, limit int) ([]domain.File, error) {
	return m.listFiles(limit, func(f domain.File) bool { return f.HubID == hubID })
}

// ListFilesByUploader returns a user's uploads, newest first.
func (m *MemoryStore) ListFilesByUploader(userID string, limit int) ([]domain.File, error) {
	return m.listFiles(limit, func(f domain.File) bool { return f.UploaderID == userID })
}

func (m *MemoryStore) listFiles(limit int, match func(domain.File) bool) ([]domain.File, error) {
	if limit <= 0 {
		limit = defaultFileLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.File, 0)
	for _, f := range m.files {
		if match(f) {
			res = append(res, f)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].UploadedAt.After(res[j].UploadedAt)
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// ListFileVersions returns a file's version history, newest version first.
func (m *MemoryStore) ListFileVersions(fileID string) ([]domain.FileVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := append([]domain.FileVersion(nil), m.versions[fileID]...)
	sort.Slice(res, func(i, j int) bool {
		return res[i].Version > res[j].Version
	})
	return res, nil
}

// DeleteFileCascade removes the file with its versions and detaches it from
// the hub's file list.
func (m *MemoryStore) DeleteFileCascade(fileID string) (domain.File, []domain.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return domain.File{}, nil, ErrNotFound
	}
	versions := m.versions[fileID]
	delete(m.files, fileID)
	delete(m.versions, fileID)
	if hub, ok := m.hubs[f.HubID]; ok {
		hub.Files = removeString(hub.Files, fileID)
		hub.UpdatedAt = time.Now().UTC()
		m.hubs[f.HubID] = hub
	}
	return f, versions, nil
}

// SaveComment records a comment.
func (m *MemoryStore) SaveComment(c domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.HubID] = append(m.comments[c.HubID], c)
	return nil
}

// ListCommentsByHub returns a hub's comments, newest first.
func (m *MemoryStore) ListCommentsByHub(hubID string) ([]domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := append([]domain.Comment(nil), m.comments[hubID]...)
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// SaveNotification records a notification.
func (m *MemoryStore) SaveNotification(n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.UserID] = append(m.notifications[n.UserID], n)
	return nil
}

// ListNotificationsByUser returns a user's notifications, newest first.
func (m *MemoryStore) ListNotificationsByUser(userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultFileLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := append([]domain.Notification(nil), m.notifications[userID]...)
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneUser(u domain.User) domain.User {
	u.Followers = cloneStrings(u.Followers)
	u.Following = cloneStrings(u.Following)
	if u.SocialLinks != nil {
		links := make(map[string]string, len(u.SocialLinks))
		for k, v := range u.SocialLinks {
			links[k] = v
		}
		u.SocialLinks = links
	}
	return u
}

func cloneHub(h domain.Hub) domain.Hub {
	h.Tags = cloneStrings(h.Tags)
	h.Files = cloneStrings(h.Files)
	h.StarredBy = cloneStrings(h.StarredBy)
	return h
}
