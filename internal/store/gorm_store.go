package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bytehub/internal/domain"
)

const (
	defaultHubLimit  = 20
	defaultFileLimit = 50
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&HubModel{},
		&FileModel{},
		&FileVersionModel{},
		&CommentModel{},
		&NotificationModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser creates or updates a profile.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "password_hash", "name", "username", "bio", "institution",
			"website", "avatar_url", "social_links", "followers", "following",
			"settings", "email_verified", "updated_at",
		}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a profile by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a profile by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUsersByIDs resolves ids to profiles, skipping ids that no longer exist.
func (s *GormStore) GetUsersByIDs(ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	var models []UserModel
	if err := s.db.Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.User, len(models))
	for _, m := range models {
		byID[m.ID] = userFromModel(m)
	}
	res := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

// ListUsers returns all profiles ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// SaveHub creates or updates a hub.
func (s *GormStore) SaveHub(h domain.Hub) error {
	model := hubToModel(h)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_id", "title", "description", "tags", "visibility",
			"preview_image", "files", "stars", "starred_by", "updated_at",
		}),
	}).Create(&model).Error
}

// GetHub retrieves a hub.
func (s *GormStore) GetHub(id string) (domain.Hub, bool, error) {
	var model HubModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Hub{}, false, nil
		}
		return domain.Hub{}, false, err
	}
	return hubFromModel(model), true, nil
}

// ListHubs returns hubs matching the filter, newest first.
func (s *GormStore) ListHubs(filter HubFilter) ([]domain.Hub, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHubLimit
	}
	tx := s.db.Order("created_at DESC").Limit(limit)
	if filter.OwnerID != "" {
		tx = tx.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Visibility != "" {
		tx = tx.Where("visibility = ?", string(filter.Visibility))
	}
	var models []HubModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Hub, 0, len(models))
	for _, m := range models {
		res = append(res, hubFromModel(m))
	}
	return res, nil
}

// ListHubsStarredBy returns hubs starred by the user, newest-updated first.
func (s *GormStore) ListHubsStarredBy(userID string) ([]domain.Hub, error) {
	var models []HubModel
	if err := s.db.
		Where("starred_by @> ?", fmt.Sprintf(`["%s"]`, userID)).
		Order("updated_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Hub, 0, len(models))
	for _, m := range models {
		res = append(res, hubFromModel(m))
	}
	return res, nil
}

// DeleteHubCascade removes the hub, its files, versions and comments in one
// transaction. Returns the deleted files for media cleanup.
func (s *GormStore) DeleteHubCascade(hubID string) ([]domain.File, error) {
	var deleted []domain.File
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var hub HubModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&hub, "id = ?", hubID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var files []FileModel
		if err := tx.Where("hub_id = ?", hubID).Find(&files).Error; err != nil {
			return err
		}
		for _, f := range files {
			if err := tx.Delete(&FileVersionModel{}, "file_id = ?", f.ID).Error; err != nil {
				return err
			}
			deleted = append(deleted, fileFromModel(f))
		}
		if err := tx.Delete(&FileModel{}, "hub_id = ?", hubID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CommentModel{}, "hub_id = ?", hubID).Error; err != nil {
			return err
		}
		return tx.Delete(&HubModel{}, "id = ?", hubID).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ToggleStar flips the user's star on the hub under a row lock so the counter
// and membership set cannot drift apart.
func (s *GormStore) ToggleStar(hubID, userID string) (domain.Hub, bool, error) {
	var (
		hub       domain.Hub
		isStarred bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model HubModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", hubID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		hub = hubFromModel(model)
		if containsString(hub.StarredBy, userID) {
			hub.StarredBy = removeString(hub.StarredBy, userID)
			if hub.Stars > 0 {
				hub.Stars--
			}
			isStarred = false
		} else {
			hub.StarredBy = append(hub.StarredBy, userID)
			hub.Stars++
			isStarred = true
		}
		hub.UpdatedAt = time.Now().UTC()
		return tx.Model(&HubModel{}).Where("id = ?", hubID).Updates(map[string]any{
			"stars":      hub.Stars,
			"starred_by": toJSON(hub.StarredBy),
			"updated_at": hub.UpdatedAt,
		}).Error
	})
	if err != nil {
		return domain.Hub{}, false, err
	}
	return hub, isStarred, nil
}

// ToggleFollow flips the follow edge between the two users, committing both
// mirrored array updates in one transaction. Rows are locked in id order.
func (s *GormStore) ToggleFollow(userID, targetUserID string) (bool, int, error) {
	var (
		isFollowing    bool
		followersCount int
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		first, second := userID, targetUserID
		if second < first {
			first, second = second, first
		}
		models := make(map[string]*UserModel, 2)
		for _, id := range []string{first, second} {
			var m UserModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&m, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			models[id] = &m
		}
		follower := userFromModel(*models[userID])
		target := userFromModel(*models[targetUserID])
		now := time.Now().UTC()
		if containsString(follower.Following, targetUserID) {
			follower.Following = removeString(follower.Following, targetUserID)
			target.Followers = removeString(target.Followers, userID)
			isFollowing = false
		} else {
			follower.Following = append(follower.Following, targetUserID)
			target.Followers = append(target.Followers, userID)
			isFollowing = true
		}
		followersCount = len(target.Followers)
		if err := tx.Model(&UserModel{}).Where("id = ?", userID).Updates(map[string]any{
			"following":  toJSON(follower.Following),
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&UserModel{}).Where("id = ?", targetUserID).Updates(map[string]any{
			"followers":  toJSON(target.Followers),
			"updated_at": now,
		}).Error
	})
	if err != nil {
		return false, 0, err
	}
	return isFollowing, followersCount, nil
}

// AddFileToHub persists the file record and appends its id to the hub's file
// list in one transaction.
func (s *GormStore) AddFileToHub(f domain.File) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var hub HubModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&hub, "id = ?", f.HubID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		model := fileToModel(f)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		files := stringsFromJSON(hub.Files)
		if !containsString(files, f.ID) {
			files = append(files, f.ID)
		}
		return tx.Model(&HubModel{}).Where("id = ?", f.HubID).Updates(map[string]any{
			"files":      toJSON(files),
			"updated_at": time.Now().UTC(),
		}).Error
	})
}

// ReplaceFile snapshots the previous upload as a version and overwrites the
// file record, in one transaction.
func (s *GormStore) ReplaceFile(f domain.File, snapshot domain.FileVersion) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		version := versionToModel(snapshot)
		if err := tx.Create(&version).Error; err != nil {
			return err
		}
		model := fileToModel(f)
		res := tx.Model(&FileModel{}).Where("id = ?", f.ID).Updates(map[string]any{
			"file_size":   model.FileSize,
			"file_type":   model.FileType,
			"file_url":    model.FileURL,
			"storage_key": model.StorageKey,
			"uploader_id": model.UploaderID,
			"version":     model.Version,
			"uploaded_at": model.UploadedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetFile retrieves a file record.
func (s *GormStore) GetFile(id string) (domain.File, bool, error) {
	var model FileModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.File{}, false, nil
		}
		return domain.File{}, false, err
	}
	return fileFromModel(model), true, nil
}

// FindFileByName looks up a hub's file by its stored name.
func (s *GormStore) FindFileByName(hubID, fileName string) (domain.File, bool, error) {
	var model FileModel
	if err := s.db.Where("hub_id = ? AND file_name = ?", hubID, fileName).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.File{}, false, nil
		}
		return domain.File{}, false, err
	}
	return fileFromModel(model), true, nil
}

// ListFilesByHub returns a hub's files, newest first.
func (s *GormStore) ListFilesByHub(hubID string, limit int) ([]domain.File, error) {
	return s.listFiles(limit, "hub_id = ?", hubID)
}

// ListFilesByUploader returns a user's uploads, newest first.
func (s *GormStore) ListFilesByUploader(userID string, limit int) ([]domain.File, error) {
	return s.listFiles(limit, "uploader_id = ?", userID)
}

func (s *GormStore) listFiles(limit int, cond string, args ...any) ([]domain.File, error) {
	if limit <= 0 {
		limit = defaultFileLimit
	}
	var models []FileModel
	if err := s.db.Where(cond, args...).
		Order("uploaded_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.File, 0, len(models))
	for _, m := range models {
		res = append(res, fileFromModel(m))
	}
	return res, nil
}

// ListFileVersions returns a file's version history, newest version first.
func (s *GormStore) ListFileVersions(fileID string) ([]domain.FileVersion, error) {
	var models []FileVersionModel
	if err := s.db.Where("file_id = ?", fileID).
		Order("version DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.FileVersion, 0, len(models))
	for _, m := range models {
		res = append(res, versionFromModel(m))
	}
	return res, nil
}

// DeleteFileCascade removes the file and its versions and detaches the id
// from the hub's file list, in one transaction.
func (s *GormStore) DeleteFileCascade(fileID string) (domain.File, []domain.FileVersion, error) {
	var (
		file     domain.File
		versions []domain.FileVersion
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model FileModel
		if err := tx.First(&model, "id = ?", fileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		file = fileFromModel(model)

		var versionModels []FileVersionModel
		if err := tx.Where("file_id = ?", fileID).Find(&versionModels).Error; err != nil {
			return err
		}
		for _, v := range versionModels {
			versions = append(versions, versionFromModel(v))
		}
		if err := tx.Delete(&FileVersionModel{}, "file_id = ?", fileID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&FileModel{}, "id = ?", fileID).Error; err != nil {
			return err
		}

		var hub HubModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&hub, "id = ?", file.HubID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		files := removeString(stringsFromJSON(hub.Files), fileID)
		return tx.Model(&HubModel{}).Where("id = ?", file.HubID).Updates(map[string]any{
			"files":      toJSON(files),
			"updated_at": time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return domain.File{}, nil, err
	}
	return file, versions, nil
}

// SaveComment records a comment.
func (s *GormStore) SaveComment(c domain.Comment) error {
	model := commentToModel(c)
	return s.db.Create(&model).Error
}

// ListCommentsByHub returns a hub's comments, newest first.
func (s *GormStore) ListCommentsByHub(hubID string) ([]domain.Comment, error) {
	var models []CommentModel
	if err := s.db.Where("hub_id = ?", hubID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Comment, 0, len(models))
	for _, m := range models {
		res = append(res, commentFromModel(m))
	}
	return res, nil
}

// SaveNotification records a notification.
func (s *GormStore) SaveNotification(n domain.Notification) error {
	model := notificationToModel(n)
	return s.db.Create(&model).Error
}

// ListNotificationsByUser returns a user's notifications, newest first.
func (s *GormStore) ListNotificationsByUser(userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultFileLimit
	}
	var models []NotificationModel
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Notification, 0, len(models))
	for _, m := range models {
		res = append(res, notificationFromModel(m))
	}
	return res, nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
