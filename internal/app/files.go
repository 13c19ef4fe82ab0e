package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bytehub/internal/domain"
	"bytehub/internal/storage"
	"bytehub/internal/store"
	"bytehub/internal/util"
)

const downloadURLExpiry = 15 * time.Minute

// UploadFileInput carries an incoming multipart upload.
type UploadFileInput struct {
	HubID       string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	Note        string
}

// UploadFile stores the blob and its metadata. Re-uploading a file name that
// already exists in the hub snapshots the current record as a version and
// bumps the counter.
func (a *App) UploadFile(ctx context.Context, user domain.User, in UploadFileInput) (domain.File, error) {
	hubID := strings.TrimSpace(in.HubID)
	name := filepath.Base(strings.TrimSpace(in.FileName))
	if hubID == "" || name == "" || name == "." {
		return domain.File{}, fmt.Errorf("%w: hubId and file are required", ErrInvalidArgument)
	}
	hub, err := a.GetHub(hubID)
	if err != nil {
		return domain.File{}, err
	}
	if hub.OwnerID != user.ID {
		return domain.File{}, ErrForbidden
	}

	key := storage.NewObjectKey(hubID, name)
	if err := a.objects.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return domain.File{}, fmt.Errorf("store media: %w", err)
	}
	now := time.Now().UTC()

	existing, found, err := a.store.FindFileByName(hubID, name)
	if err != nil {
		return domain.File{}, fmt.Errorf("find file: %w", err)
	}
	if found {
		snapshot := domain.FileVersion{
			ID:         uuid.NewString(),
			FileID:     existing.ID,
			Version:    existing.Version,
			FileSize:   existing.FileSize,
			FileURL:    existing.FileURL,
			StorageKey: existing.StorageKey,
			UploaderID: existing.UploaderID,
			Note:       strings.TrimSpace(in.Note),
			CreatedAt:  now,
		}
		existing.FileSize = in.Size
		existing.FileType = in.ContentType
		existing.FileURL = a.objects.PublicURL(key)
		existing.StorageKey = key
		existing.UploaderID = user.ID
		existing.Version++
		existing.UploadedAt = now
		if err := a.store.ReplaceFile(existing, snapshot); err != nil {
			return domain.File{}, fmt.Errorf("replace file: %w", err)
		}
		return existing, nil
	}

	file := domain.File{
		ID:           util.NewID(),
		HubID:        hubID,
		UploaderID:   user.ID,
		FileName:     name,
		OriginalName: name,
		FileSize:     in.Size,
		FileType:     in.ContentType,
		FileURL:      a.objects.PublicURL(key),
		StorageKey:   key,
		Version:      1,
		UploadedAt:   now,
	}
	if err := a.store.AddFileToHub(file); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.File{}, ErrNotFound
		}
		return domain.File{}, fmt.Errorf("save file: %w", err)
	}
	return file, nil
}

// ListFiles returns file metadata scoped to a hub or an uploader.
func (a *App) ListFiles(hubID, userID string, limit int) ([]domain.File, error) {
	hubID = strings.TrimSpace(hubID)
	userID = strings.TrimSpace(userID)
	switch {
	case hubID != "":
		files, err := a.store.ListFilesByHub(hubID, limit)
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		return files, nil
	case userID != "":
		files, err := a.store.ListFilesByUploader(userID, limit)
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		return files, nil
	default:
		return nil, fmt.Errorf("%w: hubId or userId is required", ErrInvalidArgument)
	}
}

// GetFileWithVersions returns a file and its version history, newest first.
func (a *App) GetFileWithVersions(fileID string) (domain.File, []domain.FileVersion, error) {
	file, ok, err := a.store.GetFile(strings.TrimSpace(fileID))
	if err != nil {
		return domain.File{}, nil, fmt.Errorf("get file: %w", err)
	}
	if !ok {
		return domain.File{}, nil, ErrNotFound
	}
	versions, err := a.store.ListFileVersions(file.ID)
	if err != nil {
		return domain.File{}, nil, fmt.Errorf("list versions: %w", err)
	}
	return file, versions, nil
}

// DeleteFile removes a file and its versions. Allowed for the uploader or
// the hub owner.
func (a *App) DeleteFile(ctx context.Context, user domain.User, fileID string) error {
	file, ok, err := a.store.GetFile(strings.TrimSpace(fileID))
	if err != nil {
		return fmt.Errorf("get file: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	if file.UploaderID != user.ID {
		hub, err := a.GetHub(file.HubID)
		if err != nil {
			return err
		}
		if hub.OwnerID != user.ID {
			return ErrForbidden
		}
	}
	deleted, versions, err := a.store.DeleteFileCascade(file.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete file: %w", err)
	}
	keys := make([]string, 0, len(versions)+1)
	if deleted.StorageKey != "" {
		keys = append(keys, deleted.StorageKey)
	}
	for _, v := range versions {
		if v.StorageKey != "" && v.StorageKey != deleted.StorageKey {
			keys = append(keys, v.StorageKey)
		}
	}
	for _, key := range keys {
		if err := a.objects.Delete(ctx, key); err != nil {
			util.LoggerFromContext(ctx).Warn("file_media_cleanup_incomplete",
				"file_id", file.ID,
				"storage_key", key,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// DownloadURL issues a short-lived presigned GET URL for the file blob.
func (a *App) DownloadURL(ctx context.Context, fileID string) (string, error) {
	file, ok, err := a.store.GetFile(strings.TrimSpace(fileID))
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}
	if !ok {
		return "", ErrNotFound
	}
	url, err := a.objects.PresignGet(ctx, file.StorageKey, downloadURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}
