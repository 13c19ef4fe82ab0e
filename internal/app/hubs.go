package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bytehub/internal/domain"
	"bytehub/internal/store"
	"bytehub/internal/util"
)

const historyLimit = 50

// CreateHubInput carries the hub creation fields.
type CreateHubInput struct {
	Title        string
	Description  string
	Tags         []string
	Visibility   string
	PreviewImage string
}

// CreateHub creates a hub owned by the caller.
func (a *App) CreateHub(owner domain.User, in CreateHubInput) (domain.Hub, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return domain.Hub{}, fmt.Errorf("%w: title and description are required", ErrInvalidArgument)
	}
	visibility, err := parseVisibility(in.Visibility, domain.VisibilityPublic)
	if err != nil {
		return domain.Hub{}, err
	}
	now := time.Now().UTC()
	hub := domain.Hub{
		ID:           util.NewID(),
		OwnerID:      owner.ID,
		Title:        title,
		Description:  description,
		Tags:         normalizeTags(in.Tags),
		Visibility:   visibility,
		PreviewImage: strings.TrimSpace(in.PreviewImage),
		Files:        []string{},
		Stars:        0,
		StarredBy:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveHub(hub); err != nil {
		return domain.Hub{}, fmt.Errorf("save hub: %w", err)
	}
	return hub, nil
}

// GetHub retrieves a hub by id.
func (a *App) GetHub(id string) (domain.Hub, error) {
	hub, ok, err := a.store.GetHub(id)
	if err != nil {
		return domain.Hub{}, fmt.Errorf("get hub: %w", err)
	}
	if !ok {
		return domain.Hub{}, ErrNotFound
	}
	return hub, nil
}

// ListHubsParams narrows the hub listing. Search and Tags are applied
// in-memory over the limited result page.
type ListHubsParams struct {
	UserID     string
	Visibility string
	Search     string
	Tags       []string
	Limit      int
}

// ListHubs returns hubs per the filter rules: an explicit userId wins,
// otherwise only public hubs are listed.
func (a *App) ListHubs(p ListHubsParams) ([]domain.Hub, error) {
	filter := store.HubFilter{Limit: p.Limit}
	switch {
	case p.UserID != "":
		filter.OwnerID = p.UserID
		if p.Visibility != "" {
			visibility, err := parseVisibility(p.Visibility, "")
			if err != nil {
				return nil, err
			}
			filter.Visibility = visibility
		}
	case p.Visibility != "":
		visibility, err := parseVisibility(p.Visibility, "")
		if err != nil {
			return nil, err
		}
		filter.Visibility = visibility
	default:
		filter.Visibility = domain.VisibilityPublic
	}
	hubs, err := a.store.ListHubs(filter)
	if err != nil {
		return nil, fmt.Errorf("list hubs: %w", err)
	}
	if search := strings.ToLower(strings.TrimSpace(p.Search)); search != "" {
		filtered := hubs[:0]
		for _, h := range hubs {
			if strings.Contains(strings.ToLower(h.Title), search) ||
				strings.Contains(strings.ToLower(h.Description), search) {
				filtered = append(filtered, h)
			}
		}
		hubs = filtered
	}
	if tags := normalizeTags(p.Tags); len(tags) > 0 {
		filtered := hubs[:0]
		for _, h := range hubs {
			if hasAnyTag(h.Tags, tags) {
				filtered = append(filtered, h)
			}
		}
		hubs = filtered
	}
	return hubs, nil
}

// UpdateHubInput patches hub fields; nil pointers leave fields unchanged.
type UpdateHubInput struct {
	Title        *string
	Description  *string
	Tags         []string
	Visibility   *string
	PreviewImage *string
}

// UpdateHub applies a patch to a hub the caller owns.
func (a *App) UpdateHub(user domain.User, hubID string, in UpdateHubInput) (domain.Hub, error) {
	hub, err := a.GetHub(hubID)
	if err != nil {
		return domain.Hub{}, err
	}
	if hub.OwnerID != user.ID {
		return domain.Hub{}, ErrForbidden
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return domain.Hub{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidArgument)
		}
		hub.Title = title
	}
	if in.Description != nil {
		hub.Description = strings.TrimSpace(*in.Description)
	}
	if in.Tags != nil {
		hub.Tags = normalizeTags(in.Tags)
	}
	if in.Visibility != nil {
		visibility, err := parseVisibility(*in.Visibility, "")
		if err != nil {
			return domain.Hub{}, err
		}
		hub.Visibility = visibility
	}
	if in.PreviewImage != nil {
		hub.PreviewImage = strings.TrimSpace(*in.PreviewImage)
	}
	hub.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveHub(hub); err != nil {
		return domain.Hub{}, fmt.Errorf("save hub: %w", err)
	}
	return hub, nil
}

// DeleteHub removes a hub the caller owns together with its files, versions
// and comments. Media objects are deleted best-effort after the store commit.
func (a *App) DeleteHub(ctx context.Context, user domain.User, hubID string) error {
	hub, err := a.GetHub(hubID)
	if err != nil {
		return err
	}
	if hub.OwnerID != user.ID {
		return ErrForbidden
	}
	deleted, err := a.store.DeleteHubCascade(hubID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete hub: %w", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, f := range deleted {
		key := f.StorageKey
		if key == "" {
			continue
		}
		g.Go(func() error {
			return a.objects.Delete(gctx, key)
		})
	}
	if err := g.Wait(); err != nil {
		util.LoggerFromContext(ctx).Warn("hub_media_cleanup_incomplete",
			"hub_id", hubID,
			"error", err.Error(),
		)
	}
	return nil
}

// HubHistory synthesizes the hub's activity timeline from stored timestamps,
// newest first.
func (a *App) HubHistory(hubID string) ([]domain.Activity, error) {
	hub, err := a.GetHub(hubID)
	if err != nil {
		return nil, err
	}
	activities := []domain.Activity{
		{
			ID:        hub.ID + "-created",
			Type:      "hub_created",
			Message:   fmt.Sprintf("Hub %q was created", hub.Title),
			UserID:    hub.OwnerID,
			Timestamp: hub.CreatedAt,
		},
	}
	if hub.UpdatedAt.After(hub.CreatedAt) {
		activities = append(activities, domain.Activity{
			ID:        hub.ID + "-updated",
			Type:      "hub_updated",
			Message:   fmt.Sprintf("Hub %q was updated", hub.Title),
			UserID:    hub.OwnerID,
			Timestamp: hub.UpdatedAt,
		})
	}
	files, err := a.store.ListFilesByHub(hubID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	for _, f := range files {
		activities = append(activities, domain.Activity{
			ID:        f.ID + "-uploaded",
			Type:      "file_uploaded",
			Message:   fmt.Sprintf("File %q was uploaded", f.OriginalName),
			UserID:    f.UploaderID,
			Timestamp: f.UploadedAt,
			Metadata: map[string]any{
				"fileId":   f.ID,
				"fileName": f.FileName,
				"version":  f.Version,
			},
		})
	}
	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if len(activities) > historyLimit {
		activities = activities[:historyLimit]
	}
	return activities, nil
}

func parseVisibility(raw string, fallback domain.Visibility) (domain.Visibility, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "":
		if fallback != "" {
			return fallback, nil
		}
		return "", fmt.Errorf("%w: visibility is required", ErrInvalidArgument)
	case string(domain.VisibilityPublic):
		return domain.VisibilityPublic, nil
	case string(domain.VisibilityPrivate):
		return domain.VisibilityPrivate, nil
	default:
		return "", fmt.Errorf("%w: visibility must be public or private", ErrInvalidArgument)
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func hasAnyTag(hubTags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range hubTags {
			if t == w {
				return true
			}
		}
	}
	return false
}
