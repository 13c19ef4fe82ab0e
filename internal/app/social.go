package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bytehub/internal/domain"
	"bytehub/internal/notify"
	"bytehub/internal/store"
	"bytehub/internal/util"
)

// StarResult is the outcome of a star toggle.
type StarResult struct {
	HubID     string `json:"hubId"`
	IsStarred bool   `json:"isStarred"`
	Stars     int    `json:"stars"`
}

// ToggleStar flips the caller's star on a hub. The membership set and the
// counter are updated atomically in the store.
func (a *App) ToggleStar(ctx context.Context, user domain.User, hubID string) (StarResult, error) {
	hubID = strings.TrimSpace(hubID)
	if hubID == "" {
		return StarResult{}, fmt.Errorf("%w: hubId is required", ErrInvalidArgument)
	}
	hub, isStarred, err := a.store.ToggleStar(hubID, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return StarResult{}, ErrNotFound
		}
		return StarResult{}, fmt.Errorf("toggle star: %w", err)
	}
	if isStarred && hub.OwnerID != user.ID {
		a.enqueueNotification(ctx, notify.Event{
			Kind:     string(domain.NotificationStar),
			UserID:   hub.OwnerID,
			ActorID:  user.ID,
			TargetID: hub.ID,
			Title:    "New star",
			Message:  fmt.Sprintf("%s starred %q", user.Name, hub.Title),
		})
	}
	return StarResult{HubID: hub.ID, IsStarred: isStarred, Stars: hub.Stars}, nil
}

// ListStarred returns the hubs the caller has starred, newest-updated first.
func (a *App) ListStarred(user domain.User) ([]domain.Hub, error) {
	hubs, err := a.store.ListHubsStarredBy(user.ID)
	if err != nil {
		return nil, fmt.Errorf("list starred: %w", err)
	}
	return hubs, nil
}

// FollowResult is the outcome of a follow toggle.
type FollowResult struct {
	IsFollowing    bool `json:"isFollowing"`
	FollowersCount int  `json:"followersCount"`
}

// ToggleFollow flips the follow edge from the caller to the target user.
// Both mirrored arrays commit in one store transaction.
func (a *App) ToggleFollow(ctx context.Context, user domain.User, targetUserID string) (FollowResult, error) {
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return FollowResult{}, fmt.Errorf("%w: targetUserId is required", ErrInvalidArgument)
	}
	if targetUserID == user.ID {
		return FollowResult{}, ErrCannotFollowSelf
	}
	isFollowing, followersCount, err := a.store.ToggleFollow(user.ID, targetUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return FollowResult{}, ErrNotFound
		}
		return FollowResult{}, fmt.Errorf("toggle follow: %w", err)
	}
	if isFollowing {
		a.enqueueNotification(ctx, notify.Event{
			Kind:     string(domain.NotificationFollow),
			UserID:   targetUserID,
			ActorID:  user.ID,
			TargetID: user.ID,
			Title:    "New follower",
			Message:  fmt.Sprintf("%s started following you", user.Name),
		})
	}
	return FollowResult{IsFollowing: isFollowing, FollowersCount: followersCount}, nil
}

// ListFollows resolves a user's followers or following list to public
// profiles, skipping ids that no longer resolve.
func (a *App) ListFollows(userID, listType string) ([]domain.User, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	var ids []string
	switch strings.TrimSpace(strings.ToLower(listType)) {
	case "followers":
		ids = user.Followers
	case "following":
		ids = user.Following
	default:
		return nil, fmt.Errorf("%w: type must be followers or following", ErrInvalidArgument)
	}
	users, err := a.store.GetUsersByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	res := make([]domain.User, 0, len(users))
	for _, u := range users {
		res = append(res, publicProfile(u))
	}
	return res, nil
}

// AddComment records an immutable comment on a hub, denormalizing the
// author's display fields.
func (a *App) AddComment(ctx context.Context, user domain.User, hubID, text string) (domain.Comment, error) {
	hubID = strings.TrimSpace(hubID)
	text = strings.TrimSpace(text)
	if hubID == "" || text == "" {
		return domain.Comment{}, fmt.Errorf("%w: hubId and text are required", ErrInvalidArgument)
	}
	hub, err := a.GetHub(hubID)
	if err != nil {
		return domain.Comment{}, err
	}
	comment := domain.Comment{
		ID:         util.NewID(),
		HubID:      hub.ID,
		UserID:     user.ID,
		UserName:   user.Name,
		UserAvatar: user.AvatarURL,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.SaveComment(comment); err != nil {
		return domain.Comment{}, fmt.Errorf("save comment: %w", err)
	}
	if hub.OwnerID != user.ID {
		a.enqueueNotification(ctx, notify.Event{
			Kind:     string(domain.NotificationComment),
			UserID:   hub.OwnerID,
			ActorID:  user.ID,
			TargetID: hub.ID,
			Title:    "New comment",
			Message:  fmt.Sprintf("%s commented on %q", user.Name, hub.Title),
		})
	}
	return comment, nil
}

// ListComments returns a hub's comments, newest first.
func (a *App) ListComments(hubID string) ([]domain.Comment, error) {
	hubID = strings.TrimSpace(hubID)
	if hubID == "" {
		return nil, fmt.Errorf("%w: hubId is required", ErrInvalidArgument)
	}
	comments, err := a.store.ListCommentsByHub(hubID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// ListNotifications returns the caller's notifications, newest first.
func (a *App) ListNotifications(user domain.User, limit int) ([]domain.Notification, error) {
	notifications, err := a.store.ListNotificationsByUser(user.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// DeliverNotification materializes a queued engagement event as a stored
// notification, honoring the target's notification preferences. It is wired
// as the notifier's consumer handler.
func (a *App) DeliverNotification(_ context.Context, ev notify.Event) error {
	target, ok, err := a.store.GetUserByID(ev.UserID)
	if err != nil {
		return fmt.Errorf("get target user: %w", err)
	}
	if !ok {
		return nil
	}
	switch domain.NotificationKind(ev.Kind) {
	case domain.NotificationFollow:
		if !target.Settings.FollowNotifications {
			return nil
		}
	case domain.NotificationStar, domain.NotificationComment:
		if !target.Settings.HubNotifications {
			return nil
		}
	default:
		return nil
	}
	return a.store.SaveNotification(domain.Notification{
		ID:        util.NewID(),
		UserID:    ev.UserID,
		Kind:      domain.NotificationKind(ev.Kind),
		Title:     ev.Title,
		Message:   ev.Message,
		ActorID:   ev.ActorID,
		TargetID:  ev.TargetID,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	})
}

func (a *App) enqueueNotification(ctx context.Context, ev notify.Event) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Enqueue(ctx, ev); err != nil {
		util.LoggerFromContext(ctx).Warn("notification_enqueue_failed",
			"kind", ev.Kind,
			"user_id", ev.UserID,
			"error", err.Error(),
		)
	}
}
