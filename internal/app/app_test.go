package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bytehub/internal/domain"
	"bytehub/internal/notify"
	"bytehub/internal/session"
	"bytehub/internal/storage"
	"bytehub/internal/store"
)

func newTestApp(t *testing.T) (*App, *store.MemoryStore, *storage.MemoryObjectStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	objects := storage.NewMemoryObjectStore()
	sessions, err := session.NewStore("test-secret", "", time.Hour, session.NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	a, err := New(Config{
		Store:    mem,
		Sessions: sessions,
		Objects:  objects,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, mem, objects
}

func signUp(t *testing.T, a *App, email string) domain.User {
	t.Helper()
	user, token, err := a.SignUp(SignUpInput{
		Email:    email,
		Password: "longenough1",
		Name:     "Test " + email,
	})
	if err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	if token == "" {
		t.Fatalf("expected session token")
	}
	return user
}

func createHub(t *testing.T, a *App, owner domain.User) domain.Hub {
	t.Helper()
	hub, err := a.CreateHub(owner, CreateHubInput{
		Title:       "Algorithms notes",
		Description: "Sorting and graphs",
		Tags:        []string{"cs", "algorithms"},
	})
	if err != nil {
		t.Fatalf("create hub: %v", err)
	}
	return hub
}

func TestSignUpAndSignIn(t *testing.T) {
	a, _, _ := newTestApp(t)
	user := signUp(t, a, "alice@example.com")
	if user.Settings.Theme != domain.ThemeSystem {
		t.Fatalf("default theme = %q", user.Settings.Theme)
	}
	if user.EmailVerified {
		t.Fatalf("new accounts must start unverified")
	}

	got, token, err := a.SignIn("alice@example.com", "longenough1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("signed in as %q, want %q", got.ID, user.ID)
	}
	resolved, ok := a.UserFromToken(token)
	if !ok || resolved.ID != user.ID {
		t.Fatalf("token did not resolve to the user")
	}

	if _, _, err := a.SignIn("alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	a, _, _ := newTestApp(t)
	signUp(t, a, "alice@example.com")
	_, _, err := a.SignUp(SignUpInput{Email: "alice@example.com", Password: "longenough1"})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestSignUpRejectsBadInput(t *testing.T) {
	a, _, _ := newTestApp(t)
	if _, _, err := a.SignUp(SignUpInput{Email: "not-an-email", Password: "longenough1"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid email to fail, got %v", err)
	}
	if _, _, err := a.SignUp(SignUpInput{Email: "a@example.com", Password: "short"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected short password to fail, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	a, _, _ := newTestApp(t)
	signUp(t, a, "alice@example.com")
	_, token, err := a.SignIn("alice@example.com", "longenough1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := a.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := a.UserFromToken(token); ok {
		t.Fatalf("expected revoked token to stop resolving")
	}
}

func TestToggleStarSequence(t *testing.T) {
	a, _, _ := newTestApp(t)
	owner := signUp(t, a, "owner@example.com")
	alice := signUp(t, a, "alice@example.com")
	hub := createHub(t, a, owner)

	res, err := a.ToggleStar(context.Background(), alice, hub.ID)
	if err != nil {
		t.Fatalf("star: %v", err)
	}
	if !res.IsStarred || res.Stars != 1 {
		t.Fatalf("star result = %+v", res)
	}

	starred, err := a.ListStarred(alice)
	if err != nil {
		t.Fatalf("list starred: %v", err)
	}
	if len(starred) != 1 || starred[0].ID != hub.ID {
		t.Fatalf("starred = %+v", starred)
	}

	res, err = a.ToggleStar(context.Background(), alice, hub.ID)
	if err != nil {
		t.Fatalf("unstar: %v", err)
	}
	if res.IsStarred || res.Stars != 0 {
		t.Fatalf("unstar result = %+v", res)
	}
}

func TestToggleFollowSelfRejected(t *testing.T) {
	a, mem, _ := newTestApp(t)
	alice := signUp(t, a, "alice@example.com")

	_, err := a.ToggleFollow(context.Background(), alice, alice.ID)
	if !errors.Is(err, ErrCannotFollowSelf) {
		t.Fatalf("expected ErrCannotFollowSelf, got %v", err)
	}
	got, _, _ := mem.GetUserByID(alice.ID)
	if len(got.Following) != 0 || len(got.Followers) != 0 {
		t.Fatalf("self-follow must not change state: %+v", got)
	}
}

func TestToggleFollowMissingTarget(t *testing.T) {
	a, _, _ := newTestApp(t)
	alice := signUp(t, a, "alice@example.com")
	if _, err := a.ToggleFollow(context.Background(), alice, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFollowsSkipsDanglingIDs(t *testing.T) {
	a, mem, _ := newTestApp(t)
	alice := signUp(t, a, "alice@example.com")
	bob := signUp(t, a, "bob@example.com")
	if _, err := a.ToggleFollow(context.Background(), alice, bob.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	// Inject a dangling follower id.
	target, _, _ := mem.GetUserByID(bob.ID)
	target.Followers = append(target.Followers, "deleted-user")
	if err := mem.SaveUser(target); err != nil {
		t.Fatalf("save user: %v", err)
	}

	followers, err := a.ListFollows(bob.ID, "followers")
	if err != nil {
		t.Fatalf("list followers: %v", err)
	}
	if len(followers) != 1 || followers[0].ID != alice.ID {
		t.Fatalf("followers = %+v", followers)
	}
}

func TestUpdateHubForbiddenForNonOwner(t *testing.T) {
	a, _, _ := newTestApp(t)
	owner := signUp(t, a, "owner@example.com")
	mallory := signUp(t, a, "mallory@example.com")
	hub := createHub(t, a, owner)

	title := "Taken over"
	if _, err := a.UpdateHub(mallory, hub.ID, UpdateHubInput{Title: &title}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	got, err := a.GetHub(hub.ID)
	if err != nil {
		t.Fatalf("get hub: %v", err)
	}
	if got.Title != hub.Title {
		t.Fatalf("hub changed by non-owner: %q", got.Title)
	}

	if err := a.DeleteHub(context.Background(), mallory, hub.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}
}

func TestUploadFileVersioning(t *testing.T) {
	a, _, objects := newTestApp(t)
	owner := signUp(t, a, "owner@example.com")
	hub := createHub(t, a, owner)

	first, err := a.UploadFile(context.Background(), owner, UploadFileInput{
		HubID:       hub.ID,
		FileName:    "notes.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Body:        strings.NewReader("aaaa"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("first version = %d", first.Version)
	}

	second, err := a.UploadFile(context.Background(), owner, UploadFileInput{
		HubID:       hub.ID,
		FileName:    "notes.pdf",
		ContentType: "application/pdf",
		Size:        5,
		Body:        strings.NewReader("bbbbb"),
	})
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("re-upload must keep the file id")
	}
	if second.Version != 2 {
		t.Fatalf("second version = %d", second.Version)
	}

	file, versions, err := a.GetFileWithVersions(first.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if file.Version != 2 || len(versions) != 1 || versions[0].Version != 1 {
		t.Fatalf("file=%+v versions=%+v", file, versions)
	}
	if objects.Len() != 2 {
		t.Fatalf("expected both blobs retained, got %d", objects.Len())
	}

	got, err := a.GetHub(hub.ID)
	if err != nil {
		t.Fatalf("get hub: %v", err)
	}
	if len(got.Files) != 1 || got.Files[0] != first.ID {
		t.Fatalf("hub files = %+v", got.Files)
	}
}

func TestUploadFileOwnerOnly(t *testing.T) {
	a, _, _ := newTestApp(t)
	owner := signUp(t, a, "owner@example.com")
	other := signUp(t, a, "other@example.com")
	hub := createHub(t, a, owner)

	_, err := a.UploadFile(context.Background(), other, UploadFileInput{
		HubID:    hub.ID,
		FileName: "notes.pdf",
		Size:     1,
		Body:     strings.NewReader("a"),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDeleteHubCascadeCleansMedia(t *testing.T) {
	a, _, objects := newTestApp(t)
	owner := signUp(t, a, "owner@example.com")
	hub := createHub(t, a, owner)
	file, err := a.UploadFile(context.Background(), owner, UploadFileInput{
		HubID:    hub.ID,
		FileName: "notes.pdf",
		Size:     4,
		Body:     strings.NewReader("aaaa"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := a.DeleteHub(context.Background(), owner, hub.ID); err != nil {
		t.Fatalf("delete hub: %v", err)
	}
	if _, err := a.GetHub(hub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected hub gone, got %v", err)
	}
	if _, _, err := a.GetFileWithVersions(file.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected file gone, got %v", err)
	}
	if objects.Len() != 0 {
		t.Fatalf("expected media cleaned up, %d objects left", objects.Len())
	}
}

func TestDeleteFilePermissions(t *testing.T) {
	a, _, _ := newTestApp(t)
	owner := signUp(t, a, "owner@example.com")
	stranger := signUp(t, a, "stranger@example.com")
	hub := createHub(t, a, owner)
	file, err := a.UploadFile(context.Background(), owner, UploadFileInput{
		HubID:    hub.ID,
		FileName: "notes.pdf",
		Size:     1,
		Body:     strings.NewReader("a"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := a.DeleteFile(context.Background(), stranger, file.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := a.DeleteFile(context.Background(), owner, file.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := a.DeleteFile(context.Background(), owner, file.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestHubHistory(t *testing.T) {
	a, _, _ := newTestApp(t)
	owner := signUp(t, a, "owner@example.com")
	hub := createHub(t, a, owner)
	if _, err := a.UploadFile(context.Background(), owner, UploadFileInput{
		HubID:    hub.ID,
		FileName: "notes.pdf",
		Size:     1,
		Body:     strings.NewReader("a"),
	}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	activities, err := a.HubHistory(hub.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	types := make(map[string]bool)
	for _, act := range activities {
		types[act.Type] = true
	}
	if !types["hub_created"] || !types["file_uploaded"] {
		t.Fatalf("history types = %v", types)
	}
	for i := 1; i < len(activities); i++ {
		if activities[i].Timestamp.After(activities[i-1].Timestamp) {
			t.Fatalf("history not sorted newest first")
		}
	}
}

func TestCommentsDenormalizeAuthor(t *testing.T) {
	a, _, _ := newTestApp(t)
	owner := signUp(t, a, "owner@example.com")
	alice := signUp(t, a, "alice@example.com")
	hub := createHub(t, a, owner)

	comment, err := a.AddComment(context.Background(), alice, hub.ID, "great notes")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if comment.UserName != alice.Name {
		t.Fatalf("comment author = %q", comment.UserName)
	}
	comments, err := a.ListComments(hub.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 1 || comments[0].Text != "great notes" {
		t.Fatalf("comments = %+v", comments)
	}
}

func TestSearch(t *testing.T) {
	a, _, _ := newTestApp(t)
	owner := signUp(t, a, "owner@example.com")
	createHub(t, a, owner)
	private, err := a.CreateHub(owner, CreateHubInput{
		Title:       "Secret algorithms",
		Description: "hidden",
		Visibility:  "private",
	})
	if err != nil {
		t.Fatalf("create private hub: %v", err)
	}

	results, err := a.Search("algorithms", "all", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results.Hubs) != 1 {
		t.Fatalf("expected only the public hub, got %+v", results.Hubs)
	}
	for _, h := range results.Hubs {
		if h.ID == private.ID {
			t.Fatalf("private hub leaked into search")
		}
	}

	if _, err := a.Search("", "all", 10); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected empty query to fail, got %v", err)
	}
}

func TestUpdateSettingsTheme(t *testing.T) {
	a, _, _ := newTestApp(t)
	alice := signUp(t, a, "alice@example.com")

	theme := "dark"
	settings, err := a.UpdateSettings(alice, alice.ID, UpdateSettingsInput{Theme: &theme})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if settings.Theme != domain.ThemeDark {
		t.Fatalf("theme = %q", settings.Theme)
	}

	bad := "neon"
	if _, err := a.UpdateSettings(alice, alice.ID, UpdateSettingsInput{Theme: &bad}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid theme to fail, got %v", err)
	}

	bob := signUp(t, a, "bob@example.com")
	if _, err := a.UpdateSettings(bob, alice.ID, UpdateSettingsInput{Theme: &theme}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGetProfileHidesEmailByDefault(t *testing.T) {
	a, _, _ := newTestApp(t)
	alice := signUp(t, a, "alice@example.com")
	bob := signUp(t, a, "bob@example.com")

	seen, err := a.GetProfile(bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if seen.Email != "" {
		t.Fatalf("email should be hidden, got %q", seen.Email)
	}

	own, err := a.GetProfile(alice.ID, alice.ID)
	if err != nil {
		t.Fatalf("get own profile: %v", err)
	}
	if own.Email != "alice@example.com" {
		t.Fatalf("own email = %q", own.Email)
	}
}

func TestDeliverNotificationHonorsPreferences(t *testing.T) {
	a, mem, _ := newTestApp(t)
	alice := signUp(t, a, "alice@example.com")
	bob := signUp(t, a, "bob@example.com")

	// Bob opts out of follow notifications.
	off := false
	if _, err := a.UpdateSettings(bob, bob.ID, UpdateSettingsInput{FollowNotifications: &off}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	err := a.DeliverNotification(context.Background(), followEvent(alice.ID, bob.ID))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	notifications, err := a.ListNotifications(domain.User{ID: bob.ID}, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notifications) != 0 {
		t.Fatalf("expected no notifications while opted out, got %d", len(notifications))
	}

	on := true
	current, _, _ := mem.GetUserByID(bob.ID)
	if _, err := a.UpdateSettings(current, bob.ID, UpdateSettingsInput{FollowNotifications: &on}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if err := a.DeliverNotification(context.Background(), followEvent(alice.ID, bob.ID)); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	notifications, err = a.ListNotifications(domain.User{ID: bob.ID}, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notifications) != 1 || notifications[0].Kind != domain.NotificationFollow {
		t.Fatalf("notifications = %+v", notifications)
	}
}

func followEvent(actorID, targetID string) notify.Event {
	return notify.Event{
		Kind:     string(domain.NotificationFollow),
		UserID:   targetID,
		ActorID:  actorID,
		TargetID: actorID,
		Title:    "New follower",
		Message:  "started following you",
	}
}
