package store

import (
	"errors"
	"testing"
	"time"

	"bytehub/internal/domain"
)

func seedUser(t *testing.T, s *MemoryStore, id string) domain.User {
	t.Helper()
	u := domain.User{
		ID:        id,
		Email:     id + "@example.com",
		Name:      "User " + id,
		Followers: []string{},
		Following: []string{},
		Settings:  domain.DefaultSettings(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return u
}

func seedHub(t *testing.T, s *MemoryStore, id, ownerID string) domain.Hub {
	t.Helper()
	h := domain.Hub{
		ID:         id,
		OwnerID:    ownerID,
		Title:      "Hub " + id,
		Visibility: domain.VisibilityPublic,
		Tags:       []string{},
		Files:      []string{},
		StarredBy:  []string{},
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.SaveHub(h); err != nil {
		t.Fatalf("save hub: %v", err)
	}
	return h
}

func TestToggleStarKeepsCounterAndSetInSync(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "owner")
	seedUser(t, s, "alice")
	seedHub(t, s, "hub-1", "owner")

	for i := 0; i < 5; i++ {
		hub, isStarred, err := s.ToggleStar("hub-1", "alice")
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		wantStarred := i%2 == 0
		if isStarred != wantStarred {
			t.Fatalf("toggle %d: isStarred = %v, want %v", i, isStarred, wantStarred)
		}
		if hub.Stars != len(hub.StarredBy) {
			t.Fatalf("toggle %d: stars=%d len(starredBy)=%d", i, hub.Stars, len(hub.StarredBy))
		}
		if wantStarred != containsString(hub.StarredBy, "alice") {
			t.Fatalf("toggle %d: membership mismatch", i)
		}
	}
}

func TestToggleStarClampsAtZero(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "alice")
	h := seedHub(t, s, "hub-1", "owner")
	// Corrupted input: membership without a matching counter.
	h.Stars = 0
	h.StarredBy = []string{"alice"}
	if err := s.SaveHub(h); err != nil {
		t.Fatalf("save hub: %v", err)
	}

	hub, isStarred, err := s.ToggleStar("hub-1", "alice")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if isStarred {
		t.Fatalf("expected unstar")
	}
	if hub.Stars != 0 {
		t.Fatalf("stars = %d, want 0", hub.Stars)
	}
	if containsString(hub.StarredBy, "alice") {
		t.Fatalf("expected alice removed from starredBy")
	}
}

func TestToggleStarMissingHub(t *testing.T) {
	s := NewMemoryStore()
	if _, _, err := s.ToggleStar("missing", "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleFollowMirrorsBothSides(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")

	isFollowing, count, err := s.ToggleFollow("alice", "bob")
	if err != nil {
		t.Fatalf("toggle follow: %v", err)
	}
	if !isFollowing || count != 1 {
		t.Fatalf("got isFollowing=%v count=%d, want true/1", isFollowing, count)
	}
	alice, _, _ := s.GetUserByID("alice")
	bob, _, _ := s.GetUserByID("bob")
	if !containsString(alice.Following, "bob") || !containsString(bob.Followers, "alice") {
		t.Fatalf("mirror arrays out of sync after follow")
	}

	isFollowing, count, err = s.ToggleFollow("alice", "bob")
	if err != nil {
		t.Fatalf("toggle unfollow: %v", err)
	}
	if isFollowing || count != 0 {
		t.Fatalf("got isFollowing=%v count=%d, want false/0", isFollowing, count)
	}
	alice, _, _ = s.GetUserByID("alice")
	bob, _, _ = s.GetUserByID("bob")
	if containsString(alice.Following, "bob") || containsString(bob.Followers, "alice") {
		t.Fatalf("mirror arrays out of sync after unfollow")
	}
}

func TestToggleFollowMissingTarget(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "alice")
	if _, _, err := s.ToggleFollow("alice", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	alice, _, _ := s.GetUserByID("alice")
	if len(alice.Following) != 0 {
		t.Fatalf("expected no state change on failed toggle")
	}
}

func TestDeleteHubCascadeRemovesFilesAndVersions(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "owner")
	seedHub(t, s, "hub-1", "owner")
	f := domain.File{
		ID:         "file-1",
		HubID:      "hub-1",
		UploaderID: "owner",
		FileName:   "notes.pdf",
		Version:    1,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.AddFileToHub(f); err != nil {
		t.Fatalf("add file: %v", err)
	}
	f.Version = 2
	if err := s.ReplaceFile(f, domain.FileVersion{ID: "ver-1", FileID: "file-1", Version: 1}); err != nil {
		t.Fatalf("replace file: %v", err)
	}

	deleted, err := s.DeleteHubCascade("hub-1")
	if err != nil {
		t.Fatalf("delete cascade: %v", err)
	}
	if len(deleted) != 1 || deleted[0].ID != "file-1" {
		t.Fatalf("deleted files = %+v", deleted)
	}
	if _, ok, _ := s.GetHub("hub-1"); ok {
		t.Fatalf("hub should be gone")
	}
	if _, ok, _ := s.GetFile("file-1"); ok {
		t.Fatalf("file should be gone")
	}
	if versions, _ := s.ListFileVersions("file-1"); len(versions) != 0 {
		t.Fatalf("versions should be gone, got %d", len(versions))
	}
}

func TestDeleteFileCascadeDetachesFromHub(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "owner")
	seedHub(t, s, "hub-1", "owner")
	f := domain.File{ID: "file-1", HubID: "hub-1", UploaderID: "owner", FileName: "a.txt", Version: 1}
	if err := s.AddFileToHub(f); err != nil {
		t.Fatalf("add file: %v", err)
	}

	got, _, err := s.DeleteFileCascade("file-1")
	if err != nil {
		t.Fatalf("delete file: %v", err)
	}
	if got.ID != "file-1" {
		t.Fatalf("deleted file = %+v", got)
	}
	hub, _, _ := s.GetHub("hub-1")
	if containsString(hub.Files, "file-1") {
		t.Fatalf("file id should be detached from hub")
	}
}

func TestListHubsFilters(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")
	h1 := seedHub(t, s, "hub-1", "alice")
	h2 := seedHub(t, s, "hub-2", "bob")
	h2.Visibility = domain.VisibilityPrivate
	if err := s.SaveHub(h2); err != nil {
		t.Fatalf("save hub: %v", err)
	}

	public, err := s.ListHubs(HubFilter{Visibility: domain.VisibilityPublic})
	if err != nil {
		t.Fatalf("list public: %v", err)
	}
	if len(public) != 1 || public[0].ID != h1.ID {
		t.Fatalf("public hubs = %+v", public)
	}

	byOwner, err := s.ListHubs(HubFilter{OwnerID: "bob"})
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(byOwner) != 1 || byOwner[0].ID != h2.ID {
		t.Fatalf("owner hubs = %+v", byOwner)
	}
}
