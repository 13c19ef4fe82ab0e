package session

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionRoundTrip(t *testing.T) {
	store, err := NewStore("test-secret", "", time.Hour, NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := store.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := store.GetUserIDByToken(token)
	if err != nil || !ok {
		t.Fatalf("get user by token: ok=%v err=%v", ok, err)
	}
	if uid != "user-1" {
		t.Fatalf("uid = %q, want user-1", uid)
	}
}

func TestSessionRejectsTamperedToken(t *testing.T) {
	store, err := NewStore("test-secret", "", time.Hour, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	other, err := NewStore("other-secret", "", time.Hour, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := other.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, _ := store.GetUserIDByToken(token); ok {
		t.Fatalf("expected token signed with other secret to be rejected")
	}
}

func TestDeleteSessionRevokesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store, err := NewStore("test-secret", "", time.Hour, NewRedisTokenRevoker(client))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := store.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := store.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := store.GetUserIDByToken(token); ok {
		t.Fatalf("expected revoked token to be rejected")
	}
}

func TestNewStoreRequiresSecret(t *testing.T) {
	if _, err := NewStore("  ", "", time.Hour, nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
