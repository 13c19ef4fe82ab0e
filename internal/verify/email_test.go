package verify

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestCreateAndVerifyChallenge(t *testing.T) {
	s := newTestStore(t)
	id, code, ttl, resend, err := s.CreateChallenge("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	if id == "" || len(code) != 6 {
		t.Fatalf("unexpected challenge id=%q code=%q", id, code)
	}
	if ttl <= 0 || resend <= 0 {
		t.Fatalf("expected positive ttl/resend, got %d/%d", ttl, resend)
	}
	if err := s.VerifyChallenge(id, "user-1", code); err != nil {
		t.Fatalf("verify challenge: %v", err)
	}
	// Challenge is consumed on success.
	if err := s.VerifyChallenge(id, "user-1", code); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected consumed challenge to be invalid, got %v", err)
	}
}

func TestVerifyChallengeWrongCode(t *testing.T) {
	s := newTestStore(t)
	id, _, _, _, err := s.CreateChallenge("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	if err := s.VerifyChallenge(id, "user-1", "000000"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
}

func TestVerifyChallengeWrongUser(t *testing.T) {
	s := newTestStore(t)
	id, code, _, _, err := s.CreateChallenge("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	if err := s.VerifyChallenge(id, "user-2", code); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected ErrChallengeInvalid, got %v", err)
	}
}

func TestCreateChallengeResendThrottled(t *testing.T) {
	s := newTestStore(t)
	if _, _, _, _, err := s.CreateChallenge("user-1", "a@example.com"); err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	if _, _, _, _, err := s.CreateChallenge("user-1", "a@example.com"); !errors.Is(err, ErrSendRateLimited) {
		t.Fatalf("expected resend throttle, got %v", err)
	}
}
