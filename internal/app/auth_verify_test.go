package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"bytehub/internal/session"
	"bytehub/internal/storage"
	"bytehub/internal/store"
	"bytehub/internal/verify"
)

type recordingMailer struct {
	emails []string
	codes  []string
	err    error
}

func (m *recordingMailer) SendVerificationCode(_ context.Context, email, code string) error {
	if m.err != nil {
		return m.err
	}
	m.emails = append(m.emails, email)
	m.codes = append(m.codes, code)
	return nil
}

func newVerifyTestApp(t *testing.T, mailer Mailer) (*App, *store.MemoryStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	mem := store.NewMemoryStore()
	sessions, err := session.NewStore("test-secret", "", time.Hour, session.NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	a, err := New(Config{
		Store:    mem,
		Sessions: sessions,
		Objects:  storage.NewMemoryObjectStore(),
		Verifier: verify.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		Mailer:   mailer,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, mem
}

func TestSendEmailVerificationDeliversCode(t *testing.T) {
	mailer := &recordingMailer{}
	a, mem := newVerifyTestApp(t, mailer)
	user := signUp(t, a, "alice@example.com")

	challenge, err := a.SendEmailVerification(context.Background(), user)
	if err != nil {
		t.Fatalf("send verification: %v", err)
	}
	if challenge.ChallengeID == "" {
		t.Fatalf("expected a challenge id")
	}
	if len(mailer.emails) != 1 || mailer.emails[0] != "alice@example.com" {
		t.Fatalf("mailed addresses = %v", mailer.emails)
	}
	if len(mailer.codes) != 1 || len(mailer.codes[0]) != 6 {
		t.Fatalf("mailed codes = %v", mailer.codes)
	}

	updated, err := a.ConfirmEmailVerification(user, challenge.ChallengeID, mailer.codes[0])
	if err != nil {
		t.Fatalf("confirm verification: %v", err)
	}
	if !updated.EmailVerified {
		t.Fatalf("email must be verified after confirm")
	}
	stored, _, err := mem.GetUserByID(user.ID)
	if err != nil || !stored.EmailVerified {
		t.Fatalf("verified flag not persisted: %v", err)
	}

	if _, err := a.SendEmailVerification(context.Background(), updated); !errors.Is(err, ErrEmailAlreadyVerified) {
		t.Fatalf("verified account resend error = %v", err)
	}
	if len(mailer.emails) != 1 {
		t.Fatalf("no mail must be sent for a verified account, got %d", len(mailer.emails))
	}
}

func TestSendEmailVerificationFailsWhenMailerFails(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp unreachable")}
	a, _ := newVerifyTestApp(t, mailer)
	user := signUp(t, a, "bob@example.com")

	if _, err := a.SendEmailVerification(context.Background(), user); err == nil {
		t.Fatalf("expected error when the code cannot be delivered")
	}
}
