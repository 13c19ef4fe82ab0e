package verify

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"bytehub/internal/util"
)

var (
	ErrSendRateLimited   = errors.New("too many verification code requests")
	ErrChallengeInvalid  = errors.New("verification request is invalid")
	ErrCodeInvalid       = errors.New("incorrect verification code")
	ErrCodeExpired       = errors.New("verification code expired")
	ErrCodeRequired      = errors.New("verification code is required")
	ErrChallengeRequired = errors.New("verification session is required")
)

// Store keeps short-lived email verification challenges in Redis.
// Codes are bcrypt-hashed; resends are throttled per user and attempts capped.
type Store struct {
	client            *redis.Client
	keyPrefix         string
	challengeTTL      time.Duration
	challengePersist  time.Duration
	resendAfter       time.Duration
	maxVerifyAttempts int
}

type challenge struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	CodeHash   string    `json:"codeHash"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Attempts   int       `json:"attempts"`
	MaxAttempt int       `json:"maxAttempt"`
}

// NewStore builds a verification store over an existing Redis client.
func NewStore(client *redis.Client) *Store {
	challengeTTL := 10 * time.Minute
	return &Store{
		client:            client,
		keyPrefix:         "bytehub:verify",
		challengeTTL:      challengeTTL,
		challengePersist:  challengeTTL + time.Minute,
		resendAfter:       time.Minute,
		maxVerifyAttempts: 5,
	}
}

// CreateChallenge issues a new verification code for the user's email.
// Returns the challenge id, the plain code (for delivery), and the TTL and
// resend window in seconds.
func (s *Store) CreateChallenge(userID, email string) (string, string, int, int, error) {
	if s == nil {
		return "", "", 0, 0, errors.New("verify store not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", "", 0, 0, errors.New("user id is required")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resendKey := s.resendKey(userID)
	allowed, err := s.client.SetNX(ctx, resendKey, "1", s.resendAfter).Result()
	if err != nil {
		return "", "", 0, 0, err
	}
	if !allowed {
		return "", "", 0, 0, ErrSendRateLimited
	}

	code, err := generateNumericCode(6)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", "", 0, 0, fmt.Errorf("generate verification code: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", "", 0, 0, fmt.Errorf("hash verification code: %w", err)
	}
	challengeID := util.NewID()
	ch := challenge{
		ID:         challengeID,
		UserID:     userID,
		Email:      email,
		CodeHash:   string(codeHash),
		ExpiresAt:  time.Now().UTC().Add(s.challengeTTL),
		Attempts:   0,
		MaxAttempt: s.maxVerifyAttempts,
	}
	raw, err := json.Marshal(ch)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", "", 0, 0, fmt.Errorf("marshal verification challenge: %w", err)
	}
	if err := s.client.Set(ctx, s.challengeKey(challengeID), raw, s.challengePersist).Err(); err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", "", 0, 0, err
	}
	return challengeID, code, int(s.challengeTTL.Seconds()), int(s.resendAfter.Seconds()), nil
}

// VerifyChallenge checks the code for the challenge, consuming it on success.
func (s *Store) VerifyChallenge(challengeID, userID, code string) error {
	if s == nil {
		return errors.New("verify store not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return ErrChallengeRequired
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeRequired
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := s.challengeKey(challengeID)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrChallengeInvalid
	}
	if err != nil {
		return err
	}
	var ch challenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return fmt.Errorf("unmarshal verification challenge: %w", err)
	}
	if ch.ID == "" || ch.UserID != strings.TrimSpace(userID) {
		return ErrChallengeInvalid
	}
	if time.Now().UTC().After(ch.ExpiresAt) {
		_ = s.client.Del(ctx, key).Err()
		return ErrCodeExpired
	}
	if ch.Attempts >= ch.MaxAttempt {
		_ = s.client.Del(ctx, key).Err()
		return ErrChallengeInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(code)) != nil {
		ch.Attempts++
		if ch.Attempts >= ch.MaxAttempt {
			_ = s.client.Del(ctx, key).Err()
		} else {
			raw, marshalErr := json.Marshal(ch)
			if marshalErr == nil {
				ttl, ttlErr := s.client.TTL(ctx, key).Result()
				if ttlErr == nil && ttl > 0 {
					_ = s.client.Set(ctx, key, raw, ttl).Err()
				}
			}
		}
		return ErrCodeInvalid
	}
	return s.client.Del(ctx, key).Err()
}

func (s *Store) challengeKey(challengeID string) string {
	return fmt.Sprintf("%s:challenge:%s", s.keyPrefix, challengeID)
}

func (s *Store) resendKey(userID string) string {
	return fmt.Sprintf("%s:resend:%s", s.keyPrefix, userID)
}

func generateNumericCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
