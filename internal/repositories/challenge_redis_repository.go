package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/go-redis/redis/v8"
)

// RedisChallengeRepository keeps challenges in Redis. Keys carry a TTL of expiry plus retention,
// so PurgeExpired has nothing to do.
type RedisChallengeRepository struct {
	client    *redis.Client
	retention time.Duration
	prefix    string
}

// NewRedisChallengeRepository creates a new instance of RedisChallengeRepository.
func NewRedisChallengeRepository(client *redis.Client, retention time.Duration) *RedisChallengeRepository {
	return &RedisChallengeRepository{client: client, retention: retention, prefix: "storefront"}
}

func (r *RedisChallengeRepository) challengeKey(sessionID string, kind models.ChallengeKind) string {
	return fmt.Sprintf("%s:otp:%s:%s", r.prefix, kind, sessionID)
}

func (r *RedisChallengeRepository) resendKey(sessionID string, kind models.ChallengeKind) string {
	return fmt.Sprintf("%s:otp_resend:%s:%s", r.prefix, kind, sessionID)
}

func (r *RedisChallengeRepository) Get(sessionID string, kind models.ChallengeKind) (*models.OTPChallenge, error) {
	raw, err := r.client.Get(context.Background(), r.challengeKey(sessionID, kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s challenge for session %s: %w", kind, sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load %s challenge: %w", kind, err)
	}
	var ch models.OTPChallenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, fmt.Errorf("failed to decode %s challenge: %w", kind, err)
	}
	return &ch, nil
}

func (r *RedisChallengeRepository) Save(challenge *models.OTPChallenge) error {
	raw, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode %s challenge: %w", challenge.Kind, err)
	}
	ttl := time.Until(challenge.ExpiresAt) + r.retention
	if ttl <= 0 {
		ttl = r.retention
	}
	if err := r.client.Set(context.Background(), r.challengeKey(challenge.SessionID, challenge.Kind), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save %s challenge: %w", challenge.Kind, err)
	}
	return nil
}

func (r *RedisChallengeRepository) Delete(sessionID string, kind models.ChallengeKind) error {
	if err := r.client.Del(context.Background(), r.challengeKey(sessionID, kind)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s challenge: %w", kind, err)
	}
	return nil
}

func (r *RedisChallengeRepository) LastResend(sessionID string, kind models.ChallengeKind) (time.Time, error) {
	unix, err := r.client.Get(context.Background(), r.resendKey(sessionID, kind)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to load resend mark: %w", err)
	}
	return time.Unix(unix, 0), nil
}

func (r *RedisChallengeRepository) MarkResend(sessionID string, kind models.ChallengeKind, at time.Time) error {
	if err := r.client.Set(context.Background(), r.resendKey(sessionID, kind), at.Unix(), r.retention).Err(); err != nil {
		return fmt.Errorf("failed to record resend: %w", err)
	}
	return nil
}

func (r *RedisChallengeRepository) PurgeExpired(time.Time) (int64, error) {
	return 0, nil
}
