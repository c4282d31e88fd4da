package repositories

import (
	"errors"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisChallengeKeys(t *testing.T) {
	repo := NewRedisChallengeRepository(unreachableRedis(), time.Hour)
	defer repo.client.Close()

	assert.Equal(t, "storefront:otp:login:abc", repo.challengeKey("abc", models.ChallengeLogin))
	assert.Equal(t, "storefront:otp_resend:registration:abc", repo.resendKey("abc", models.ChallengeRegistration))
}

func TestRedisChallengeErrorsAreNotMisses(t *testing.T) {
	repo := NewRedisChallengeRepository(unreachableRedis(), time.Hour)
	defer repo.client.Close()

	_, err := repo.Get("abc", models.ChallengeLogin)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	_, err = repo.LastResend("abc", models.ChallengeLogin)
	assert.Error(t, err)

	err = repo.Save(&models.OTPChallenge{SessionID: "abc", Kind: models.ChallengeLogin, ExpiresAt: time.Now().Add(time.Minute)})
	assert.Error(t, err)

	n, err := repo.PurgeExpired(time.Now())
	assert.NoError(t, err)
	assert.Zero(t, n)
}
