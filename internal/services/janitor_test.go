package services_test

import (
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeJanitor(t *testing.T) {
	repo := repositories.NewMockChallengeRepository()
	require.NoError(t, repo.Save(&models.OTPChallenge{
		SessionID: "stale", Kind: models.ChallengeLogin, ExpiresAt: time.Now().Add(-2 * time.Hour),
	}))
	require.NoError(t, repo.Save(&models.OTPChallenge{
		SessionID: "live", Kind: models.ChallengeLogin, ExpiresAt: time.Now().Add(time.Minute),
	}))

	janitor := services.NewChallengeJanitor(services.NewOTPService(repo, services.DefaultOTPConfig), time.Hour)
	janitor.Run()

	_, err := repo.Get("stale", models.ChallengeLogin)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repo.Get("live", models.ChallengeLogin)
	assert.NoError(t, err)

	c := cron.New()
	_, err = janitor.Schedule(c, "@every 10m")
	assert.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = janitor.Schedule(c, "every tuesday-ish")
	assert.Error(t, err)
}
