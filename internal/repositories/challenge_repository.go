package repositories

import (
	"time"

	"storefront/internal/models"
)

// ChallengeRepository keeps OTP challenges and resend marks keyed by session and kind.
type ChallengeRepository interface {
	Get(sessionID string, kind models.ChallengeKind) (*models.OTPChallenge, error)
	// Save creates or replaces the challenge for its session and kind.
	Save(challenge *models.OTPChallenge) error
	Delete(sessionID string, kind models.ChallengeKind) error
	// LastResend returns the zero time when no resend was recorded.
	LastResend(sessionID string, kind models.ChallengeKind) (time.Time, error)
	MarkResend(sessionID string, kind models.ChallengeKind, at time.Time) error
	// PurgeExpired removes challenges that expired before cutoff.
	PurgeExpired(cutoff time.Time) (int64, error)
}
