package models

import "time"

// ChallengeKind separates the registration and login OTP flows of one session.
type ChallengeKind string

const (
	ChallengeRegistration ChallengeKind = "registration"
	ChallengeLogin        ChallengeKind = "login"
)

// OTPChallenge is a short-lived one-time code bound to a browser session.
type OTPChallenge struct {
	SessionID string        `json:"session_id" gorm:"primaryKey;size:64"`
	Kind      ChallengeKind `json:"kind" gorm:"primaryKey;size:20"`
	UserID    uint          `json:"user_id"`
	Email     string        `json:"email" gorm:"size:255"`
	Code      string        `json:"code" gorm:"size:6"`
	Next      string        `json:"next,omitempty" gorm:"size:500"`
	IssuedAt  time.Time     `json:"issued_at"`
	ExpiresAt time.Time     `json:"expires_at" gorm:"index"`
	// DeliveryFailed is set when the code could not be handed to the mailer.
	DeliveryFailed bool `json:"delivery_failed"`
}

// Expired reports whether now is past the challenge expiry.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ResendMark records the last resend per session and kind. It outlives the challenge itself.
type ResendMark struct {
	SessionID string        `gorm:"primaryKey;size:64"`
	Kind      ChallengeKind `gorm:"primaryKey;size:20"`
	SentAt    time.Time
}
