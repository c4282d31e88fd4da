package services

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories"

	log "github.com/sirupsen/logrus"
)

// OTPConfig sets code lifetimes and the resend throttle.
type OTPConfig struct {
	RegistrationTTL time.Duration
	LoginTTL        time.Duration
	ResendInterval  time.Duration
}

// DefaultOTPConfig matches the production lifetimes.
var DefaultOTPConfig = OTPConfig{
	RegistrationTTL: 600 * time.Second,
	LoginTTL:        300 * time.Second,
	ResendInterval:  60 * time.Second,
}

// OTPService issues and checks six digit codes bound to a session and challenge kind.
type OTPService struct {
	repo     repositories.ChallengeRepository
	cfg      OTPConfig
	now      func() time.Time
	generate func() (string, error)
}

// NewOTPService creates a new OTPService.
func NewOTPService(repo repositories.ChallengeRepository, cfg OTPConfig) *OTPService {
	return &OTPService{
		repo:     repo,
		cfg:      cfg,
		now:      time.Now,
		generate: randomCode,
	}
}

// randomCode draws uniformly from 000000-999999.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *OTPService) ttl(kind models.ChallengeKind) time.Duration {
	if kind == models.ChallengeLogin {
		return s.cfg.LoginTTL
	}
	return s.cfg.RegistrationTTL
}

// Issue replaces any challenge of the same kind for the session with a fresh code.
func (s *OTPService) Issue(sessionID string, kind models.ChallengeKind, user *models.User, next string) (*models.OTPChallenge, error) {
	code, err := s.generate()
	if err != nil {
		return nil, err
	}
	now := s.now()
	ch := &models.OTPChallenge{
		SessionID: sessionID,
		Kind:      kind,
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		Next:      next,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl(kind)),
	}
	if err := s.repo.Save(ch); err != nil {
		return nil, fmt.Errorf("failed to issue %s code: %w", kind, err)
	}
	metrics.RecordOTPIssued(string(kind))
	return ch, nil
}

// Pending returns the current challenge or ErrNoChallenge.
func (s *OTPService) Pending(sessionID string, kind models.ChallengeKind) (*models.OTPChallenge, error) {
	ch, err := s.repo.Get(sessionID, kind)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoChallenge
		}
		return nil, err
	}
	return ch, nil
}

// Verify consumes the challenge when code matches and it has not expired.
// Expired challenges are kept so the user can ask for a new code.
func (s *OTPService) Verify(sessionID string, kind models.ChallengeKind, code string) (*models.OTPChallenge, error) {
	ch, err := s.Pending(sessionID, kind)
	if err != nil {
		metrics.RecordOTPVerification(string(kind), "no_challenge")
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	if ch.Expired(s.now()) {
		metrics.RecordOTPVerification(string(kind), "expired")
		return nil, ErrChallengeExpired
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(ch.Code)) != 1 {
		metrics.RecordOTPVerification(string(kind), "mismatch")
		return nil, ErrInvalidCode
	}
	if err := s.repo.Delete(sessionID, kind); err != nil {
		log.WithField("kind", kind).Warnf("Verified challenge not deleted: %v", err)
	}
	metrics.RecordOTPVerification(string(kind), "ok")
	return ch, nil
}

// Resend re-randomises the code and resets the expiry, at most once per resend interval.
// A rejected resend leaves the challenge and the resend mark untouched.
func (s *OTPService) Resend(sessionID string, kind models.ChallengeKind) (*models.OTPChallenge, error) {
	now := s.now()
	last, err := s.repo.LastResend(sessionID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to read resend mark: %w", err)
	}
	if !last.IsZero() && now.Sub(last) < s.cfg.ResendInterval {
		return nil, ErrResendTooSoon
	}

	ch, err := s.Pending(sessionID, kind)
	if err != nil {
		return nil, err
	}
	code, err := s.generate()
	if err != nil {
		return nil, err
	}
	ch.Code = code
	ch.IssuedAt = now
	ch.ExpiresAt = now.Add(s.ttl(kind))
	ch.DeliveryFailed = false
	if err := s.repo.Save(ch); err != nil {
		return nil, fmt.Errorf("failed to reissue %s code: %w", kind, err)
	}
	if err := s.repo.MarkResend(sessionID, kind, now); err != nil {
		return nil, fmt.Errorf("failed to record resend: %w", err)
	}
	metrics.RecordOTPIssued(string(kind))
	return ch, nil
}

// MarkDeliveryFailed records that the mailer could not take the code.
func (s *OTPService) MarkDeliveryFailed(ch *models.OTPChallenge) error {
	ch.DeliveryFailed = true
	if err := s.repo.Save(ch); err != nil {
		return fmt.Errorf("failed to flag %s delivery: %w", ch.Kind, err)
	}
	return nil
}

// Purge removes challenges that expired more than retention ago.
func (s *OTPService) Purge(retention time.Duration) (int64, error) {
	return s.repo.PurgeExpired(s.now().Add(-retention))
}
