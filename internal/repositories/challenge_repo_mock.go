package repositories

import (
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"
)

type challengeKey struct {
	session string
	kind    models.ChallengeKind
}

// MockChallengeRepository is an in-memory implementation of ChallengeRepository.
type MockChallengeRepository struct {
	challenges map[challengeKey]models.OTPChallenge
	resends    map[challengeKey]time.Time
	mu         sync.RWMutex
}

// NewMockChallengeRepository creates a new instance of MockChallengeRepository.
func NewMockChallengeRepository() *MockChallengeRepository {
	return &MockChallengeRepository{
		challenges: make(map[challengeKey]models.OTPChallenge),
		resends:    make(map[challengeKey]time.Time),
	}
}

func (r *MockChallengeRepository) Get(sessionID string, kind models.ChallengeKind) (*models.OTPChallenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.challenges[challengeKey{sessionID, kind}]
	if !ok {
		return nil, fmt.Errorf("%s challenge for session %s: %w", kind, sessionID, ErrNotFound)
	}
	return &ch, nil
}

func (r *MockChallengeRepository) Save(challenge *models.OTPChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challenges[challengeKey{challenge.SessionID, challenge.Kind}] = *challenge
	return nil
}

func (r *MockChallengeRepository) Delete(sessionID string, kind models.ChallengeKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.challenges, challengeKey{sessionID, kind})
	return nil
}

func (r *MockChallengeRepository) LastResend(sessionID string, kind models.ChallengeKind) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resends[challengeKey{sessionID, kind}], nil
}

func (r *MockChallengeRepository) MarkResend(sessionID string, kind models.ChallengeKind, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resends[challengeKey{sessionID, kind}] = at
	return nil
}

func (r *MockChallengeRepository) PurgeExpired(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, ch := range r.challenges {
		if ch.ExpiresAt.Before(cutoff) {
			delete(r.challenges, k)
			n++
		}
	}
	for k, at := range r.resends {
		if at.Before(cutoff) {
			delete(r.resends, k)
		}
	}
	return n, nil
}
