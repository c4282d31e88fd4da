package repositories

import (
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMChallengeRepository stores challenges in the relational database.
type GORMChallengeRepository struct {
	db *gorm.DB
}

// NewGORMChallengeRepository creates a new instance of GORMChallengeRepository.
func NewGORMChallengeRepository(db *gorm.DB) *GORMChallengeRepository {
	return &GORMChallengeRepository{db: db}
}

func (r *GORMChallengeRepository) Get(sessionID string, kind models.ChallengeKind) (*models.OTPChallenge, error) {
	var ch models.OTPChallenge
	err := r.db.Where("session_id = ? AND kind = ?", sessionID, kind).First(&ch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s challenge for session %s: %w", kind, sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load %s challenge: %w", kind, err)
	}
	return &ch, nil
}

// Save upserts on the (session_id, kind) primary key.
func (r *GORMChallengeRepository) Save(challenge *models.OTPChallenge) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "kind"}},
		UpdateAll: true,
	}).Create(challenge).Error
	if err != nil {
		return fmt.Errorf("failed to save %s challenge: %w", challenge.Kind, err)
	}
	return nil
}

func (r *GORMChallengeRepository) Delete(sessionID string, kind models.ChallengeKind) error {
	err := r.db.Where("session_id = ? AND kind = ?", sessionID, kind).Delete(&models.OTPChallenge{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s challenge: %w", kind, err)
	}
	return nil
}

func (r *GORMChallengeRepository) LastResend(sessionID string, kind models.ChallengeKind) (time.Time, error) {
	var mark models.ResendMark
	err := r.db.Where("session_id = ? AND kind = ?", sessionID, kind).First(&mark).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to load resend mark: %w", err)
	}
	return mark.SentAt, nil
}

func (r *GORMChallengeRepository) MarkResend(sessionID string, kind models.ChallengeKind, at time.Time) error {
	mark := models.ResendMark{SessionID: sessionID, Kind: kind, SentAt: at}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"sent_at"}),
	}).Create(&mark).Error
	if err != nil {
		return fmt.Errorf("failed to record resend: %w", err)
	}
	return nil
}

func (r *GORMChallengeRepository) PurgeExpired(cutoff time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", cutoff).Delete(&models.OTPChallenge{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge challenges: %w", res.Error)
	}
	if err := r.db.Where("sent_at < ?", cutoff).Delete(&models.ResendMark{}).Error; err != nil {
		return res.RowsAffected, fmt.Errorf("failed to purge resend marks: %w", err)
	}
	return res.RowsAffected, nil
}
