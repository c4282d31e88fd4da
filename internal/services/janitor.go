package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ChallengeJanitor removes OTP challenges long past their expiry.
type ChallengeJanitor struct {
	otp       *OTPService
	retention time.Duration
}

// NewChallengeJanitor creates a janitor keeping expired challenges for retention.
func NewChallengeJanitor(otp *OTPService, retention time.Duration) *ChallengeJanitor {
	return &ChallengeJanitor{otp: otp, retention: retention}
}

// Run purges once.
func (j *ChallengeJanitor) Run() {
	n, err := j.otp.Purge(j.retention)
	if err != nil {
		log.Errorf("Challenge purge failed: %v", err)
		return
	}
	if n > 0 {
		log.WithField("removed", n).Info("Purged expired OTP challenges")
	}
}

// Schedule registers the janitor on c using a cron spec such as "@every 10m".
func (j *ChallengeJanitor) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddJob(spec, j)
	if err != nil {
		return 0, fmt.Errorf("failed to schedule challenge janitor: %w", err)
	}
	return id, nil
}
