package scheduler

import (
	"github.com/hyerin/maplecart-backend/internal/app/service"
	"github.com/hyerin/maplecart-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// MembershipScheduler resets monthly allocation periods for expired
// memberships.
type MembershipScheduler struct {
	cron              *cron.Cron
	membershipService service.MembershipService
}

func NewMembershipScheduler(membershipService service.MembershipService) *MembershipScheduler {
	return &MembershipScheduler{
		cron:              cron.New(),
		membershipService: membershipService,
	}
}

// Start registers the rollover job. It runs hourly so a period never
// stays expired for long.
func (s *MembershipScheduler) Start() error {
	_, err := s.cron.AddFunc("0 * * * *", func() {
		logger.Info("Starting scheduled membership period rollover", nil)

		rolled, err := s.membershipService.RolloverExpiredPeriods()
		if err != nil {
			logger.Error("Failed to roll over membership periods", err)
			return
		}

		logger.Info("Membership period rollover completed", map[string]interface{}{
			"rolled_over": rolled,
		})
	})
	if err != nil {
		logger.Error("Failed to add cron job for membership rollover", err)
		return err
	}

	s.cron.Start()
	logger.Info("Membership scheduler started (hourly)", nil)

	return nil
}

func (s *MembershipScheduler) Stop() {
	logger.Info("Stopping membership scheduler...", nil)
	s.cron.Stop()
	logger.Info("Membership scheduler stopped", nil)
}
