package service

import (
	"context"
	"log/slog"
	"time"
)

// DefaultHousekeepingRetention is how long consumed or expired OTP records
// are kept around for auditing before they are purged.
const DefaultHousekeepingRetention = 24 * time.Hour

// HousekeepingService periodically purges stale OTP records so the ledger
// does not grow without bound.
type HousekeepingService struct {
	OTPs      *OTPLedger
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service. A zero interval
// defaults to 1 hour and a zero retention to DefaultHousekeepingRetention.
func NewHousekeepingService(otps *OTPLedger, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = DefaultHousekeepingRetention
	}

	return &HousekeepingService{
		OTPs:      otps,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.Retention)
	n, err := s.OTPs.PurgeExpired(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to purge otp records", "error", err)
		return
	}
	s.Logger.Info("housekeeping cleanup completed", "otp_records_deleted", n, "cutoff", cutoff)
}
