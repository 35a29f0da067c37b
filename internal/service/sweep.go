package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SweepService performs the bulk ACTIVE -> EXPIRED transition for cards past
// their expiration date. The operation is set-based and idempotent: a second
// run with the same date changes zero rows.
type SweepService struct {
	store Store
	log   *logrus.Logger
}

// NewSweepService initializes a new sweep service
func NewSweepService(store Store, log *logrus.Logger) *SweepService {
	return &SweepService{store: store, log: log}
}

// Sweep expires every ACTIVE card whose expiration date lies before now and
// returns the number of cards updated. BLOCKED cards are left alone; they can
// only expire after an admin reactivates them.
func (s *SweepService) Sweep(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.store.ExpireCards(ctx, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Infof("Expiration sweep marked %d cards EXPIRED", count)
	}
	return count, nil
}
