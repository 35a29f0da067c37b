// Package scheduler runs the daily expiration sweep. A failing or panicking
// run is logged and must never prevent subsequent scheduled runs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/avdeenkov/cardbank/internal/service"
)

// Scheduler owns the cron instance driving the expiration sweep.
type Scheduler struct {
	cron  *cron.Cron
	sweep *service.SweepService
	log   *logrus.Logger
}

// New creates a scheduler with the sweep registered on the given cron spec
// (standard 5-field syntax, e.g. "0 3 * * *").
func New(sweep *service.SweepService, spec string, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log)))),
		sweep: sweep,
		log:   log,
	}
	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := s.sweep.Sweep(ctx, time.Now())
	if err != nil {
		s.log.Errorf("Expiration sweep failed: %v", err)
		return
	}
	s.log.Infof("Expiration sweep finished, %d cards expired", count)
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
