package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper runs the batch sweep on a fixed interval in the background.
type Sweeper struct {
	processor *BatchProcessor
	logger    *logrus.Logger
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSweeper defaults to an hourly interval when interval is not positive.
func NewSweeper(processor *BatchProcessor, logger *logrus.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		processor: processor,
		logger:    logger,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start is non-blocking. The first sweep runs immediately.
func (s *Sweeper) Start() {
	go s.run()
	s.logger.WithField("interval", s.interval.String()).Info("notification sweeper started")
}

// Stop cancels any in-progress sweep and blocks until it has returned.
func (s *Sweeper) Stop() {
	s.cancel()
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("notification sweeper stopped")
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	if _, err := s.processor.RunBatchSweep(ctx); err != nil {
		s.logger.WithError(err).Error("notification sweep failed")
	}
}
