package retention

import (
	"context"
	"time"
)

// Scheduler runs the retention sweep once a day on a ticker.
type Scheduler struct {
	interval time.Duration
	stop     chan struct{}
}

func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{interval: interval}
}

// Start begins ticking. The job also runs once immediately so a restart
// never skips a day.
func (s *Scheduler) Start(ctx context.Context, job func(time.Time)) {
	if job == nil {
		return
	}
	if s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the ticker goroutine.
func (s *Scheduler) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}
