package scheduler

import (
	"context"
	"time"
)

// RecentTrimTask is the name of the recent-battle trimming task.
const RecentTrimTask = "recent_trim"

// RecentTrimmer caps the recent-battle list.
type RecentTrimmer interface {
	TrimRecent(ctx context.Context) error
}

// AddRecentTrim registers the recent_trim ticker; interval <= 0 means one
// minute.
func (s *Scheduler) AddRecentTrim(t RecentTrimmer, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.AddTicker(RecentTrimTask, interval, func(ctx context.Context) error {
		tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return t.TrimRecent(tctx)
	})
}
