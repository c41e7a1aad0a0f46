package bridge

import (
	"context"
	"time"
)

// DefaultWatchInterval paces Watch when no interval is given.
const DefaultWatchInterval = time.Minute

// Watch answers raw once per interval until ctx is done and passes every
// successful result to notify. Failed polls are logged by Handle and skipped.
func (s *Service) Watch(ctx context.Context, raw string, every time.Duration, notify func(Result)) error {
	if every <= 0 {
		every = DefaultWatchInterval
	}
	logger := s.logger.With().Dur("every", every).Logger()
	logger.Info().Msg("Price watch started")

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Price watch stopped")
			return ctx.Err()
		case <-ticker.C:
			if res := s.Handle(ctx, raw); res.Err == nil {
				notify(res)
			}
		}
	}
}
