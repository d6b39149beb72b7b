package mongosink

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// isTransient reports whether a failed write is worth repeating.
func isTransient(err error) bool {
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

// flushRetry flushes, repeating transient failures up to cfg.FlushRetries
// times with a delay that doubles after each attempt. Records stay buffered
// between attempts, so a later flush picks them up if every attempt fails.
func (s *Sink) flushRetry(ctx context.Context) error {
	delay := s.cfg.RetryDelay
	var err error
	for i := range s.cfg.FlushRetries {
		if err = s.Flush(ctx); err == nil || !s.transient(err) {
			return err
		}
		if i == s.cfg.FlushRetries-1 {
			break
		}
		s.log.Debug("retrying event archive flush", "attempt", i+1, "delay", delay, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return err
}
