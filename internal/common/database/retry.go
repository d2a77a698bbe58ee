package database

import (
	"context"
	"fmt"
	"time"

	"madlibs-stories/internal/common/logger"
)

// WithBackoff runs connect until it succeeds, doubling the delay between
// attempts. Used at startup while dependencies come up.
func WithBackoff(ctx context.Context, log logger.Logger, name string, attempts int, delay time.Duration, connect func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = connect(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.Warn(name+" failed, retrying", map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxAttempts": attempts,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
}
