package submit

import (
	"context"
	"log/slog"
	"time"
)

// Queue runs work for one source account at a time.
type Queue struct {
	locker Locker
	prefix string
	logger *slog.Logger
}

// NewQueue serializes on locker. Keys are prefix + source account.
func NewQueue(locker Locker, prefix string, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "mint:source:"
	}
	return &Queue{locker: locker, prefix: prefix, logger: logger}
}

// Do holds the source lock while fn runs.
func (q *Queue) Do(ctx context.Context, source string, fn func(ctx context.Context) error) error {
	start := time.Now()
	release, err := q.locker.Lock(ctx, q.prefix+source)
	if err != nil {
		return err
	}
	defer release()

	if waited := time.Since(start); waited > time.Second {
		q.logger.Debug("source lock contended", "source", source, "elapsed_ms", waited.Milliseconds())
	}
	return fn(ctx)
}
