package usecase

import (
	"context"
	"log"
	"time"

	"github.com/dropvid/clip-processing-service/domain"
)

const defaultMaxAttempts = 3

// RetryPolicy re-runs an operation with exponential backoff: after the
// n-th failed attempt it waits 2^n seconds before trying again. Errors
// classified non-transient fail immediately; everything else is retried
// until the attempt budget is spent, at which point the last error is
// returned wrapped in a RetryExhaustedError.
type RetryPolicy struct {
	MaxAttempts int
	Sleep       func(time.Duration)                  // nil means time.Sleep
	Logf        func(format string, args ...any)     // nil means log.Printf
	Metrics     domain.PipelineMetrics               // nil disables counting
}

// Do executes fn under the policy. op names the operation in logs and
// in the terminal error.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	logf := p.Logf
	if logf == nil {
		logf = log.Printf
	}

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = fn()
		if last == nil {
			return nil
		}
		if p.Metrics != nil {
			p.Metrics.RetryAttempted(op)
		}
		if !domain.IsTransient(last) {
			logf("retry abort op=%s attempt=%d error=%v (not retryable)", op, attempt, last)
			return last
		}

		logf("retry op=%s attempt=%d/%d error=%v", op, attempt, maxAttempts, last)

		if attempt < maxAttempts {
			sleep(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}

	return &domain.RetryExhaustedError{Op: op, Attempts: maxAttempts, Last: last}
}
