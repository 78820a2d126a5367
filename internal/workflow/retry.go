package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/xkilldash9x/repairfill/internal/protocol"
)

var errRetryable = errors.New("step reported incomplete")

// RetryPolicy re-runs a step while ShouldRetry holds for its response, at most
// MaxRetries more times. Remediate runs before every retry, then Wait elapses.
type RetryPolicy struct {
	MaxRetries  int
	Wait        time.Duration
	ShouldRetry func(protocol.StepResponse) bool
	Remediate   func(ctx context.Context)
	// OnRetry observes each retry before it is remediated.
	OnRetry func(attempt int)
}

// Do runs step under the policy. It returns the last response, which decides
// the outcome, and the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, step func(ctx context.Context) protocol.StepResponse) (protocol.StepResponse, int, error) {
	var (
		last     protocol.StepResponse
		attempts int
	)
	op := func() error {
		attempts++
		last = step(ctx)
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		// A failed envelope is final; only an ok but incomplete step is retried.
		if last.OK && p.ShouldRetry != nil && p.ShouldRetry(last) {
			return errRetryable
		}
		return nil
	}
	notify := func(error, time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempts)
		}
		if p.Remediate != nil {
			p.Remediate(ctx)
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Wait), uint64(max(p.MaxRetries, 0))), ctx)
	err := backoff.RetryNotify(op, b, notify)
	switch {
	case err == nil, errors.Is(err, errRetryable):
		return last, attempts, nil
	default:
		return last, attempts, err
	}
}
