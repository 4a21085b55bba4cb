package browser

import (
	"context"
	"errors"
	"strings"
	"time"

	"webuser/pkg/apperr"
)

// retrier re-runs an element interaction until it succeeds, the
// deadline passes, or the failure is not one a page transition can
// explain. The interval is fixed on purpose: growth would make
// latency unpredictable for short-lived transitions.
type retrier struct {
	timeout  time.Duration
	interval time.Duration
	sleep    func(time.Duration)
	now      func() time.Time
}

func newRetrier(timeout, interval time.Duration) *retrier {
	return &retrier{
		timeout:  timeout,
		interval: interval,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// do runs attempt until it returns nil. The attempt must resolve its
// locator fresh on every call; element handles from a previous attempt
// may already be stale.
func (r *retrier) do(ctx context.Context, op string, attempt func() error) error {
	deadline := r.now().Add(r.timeout)

	var lastErr error

	for {
		err := attempt()
		if err == nil {
			return nil
		}

		if !isTransient(err) {
			return err
		}

		lastErr = err

		if !r.now().Before(deadline) {
			return apperr.Wrap(op, apperr.CodeTimeout, lastErr, map[string]any{
				apperr.MetaReason: "retry_deadline_exceeded",
			})
		}

		select {
		case <-ctx.Done():
			return apperr.Wrap(op, apperr.CodeTimeout, ctx.Err(), map[string]any{
				apperr.MetaReason: "context_cancelled",
			})
		default:
		}

		r.sleep(r.interval)
	}
}

// waitUntil polls cond at the fixed interval until it holds or timeout
// elapses. Total wait is bounded by timeout plus one interval.
func (r *retrier) waitUntil(ctx context.Context, op string, cond func() bool, timeout time.Duration) error {
	deadline := r.now().Add(timeout)

	for {
		if cond() {
			return nil
		}

		if !r.now().Before(deadline) {
			return apperr.WrapErrorWithReason(op, apperr.CodeTimeout, "condition_not_met")
		}

		select {
		case <-ctx.Done():
			return apperr.Wrap(op, apperr.CodeTimeout, ctx.Err(), map[string]any{
				apperr.MetaReason: "context_cancelled",
			})
		default:
		}

		r.sleep(r.interval)
	}
}

// isTransient reports whether an interaction failure can be absorbed
// by re-resolving the locator: the element went stale under a page
// mutation or has not appeared yet. Anything else (malformed locator,
// crashed browser) propagates to the caller unchanged.
func isTransient(err error) bool {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Code == apperr.CodeNotFound || appErr.Code == apperr.CodeStaleElement
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range []string{
		"stale",
		"not attached",
		"element not found",
		"no element",
		"waiting for locator",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
