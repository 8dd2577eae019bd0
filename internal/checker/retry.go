package checker

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Default bounded retry settings.
const (
	DefaultRetryAttempts = 5
	DefaultRetryDelay    = time.Second
)

// RetryPolicy retries an operation on a fixed set of transient failures.
type RetryPolicy struct {
	Attempts  int
	Delay     time.Duration
	Transient func(error) bool
}

// Retry invokes op, sleeping Delay and trying again while it fails with an
// error Transient accepts, for at most Attempts invocations. The last
// failure is returned unmodified. Errors Transient rejects are returned
// immediately.
func Retry[T any](ctx context.Context, p RetryPolicy, op func() (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	transient := p.Transient
	if transient == nil {
		transient = func(error) bool { return false }
	}

	builder := retrypolicy.NewBuilder[T]().
		HandleIf(func(_ T, err error) bool {
			return err != nil && transient(err)
		}).
		WithMaxRetries(attempts - 1).
		ReturnLastFailure()
	if p.Delay > 0 {
		builder = builder.WithDelay(p.Delay)
	}

	return failsafe.With[T](builder.Build()).WithContext(ctx).Get(op)
}
