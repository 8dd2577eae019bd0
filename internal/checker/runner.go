package checker

import (
	"context"
	"fmt"
	"time"
)

// Body is a domain transaction. It returns a success message or an error.
type Body func(ctx context.Context) (string, error)

// Run times body and converts its outcome into a Result. Errors and panics
// raised by body never escape; they become FAIL results carrying the
// failure kind and message.
func Run(ctx context.Context, service, client string, body Body) Result {
	start := time.Now()
	detail, err := call(ctx, body)
	elapsed := time.Since(start).Milliseconds()

	result := Result{
		Service:    service,
		Client:     client,
		DurationMs: elapsed,
	}
	if err != nil {
		result.Status = StatusFail
		result.Detail = describe(err)
		return result
	}
	result.Status = StatusPass
	result.Detail = detail
	return result
}

func call(ctx context.Context, body Body) (detail string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Failf(KindPanic, "%v", r)
		}
	}()
	if body == nil {
		return "", fmt.Errorf("no check body")
	}
	return body(ctx)
}
