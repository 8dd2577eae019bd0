package checker_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hazz-dev/conncheck/internal/checker"
)

func TestRun_Pass(t *testing.T) {
	r := checker.Run(context.Background(), "Valkey", "go-redis", func(context.Context) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "SET/GET on health:x succeeded", nil
	})
	if r.Status != checker.StatusPass {
		t.Fatalf("expected PASS, got %q: %s", r.Status, r.Detail)
	}
	if r.Detail != "SET/GET on health:x succeeded" {
		t.Errorf("unexpected detail %q", r.Detail)
	}
	if r.DurationMs < 5 {
		t.Errorf("expected duration >= 5ms, got %d", r.DurationMs)
	}
}

func TestRun_FailureCarriesKind(t *testing.T) {
	r := checker.Run(context.Background(), "Valkey", "go-redis", func(context.Context) (string, error) {
		return "", checker.Failf(checker.KindValueMismatch, "unexpected payload %q", "nope")
	})
	if r.Status != checker.StatusFail {
		t.Fatalf("expected FAIL, got %q", r.Status)
	}
	want := `ValueMismatch: unexpected payload "nope"`
	if r.Detail != want {
		t.Errorf("detail = %q, want %q", r.Detail, want)
	}
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	r := checker.Run(context.Background(), "Kafka", "go-kafka", func(context.Context) (string, error) {
		panic("boom")
	})
	if r.Status != checker.StatusFail {
		t.Fatalf("expected FAIL, got %q", r.Status)
	}
	if r.Detail != "Panic: boom" {
		t.Errorf("unexpected detail %q", r.Detail)
	}
}

func TestRun_NilBody(t *testing.T) {
	r := checker.Run(context.Background(), "MinIO", "go-aws-s3", nil)
	if r.Status != checker.StatusFail {
		t.Fatalf("expected FAIL, got %q", r.Status)
	}
}

type refusedError struct{}

func (refusedError) Error() string { return "connection refused" }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"tagged", checker.Failf(checker.KindNotObserved, "missing"), "NotObserved"},
		{"wrapped tag", fmt.Errorf("consuming: %w", checker.Failf(checker.KindNotObserved, "missing")), "NotObserved"},
		{"deadline", context.DeadlineExceeded, "Timeout"},
		{"wrapped deadline", fmt.Errorf("dialing: %w", context.DeadlineExceeded), "Timeout"},
		{"plain", errors.New("bad"), "Error"},
		{"wrapped plain", fmt.Errorf("outer: %w", errors.New("bad")), "Error"},
		{"typed", fmt.Errorf("outer: %w", refusedError{}), "refusedError"},
		{"kafka protocol", fmt.Errorf("ensuring topic: %w", kafka.TopicAuthorizationFailed), "KafkaError"},
		{"kafka timeout code", kafka.RequestTimedOut, "KafkaError"},
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, "NetworkError"},
		{"io timeout", &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}, "Timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := checker.KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRun_DeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	r := checker.Run(ctx, "OpenSearch", "go-opensearch", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("indexing: %w", ctx.Err())
	})
	if !strings.HasPrefix(r.Detail, "Timeout: ") {
		t.Errorf("expected Timeout kind, got %q", r.Detail)
	}
}
