package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/conncheck/internal/config"
)

// fakeBroker is an in-memory brokerClient. Errors queued in ensureErrs and
// produceErrs are returned by successive calls before they start succeeding.
type fakeBroker struct {
	ensureErrs  []error
	produceErrs []error
	drop        bool

	ensureCalls  int
	produceCalls int
	topics       []string
	groups       []string
	log          map[string][][]byte
}

func (f *fakeBroker) EnsureTopic(_ context.Context, topic string) error {
	f.ensureCalls++
	f.topics = append(f.topics, topic)
	if len(f.ensureErrs) > 0 {
		err := f.ensureErrs[0]
		f.ensureErrs = f.ensureErrs[1:]
		return err
	}
	return nil
}

func (f *fakeBroker) Produce(_ context.Context, topic string, payload []byte) error {
	f.produceCalls++
	if len(f.produceErrs) > 0 {
		err := f.produceErrs[0]
		f.produceErrs = f.produceErrs[1:]
		return err
	}
	if f.drop {
		return nil
	}
	if f.log == nil {
		f.log = make(map[string][][]byte)
	}
	f.log[topic] = append(f.log[topic], payload)
	return nil
}

func (f *fakeBroker) Consume(_ context.Context, topic, groupID string, _ time.Duration, match func([]byte) bool) (bool, error) {
	f.groups = append(f.groups, groupID)
	for _, msg := range f.log[topic] {
		if match(msg) {
			return true, nil
		}
	}
	return false, nil
}

func newTestKafkaChecker(topic string, fb *fakeBroker) *kafkaChecker {
	return &kafkaChecker{
		cfg:  config.Kafka{Topic: topic},
		gate: Gate{Flag: "ENABLE_KAFKA", Enabled: true},
		retry: RetryPolicy{
			Attempts:  3,
			Delay:     time.Millisecond,
			Transient: isTransientBrokerError,
		},
		consumeTimeout: 50 * time.Millisecond,
		client:         fb,
		logger:         slog.New(slog.DiscardHandler),
	}
}

func TestKafkaChecker_Pass(t *testing.T) {
	fb := &fakeBroker{}
	r := newTestKafkaChecker("health", fb).Check(context.Background())

	require.Equal(t, StatusPass, r.Status, r.Detail)
	assert.True(t, strings.HasPrefix(r.Detail, "Produced and consumed payload "))
	assert.True(t, strings.HasSuffix(r.Detail, " on health"))
	require.Len(t, fb.groups, 1)
	assert.True(t, strings.HasPrefix(fb.groups[0], "go-health-"))
	assert.Len(t, fb.groups[0], len("go-health-")+8)
}

func TestKafkaChecker_FixedTopicRerun(t *testing.T) {
	fb := &fakeBroker{}
	c := newTestKafkaChecker("health", fb)

	first := c.Check(context.Background())
	second := c.Check(context.Background())

	require.Equal(t, StatusPass, first.Status, first.Detail)
	require.Equal(t, StatusPass, second.Status, second.Detail)
	assert.NotEqual(t, first.Detail, second.Detail, "each run must observe its own payload")
	assert.Equal(t, []string{"health", "health"}, fb.topics)
	assert.Len(t, fb.log["health"], 2)
}

func TestKafkaChecker_RetriesTransientTopicErrors(t *testing.T) {
	fb := &fakeBroker{ensureErrs: []error{kafka.LeaderNotAvailable, kafka.BrokerNotAvailable}}
	r := newTestKafkaChecker("health", fb).Check(context.Background())

	require.Equal(t, StatusPass, r.Status, r.Detail)
	assert.Equal(t, 3, fb.ensureCalls)
}

func TestKafkaChecker_RetriesTransientProduceErrors(t *testing.T) {
	fb := &fakeBroker{produceErrs: []error{kafka.WriteErrors{kafka.UnknownTopicOrPartition}}}
	r := newTestKafkaChecker("health", fb).Check(context.Background())

	require.Equal(t, StatusPass, r.Status, r.Detail)
	assert.Equal(t, 2, fb.produceCalls)
}

func TestKafkaChecker_TransientExhausted(t *testing.T) {
	fb := &fakeBroker{ensureErrs: []error{
		kafka.LeaderNotAvailable, kafka.LeaderNotAvailable, kafka.LeaderNotAvailable,
	}}
	r := newTestKafkaChecker("health", fb).Check(context.Background())

	require.Equal(t, StatusFail, r.Status)
	assert.Equal(t, 3, fb.ensureCalls)
	assert.Contains(t, r.Detail, "ensuring topic health")
}

func TestKafkaChecker_PermanentErrorNotRetried(t *testing.T) {
	fb := &fakeBroker{ensureErrs: []error{kafka.TopicAuthorizationFailed}}
	r := newTestKafkaChecker("health", fb).Check(context.Background())

	require.Equal(t, StatusFail, r.Status)
	assert.Equal(t, 1, fb.ensureCalls)
	assert.Equal(t, 0, fb.produceCalls)
}

func TestKafkaChecker_NotObserved(t *testing.T) {
	fb := &fakeBroker{drop: true}
	r := newTestKafkaChecker("health", fb).Check(context.Background())

	require.Equal(t, StatusFail, r.Status)
	assert.True(t, strings.HasPrefix(r.Detail, "NotObserved: payload "), r.Detail)
	assert.Equal(t, 1, fb.produceCalls)
}

func TestKafkaChecker_GeneratedTopic(t *testing.T) {
	fb := &fakeBroker{}
	r := newTestKafkaChecker("", fb).Check(context.Background())

	require.Equal(t, StatusPass, r.Status, r.Detail)
	require.Len(t, fb.topics, 1)
	assert.True(t, strings.HasPrefix(fb.topics[0], "health-check-"))
}

func TestNewKafkaChecker_BrokerOrder(t *testing.T) {
	c := newKafkaChecker(config.Kafka{
		Enable:  "true",
		Brokers: []string{"localhost:9092", "kafka:29092"},
	}, Options{})

	assert.True(t, slices.Equal([]string{"kafka:29092", "localhost:9092"}, c.brokers), "brokers = %v", c.brokers)
	assert.Equal(t, "kafka", c.gate.Host)
	assert.Equal(t, 29092, c.gate.Port)
}

func TestNewKafkaChecker_HostPortFallback(t *testing.T) {
	c := newKafkaChecker(config.Kafka{Host: "localhost", Port: 9092}, Options{})

	assert.Equal(t, []string{"localhost:9092"}, c.brokers)
	assert.False(t, c.gate.Enabled)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsTransientBrokerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"leader", kafka.LeaderNotAvailable, true},
		{"wrapped", fmt.Errorf("producing: %w", kafka.NotLeaderForPartition), true},
		{"request timeout", kafka.RequestTimedOut, true},
		{"write errors", kafka.WriteErrors{nil, kafka.UnknownTopicOrPartition}, true},
		{"write errors permanent", kafka.WriteErrors{errors.New("message too large")}, false},
		{"net timeout", fmt.Errorf("dialing: %w", timeoutError{}), true},
		{"authorization", kafka.TopicAuthorizationFailed, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTransientBrokerError(tc.err))
		})
	}
}
