package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/hazz-dev/conncheck/internal/config"
)

const (
	kafkaService = "Kafka"
	kafkaClient  = "go-kafka"

	defaultConsumeTimeout = 5 * time.Second
)

// brokerClient is the slice of the broker API the round-trip needs.
type brokerClient interface {
	EnsureTopic(ctx context.Context, topic string) error
	Produce(ctx context.Context, topic string, payload []byte) error
	// Consume reads topic from the earliest offset until match accepts a
	// message (true) or timeout elapses (false).
	Consume(ctx context.Context, topic, groupID string, timeout time.Duration, match func([]byte) bool) (bool, error)
}

type kafkaChecker struct {
	cfg            config.Kafka
	brokers        []string
	gate           Gate
	retry          RetryPolicy
	consumeTimeout time.Duration
	client         brokerClient
	logger         *slog.Logger
}

func newKafkaChecker(cfg config.Kafka, opts Options) *kafkaChecker {
	raw := cfg.Brokers
	if len(raw) == 0 {
		raw = []string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}
	}
	brokers := PrioritizeBrokers(raw)
	host, port := splitBroker(brokers[0])

	return &kafkaChecker{
		cfg:     cfg,
		brokers: brokers,
		gate:    opts.gate(cfg.Flag(), cfg.Enabled(), host, port),
		retry: RetryPolicy{
			Attempts:  DefaultRetryAttempts,
			Delay:     DefaultRetryDelay,
			Transient: isTransientBrokerError,
		},
		consumeTimeout: defaultConsumeTimeout,
		client:         &kafkaGoClient{brokers: brokers},
		logger:         opts.logger(),
	}
}

func (c *kafkaChecker) Service() string { return kafkaService }

func (c *kafkaChecker) Target() Target {
	t := c.gate.target(kafkaService, kafkaClient)
	t.Address = strings.Join(c.brokers, ",")
	return t
}

func (c *kafkaChecker) Check(ctx context.Context) Result {
	return gated(ctx, c.gate, kafkaService, kafkaClient, c.roundTrip)
}

func (c *kafkaChecker) topic() string {
	if c.cfg.Topic != "" {
		return c.cfg.Topic
	}
	return "health-check-" + uuid.NewString()
}

func (c *kafkaChecker) roundTrip(ctx context.Context) (string, error) {
	topic := c.topic()

	_, err := Retry(ctx, c.retry, func() (struct{}, error) {
		err := c.client.EnsureTopic(ctx, topic)
		c.logTransient("ensure topic", topic, err)
		return struct{}{}, err
	})
	if err != nil {
		return "", fmt.Errorf("ensuring topic %s: %w", topic, err)
	}

	payload, err := Retry(ctx, c.retry, func() (string, error) {
		payload, err := c.produceAndConsume(ctx, topic)
		c.logTransient("round-trip", topic, err)
		return payload, err
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Produced and consumed payload %s on %s", payload, topic), nil
}

func (c *kafkaChecker) produceAndConsume(ctx context.Context, topic string) (string, error) {
	payload := uuid.NewString()
	want := []byte(payload)

	if err := c.client.Produce(ctx, topic, want); err != nil {
		return "", fmt.Errorf("producing to %s: %w", topic, err)
	}

	groupID := "go-health-" + payload[:8]
	seen, err := c.client.Consume(ctx, topic, groupID, c.consumeTimeout, func(v []byte) bool {
		return bytes.Equal(v, want)
	})
	if err != nil {
		return "", fmt.Errorf("consuming from %s: %w", topic, err)
	}
	if !seen {
		return "", Failf(KindNotObserved, "payload %s not observed on %s within %s", payload, topic, c.consumeTimeout)
	}
	return payload, nil
}

func (c *kafkaChecker) logTransient(op, topic string, err error) {
	if err != nil && isTransientBrokerError(err) {
		c.logger.Debug("transient broker error", "op", op, "topic", topic, "error", err)
	}
}

// isTransientBrokerError reports whether err means the broker is not ready
// yet (no leader, unknown topic right after creation) or timed out.
func isTransientBrokerError(err error) bool {
	if err == nil {
		return false
	}

	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) {
		for _, e := range werrs {
			if e != nil && isTransientBrokerError(e) {
				return true
			}
		}
		return false
	}

	for _, kerr := range []kafka.Error{
		kafka.LeaderNotAvailable,
		kafka.BrokerNotAvailable,
		kafka.NotLeaderForPartition,
		kafka.UnknownTopicOrPartition,
		kafka.RequestTimedOut,
	} {
		if errors.Is(err, kerr) {
			return true
		}
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// kafkaGoClient implements brokerClient with segmentio/kafka-go. Every call
// opens and closes its own connections.
type kafkaGoClient struct {
	brokers []string
}

func (k *kafkaGoClient) dial(ctx context.Context) (*kafka.Conn, error) {
	var lastErr error
	for _, broker := range k.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("dialing brokers %v: %w", k.brokers, lastErr)
}

func (k *kafkaGoClient) EnsureTopic(ctx context.Context, topic string) error {
	conn, err := k.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("looking up controller: %w", err)
	}
	ctrl, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dialing controller: %w", err)
	}
	defer ctrl.Close()

	// CreateTopics reports an existing topic as success.
	return ctrl.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}

func (k *kafkaGoClient) Produce(ctx context.Context, topic string, payload []byte) error {
	w := &kafka.Writer{
		Addr:         kafka.TCP(k.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
	defer w.Close()

	return w.WriteMessages(ctx, kafka.Message{Value: payload})
}

func (k *kafkaGoClient) Consume(ctx context.Context, topic, groupID string, timeout time.Duration, match func([]byte) bool) (bool, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
	defer r.Close()

	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		msg, err := r.FetchMessage(readCtx)
		if err != nil {
			if readCtx.Err() != nil && ctx.Err() == nil {
				return false, nil
			}
			return false, err
		}
		if match(msg.Value) {
			return true, nil
		}
	}
}
