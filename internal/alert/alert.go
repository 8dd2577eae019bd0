package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazz-dev/conncheck/internal/checker"
	"github.com/hazz-dev/conncheck/internal/version"
)

// Event names the direction of a status change.
type Event string

const (
	EventDown      Event = "down"
	EventRecovered Event = "recovered"
)

// Transition is a PASS/FAIL change of one service between two runs.
type Transition struct {
	Result   checker.Result
	Previous checker.Status
	Event    Event
	At       time.Time
}

// Detect reports whether result, compared with the previous status of its
// service, is worth an alert. First results, unchanged statuses and anything
// involving SKIP are not: SKIP only reflects a toggle.
func Detect(result checker.Result, previous *checker.Status) (Event, bool) {
	if previous == nil || result.Status == *previous {
		return "", false
	}
	switch {
	case *previous == checker.StatusPass && result.Status == checker.StatusFail:
		return EventDown, true
	case *previous == checker.StatusFail && result.Status == checker.StatusPass:
		return EventRecovered, true
	}
	return "", false
}

// Alerter posts transitions to a webhook. Repeats of the same event for the
// same service are suppressed for the cooldown; a recovery is never held
// back by the outage that preceded it.
type Alerter struct {
	webhookURL string
	cooldown   time.Duration
	client     *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
	inflight sync.WaitGroup
}

// New creates a new Alerter. Pass nil logger to use the default logger.
func New(webhookURL string, cooldown time.Duration, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		webhookURL: webhookURL,
		cooldown:   cooldown,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		now:        time.Now,
		lastSent:   make(map[string]time.Time),
	}
}

// SetClock replaces the time source used for cooldowns and timestamps.
func (a *Alerter) SetClock(now func() time.Time) {
	a.now = now
}

// Notify posts an alert for result when Detect accepts it and the cooldown
// for that service and event has elapsed. Delivery is asynchronous; call
// Wait to flush it.
func (a *Alerter) Notify(result checker.Result, previous *checker.Status) {
	event, ok := Detect(result, previous)
	if !ok {
		return
	}
	t := Transition{Result: result, Previous: *previous, Event: event, At: a.now()}

	key := result.Service + "/" + string(event)
	a.mu.Lock()
	if last, seen := a.lastSent[key]; seen && t.At.Sub(last) < a.cooldown {
		a.mu.Unlock()
		a.logger.Info("alert suppressed by cooldown", "service", result.Service, "event", event)
		return
	}
	a.lastSent[key] = t.At
	a.mu.Unlock()

	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		if err := a.send(context.Background(), t); err != nil {
			a.logger.Error("sending webhook", "service", result.Service, "event", event, "error", err)
		}
	}()
}

// Wait blocks until every pending webhook has been delivered or has failed.
func (a *Alerter) Wait() {
	a.inflight.Wait()
}

type webhookPayload struct {
	Event          Event  `json:"event"`
	Service        string `json:"service"`
	Client         string `json:"client"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status"`
	Detail         string `json:"detail"`
	DurationMs     int64  `json:"duration_ms"`
	CheckedAt      string `json:"checked_at"`
	Source         string `json:"source"`
}

func (a *Alerter) send(ctx context.Context, t Transition) error {
	body, err := json.Marshal(webhookPayload{
		Event:          t.Event,
		Service:        t.Result.Service,
		Client:         t.Result.Client,
		Status:         string(t.Result.Status),
		PreviousStatus: string(t.Previous),
		Detail:         t.Result.Detail,
		DurationMs:     t.Result.DurationMs,
		CheckedAt:      t.At.UTC().Format(time.RFC3339),
		Source:         "conncheck",
	})
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "conncheck/"+version.Version)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", a.webhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
