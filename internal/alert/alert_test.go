package alert_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazz-dev/conncheck/internal/alert"
	"github.com/hazz-dev/conncheck/internal/checker"
)

func statusPtr(s checker.Status) *checker.Status {
	return &s
}

func makeResult(service string, status checker.Status) checker.Result {
	return checker.Result{
		Service:    service,
		Client:     "go-redis",
		Status:     status,
		DurationMs: 10,
	}
}

// webhook records every payload it receives.
type webhook struct {
	mu        sync.Mutex
	payloads  []map[string]any
	userAgent string
}

func (h *webhook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.payloads)
}

func newWebhook(t *testing.T, status int) (*httptest.Server, *webhook) {
	t.Helper()
	h := &webhook{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p map[string]any
		json.Unmarshal(body, &p)
		h.mu.Lock()
		h.payloads = append(h.payloads, p)
		h.userAgent = r.Header.Get("User-Agent")
		h.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, h
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		prev   *checker.Status
		status checker.Status
		want   alert.Event
		ok     bool
	}{
		{"first result", nil, checker.StatusFail, "", false},
		{"pass to fail", statusPtr(checker.StatusPass), checker.StatusFail, alert.EventDown, true},
		{"fail to pass", statusPtr(checker.StatusFail), checker.StatusPass, alert.EventRecovered, true},
		{"unchanged pass", statusPtr(checker.StatusPass), checker.StatusPass, "", false},
		{"unchanged fail", statusPtr(checker.StatusFail), checker.StatusFail, "", false},
		{"pass to skip", statusPtr(checker.StatusPass), checker.StatusSkip, "", false},
		{"skip to fail", statusPtr(checker.StatusSkip), checker.StatusFail, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := alert.Detect(makeResult("Valkey", tc.status), tc.prev)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Detect = (%q, %v), want (%q, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestAlerter_TransitionsSendWebhook(t *testing.T) {
	srv, hook := newWebhook(t, http.StatusOK)

	a := alert.New(srv.URL, time.Hour, nil)
	a.Notify(makeResult("Valkey", checker.StatusFail), statusPtr(checker.StatusPass))
	a.Notify(makeResult("Kafka", checker.StatusPass), statusPtr(checker.StatusFail))
	a.Wait()

	if hook.count() != 2 {
		t.Errorf("expected 2 webhook calls, got %d", hook.count())
	}
}

func TestAlerter_IgnoredResults_NoWebhook(t *testing.T) {
	srv, hook := newWebhook(t, http.StatusOK)

	a := alert.New(srv.URL, time.Hour, nil)
	a.Notify(makeResult("Valkey", checker.StatusFail), nil)
	a.Notify(makeResult("Valkey", checker.StatusPass), statusPtr(checker.StatusPass))
	a.Notify(makeResult("MySQL", checker.StatusSkip), statusPtr(checker.StatusPass))
	a.Notify(makeResult("Kafka", checker.StatusFail), statusPtr(checker.StatusSkip))
	a.Wait()

	if hook.count() != 0 {
		t.Errorf("expected no webhook calls, got %d", hook.count())
	}
}

func TestAlerter_Cooldown_SameEvent(t *testing.T) {
	srv, hook := newWebhook(t, http.StatusOK)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}

	a := alert.New(srv.URL, 5*time.Minute, nil)
	a.SetClock(clock.Now)

	a.Notify(makeResult("Valkey", checker.StatusFail), statusPtr(checker.StatusPass))
	clock.Advance(time.Minute)
	a.Notify(makeResult("Valkey", checker.StatusFail), statusPtr(checker.StatusPass))
	a.Wait()
	if hook.count() != 1 {
		t.Fatalf("expected second outage within cooldown to be suppressed, got %d calls", hook.count())
	}

	clock.Advance(5 * time.Minute)
	a.Notify(makeResult("Valkey", checker.StatusFail), statusPtr(checker.StatusPass))
	a.Wait()
	if hook.count() != 2 {
		t.Errorf("expected outage after cooldown to be sent, got %d calls", hook.count())
	}
}

func TestAlerter_RecoveryNotHeldByOutageCooldown(t *testing.T) {
	srv, hook := newWebhook(t, http.StatusOK)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}

	a := alert.New(srv.URL, time.Hour, nil)
	a.SetClock(clock.Now)

	a.Notify(makeResult("Valkey", checker.StatusFail), statusPtr(checker.StatusPass))
	clock.Advance(time.Second)
	a.Notify(makeResult("Valkey", checker.StatusPass), statusPtr(checker.StatusFail))
	a.Wait()

	if hook.count() != 2 {
		t.Errorf("expected outage and recovery to both be sent, got %d", hook.count())
	}
}

func TestAlerter_Cooldown_PerService(t *testing.T) {
	srv, hook := newWebhook(t, http.StatusOK)

	a := alert.New(srv.URL, time.Hour, nil)
	a.Notify(makeResult("Valkey", checker.StatusFail), statusPtr(checker.StatusPass))
	a.Notify(makeResult("Kafka", checker.StatusFail), statusPtr(checker.StatusPass))
	a.Wait()

	if hook.count() != 2 {
		t.Errorf("expected 2 webhook calls (one per service), got %d", hook.count())
	}
}

func TestAlerter_WebhookPayload(t *testing.T) {
	srv, hook := newWebhook(t, http.StatusOK)
	seen := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	a := alert.New(srv.URL, time.Hour, nil)
	a.SetClock(func() time.Time { return seen })
	a.Notify(checker.Result{
		Service:    "PostgreSQL",
		Client:     "go-pgx",
		Status:     checker.StatusFail,
		Detail:     "PgError: relation does not exist",
		DurationMs: 12,
	}, statusPtr(checker.StatusPass))
	a.Wait()

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(hook.payloads))
	}
	p := hook.payloads[0]
	want := map[string]any{
		"event":           "down",
		"service":         "PostgreSQL",
		"client":          "go-pgx",
		"status":          "FAIL",
		"previous_status": "PASS",
		"detail":          "PgError: relation does not exist",
		"duration_ms":     float64(12),
		"checked_at":      "2026-03-04T05:06:07Z",
		"source":          "conncheck",
	}
	for k, v := range want {
		if p[k] != v {
			t.Errorf("%s = %v, want %v", k, p[k], v)
		}
	}
	if !strings.HasPrefix(hook.userAgent, "conncheck/") {
		t.Errorf("unexpected user agent %q", hook.userAgent)
	}
}

func TestAlerter_HTTPError_DoesNotCrash(t *testing.T) {
	srv, hook := newWebhook(t, http.StatusInternalServerError)

	a := alert.New(srv.URL, time.Hour, nil)
	a.Notify(makeResult("MinIO", checker.StatusFail), statusPtr(checker.StatusPass))
	a.Wait()

	if hook.count() != 1 {
		t.Errorf("expected the webhook to be attempted once, got %d", hook.count())
	}
}

func TestAlerter_UnreachableWebhook(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a := alert.New(url, time.Hour, nil)
	a.Notify(makeResult("MinIO", checker.StatusFail), statusPtr(checker.StatusPass))
	a.Wait()
}
