package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// LogSink writes events to the structured log. It is the default sink.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a sink that logs every event at info level.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(ctx context.Context, ev Event) error {
	s.log.InfoContext(ctx, "notification",
		"event", string(ev.Type),
		"actor", ev.ActorID,
		"target_kind", ev.TargetKind,
		"target_id", ev.TargetID,
		"recipient", ev.Recipient)
	return nil
}

// WebhookSink POSTs events as JSON to a configured endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink with a bounded request timeout.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *WebhookSink) Deliver(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// MemorySink records events for inspection in tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Deliver(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of everything delivered so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Notifier fans events out to a sink, swallowing delivery errors.
type Notifier struct {
	sink Sink
	log  *slog.Logger
}

// NewNotifier wraps a sink. A nil sink drops everything.
func NewNotifier(sink Sink, log *slog.Logger) *Notifier {
	return &Notifier{sink: sink, log: log}
}

// Emit delivers the event. Failures are logged at warn and discarded so
// callers never fail because a notification could not be sent.
func (n *Notifier) Emit(ctx context.Context, ev Event) {
	if n == nil || n.sink == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := n.sink.Deliver(ctx, ev); err != nil {
		n.log.WarnContext(ctx, "notification delivery failed",
			"event", string(ev.Type), "error", err)
	}
}
