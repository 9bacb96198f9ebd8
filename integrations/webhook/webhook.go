package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"hanzikit/core"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Hanzikit-Signature"

// Payload is the JSON document posted for each event.
type Payload struct {
	Event core.Event `json:"event"`
	// Text is the chat message for the event, when a renderer produced one.
	Text string `json:"text,omitempty"`
}

// Sink posts domain events to configured HTTP endpoints.
// It is synchronous for determinism; subscribe it to an async bus when
// endpoints are slow.
type Sink struct {
	client    *http.Client
	endpoints []string
	types     map[core.EventType]bool
	render    func(core.Event) string
	secret    []byte
	logger    *slog.Logger
	failures  atomic.Int64
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTypes limits delivery to the given event types. Defaults to unlocks and level-ups.
func WithTypes(types ...core.EventType) Option {
	return func(s *Sink) {
		s.types = make(map[core.EventType]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}
}

// WithRenderer sets the function producing Payload.Text.
func WithRenderer(fn func(core.Event) string) Option { return func(s *Sink) { s.render = fn } }

// WithSecret signs every body with key.
func WithSecret(key string) Option {
	return func(s *Sink) {
		if key != "" {
			s.secret = []byte(key)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		types: map[core.EventType]bool{
			core.EventAchievementUnlocked: true,
			core.EventLevelUp:             true,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// Failures counts deliveries that errored or got a non-2xx answer.
func (s *Sink) Failures() int64 { return s.failures.Load() }

// OnEvent posts the event to all endpoints. Failures are logged and counted,
// never retried.
func (s *Sink) OnEvent(e core.Event) {
	if len(s.endpoints) == 0 || !s.types[e.Type] {
		return
	}
	p := Payload{Event: e}
	if s.render != nil {
		p.Text = s.render(e)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return
	}
	var sig string
	if s.secret != nil {
		mac := hmac.New(sha256.New, s.secret)
		mac.Write(body)
		sig = hex.EncodeToString(mac.Sum(nil))
	}
	for _, ep := range s.endpoints {
		if err := s.post(ep, body, sig); err != nil {
			s.failures.Add(1)
			s.logger.Warn("webhook delivery failed", "endpoint", ep, "event", e.Type, "error", err)
		}
	}
}

func (s *Sink) post(ep string, body []byte, sig string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, ep, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct{ code int }

func (e *statusError) Error() string { return "unexpected status " + http.StatusText(e.code) }
