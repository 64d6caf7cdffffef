// Package notify maintains a live, audience-scoped, deduplicated feed
// of academy notifications for one consumer: an initial REST snapshot,
// kept current by a server-push stream with client-owned reconnection.
//
// Each consumer owns its own Sync instance; there is no cross-instance
// sharing. A Sync is bound to one scope for its lifetime; a consumer
// whose scope changes tears the old instance down and creates a new
// one, which also re-checks the authentication gate.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"
)

// maxItems caps the in-memory feed at the most recent entries.
const maxItems = 50

const (
	defaultReconnectBase = time.Second
	defaultReconnectMax  = 30 * time.Second
)

// Backend is the subset of the REST API the sync engine needs.
// The api.Client satisfies it.
type Backend interface {
	ListNotifications(ctx context.Context) ([]Event, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// TokenSource supplies the bearer token at connection-setup time.
// The engine never mutates it; a token that appears after startup is
// only picked up by a new instance.
type TokenSource interface {
	Token() string
}

// Snapshot is a point-in-time copy of the feed state.
type Snapshot struct {
	// Items is the feed, newest first, at most 50 entries.
	Items []Notification

	// Unread counts items with Read=false.
	Unread int

	// Connected reports whether the live stream is currently open.
	Connected bool
}

// Config assembles a Sync.
type Config struct {
	// Scope is the audience filter, required.
	Scope Scope

	// Backend performs the REST calls (hydration and mark-read).
	Backend Backend

	// Tokens gates all network activity.
	Tokens TokenSource

	// StreamURL is the absolute URL of the server-push endpoint. The
	// bearer token is appended as a query parameter because this
	// transport cannot carry an Authorization header.
	StreamURL string

	// OnEvent, when set, receives the raw payload of every accepted
	// live message. Panics in the callback are recovered and must not
	// break the stream loop.
	OnEvent func(raw []byte)

	// HTTPClient dials the stream. It must not carry a request
	// timeout; the connection is long-lived. Defaults to a fresh
	// timeout-free client.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ReconnectBase and ReconnectMax tune the backoff schedule.
	// Zero values mean 1s and 30s.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
}

// Sync is one live notification feed. Create with New, start with
// Start, and always Close when the owning view unmounts.
type Sync struct {
	scope     Scope
	backend   Backend
	tokens    TokenSource
	streamURL string
	onEvent   func(raw []byte)
	httpc     *http.Client
	log       *slog.Logger

	reconnectBase time.Duration
	reconnectMax  time.Duration
	now           func() time.Time

	mu        sync.Mutex
	items     []Notification
	seen      map[string]bool
	unread    int
	connected bool
	visible   bool
	closed    bool

	updates   chan Snapshot
	startOnce sync.Once
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a Sync for the given scope. The engine is inert until
// Start is called.
func New(cfg Config) *Sync {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	base := cfg.ReconnectBase
	if base <= 0 {
		base = defaultReconnectBase
	}
	maxDelay := cfg.ReconnectMax
	if maxDelay <= 0 {
		maxDelay = defaultReconnectMax
	}

	return &Sync{
		scope:         cfg.Scope,
		backend:       cfg.Backend,
		tokens:        cfg.Tokens,
		streamURL:     cfg.StreamURL,
		onEvent:       cfg.OnEvent,
		httpc:         httpc,
		log:           log.With(slog.String("scope", string(cfg.Scope))),
		reconnectBase: base,
		reconnectMax:  maxDelay,
		now:           time.Now,
		seen:          make(map[string]bool),
		visible:       true,
		updates:       make(chan Snapshot, 32),
		done:          make(chan struct{}),
	}
}

// Scope returns the audience this feed is restricted to.
func (s *Sync) Scope() Scope {
	return s.scope
}

// Start launches the hydrate-then-stream loop. Without a bearer token
// the engine performs no network activity at all and stays at its
// empty defaults.
func (s *Sync) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		s.started = true
		s.cancel = cancel
		s.mu.Unlock()
		go s.run(ctx)
	})
}

// Close stops the engine, closes any open stream connection, and
// cancels a pending reconnect. No state update lands after Close
// returns, including from in-flight hydration.
func (s *Sync) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-s.done
	}
	// No publish can happen past the closed flag, so consumers blocked
	// on Updates get unblocked here.
	close(s.updates)
}

// Updates returns a channel carrying a snapshot after every state
// change. Slow consumers lose intermediate snapshots, never the
// ability to call Snapshot for the current state. Close closes the
// channel so blocked consumers unwind.
func (s *Sync) Updates() <-chan Snapshot {
	return s.updates
}

// Snapshot returns a copy of the current feed state.
func (s *Sync) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Sync) snapshotLocked() Snapshot {
	items := make([]Notification, len(s.items))
	copy(items, s.items)
	return Snapshot{
		Items:     items,
		Unread:    s.unread,
		Connected: s.connected,
	}
}

// SetVisible tells the feed whether its consumer is currently on
// screen. While hidden, live pushes still land in Items but do not
// bump Unread; the count is not reconciled when visibility returns.
// That approximation is intentional and documented behavior.
func (s *Sync) SetVisible(visible bool) {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
}

// MarkOneRead asks the backend to mark one notification read and, only
// on confirmation, flips the local flag and decrements Unread by at
// most one. Failures are swallowed: read-state is not safety-critical
// and the UI prefers a stale badge over an error banner.
func (s *Sync) MarkOneRead(ctx context.Context, id string) {
	if err := s.backend.MarkNotificationRead(ctx, id); err != nil {
		s.log.LogAttrs(ctx, slog.LevelDebug, "mark-read failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if !s.items[i].Read {
			items := make([]Notification, len(s.items))
			copy(items, s.items)
			items[i].Read = true
			s.items = items
			if s.unread > 0 {
				s.unread--
			}
		}
		break
	}
	s.mu.Unlock()
	s.publish()
}

// MarkAllRead asks the backend to mark every notification read and, on
// confirmation, flips all local flags and zeroes Unread. Failures are
// swallowed identically to MarkOneRead.
func (s *Sync) MarkAllRead(ctx context.Context) {
	if err := s.backend.MarkAllNotificationsRead(ctx); err != nil {
		s.log.LogAttrs(ctx, slog.LevelDebug, "mark-all-read failed",
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	items := make([]Notification, len(s.items))
	copy(items, s.items)
	for i := range items {
		items[i].Read = true
	}
	s.items = items
	s.unread = 0
	s.mu.Unlock()
	s.publish()
}

// run is the engine loop: authentication gate, one hydration, then the
// stream phase with capped linear backoff between reconnects. A
// reconnect reruns only the stream phase; hydration happens once.
func (s *Sync) run(ctx context.Context) {
	defer close(s.done)

	if s.tokens.Token() == "" {
		return
	}

	s.hydrate(ctx)

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}
		token := s.tokens.Token()
		if token == "" {
			// Signed out mid-life: stop without reconnecting.
			return
		}

		opened, err := s.consumeStream(ctx, token)
		s.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		if opened {
			failures = 0
		}
		failures++

		delay := s.nextDelay(failures)
		s.log.LogAttrs(ctx, slog.LevelDebug, "stream dropped, scheduling reconnect",
			slog.Int("consecutive_failures", failures),
			slog.Duration("delay", delay),
			slog.String("error", errString(err)),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextDelay computes the reconnect backoff: base times the number of
// consecutive failures, capped at the maximum.
func (s *Sync) nextDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	delay := time.Duration(failures) * s.reconnectBase
	if delay > s.reconnectMax {
		delay = s.reconnectMax
	}
	return delay
}

// hydrate fetches the baseline feed over REST. A failure leaves the
// default empty state; the stream phase proceeds regardless.
func (s *Sync) hydrate(ctx context.Context) {
	events, err := s.backend.ListNotifications(ctx)
	if err != nil {
		s.log.LogAttrs(ctx, slog.LevelDebug, "hydration failed",
			slog.String("error", err.Error()),
		)
		return
	}

	now := s.now()
	byID := make(map[string]int, len(events))
	items := make([]Notification, 0, len(events))
	for _, ev := range events {
		n := Normalize(s.scope, ev, now)
		// Defensive client-side audience filter; the server is
		// trusted but not exclusively relied upon.
		if n.Audience != s.scope {
			continue
		}
		if idx, ok := byID[n.ID]; ok {
			items[idx] = n
			continue
		}
		byID[n.ID] = len(items)
		items = append(items, n)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.items = items
	s.unread = unread
	s.rebuildSeenLocked()
	s.mu.Unlock()
	s.publish()
}

// consumeStream opens the server-push connection and dispatches
// messages until the stream drops. It reports whether the connection
// was successfully opened so the caller can reset its failure count.
func (s *Sync) consumeStream(ctx context.Context, token string) (bool, error) {
	streamURL := s.streamURL + "?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return false, fmt.Errorf("opening stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("unexpected stream status %d", resp.StatusCode)
	}

	s.setConnected(true)
	s.log.LogAttrs(ctx, slog.LevelDebug, "stream connected")

	reader := newEventReader(resp.Body)
	for {
		data, err := reader.Next()
		if err != nil {
			return true, err
		}
		s.handleMessage(data)
	}
}

// handleMessage applies one live payload: parse, scope-filter,
// normalize, dedupe-then-prepend, unread bookkeeping, side-channel
// callback. Malformed payloads are discarded; a single bad message
// must not break the stream.
func (s *Sync) handleMessage(raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		s.log.LogAttrs(context.Background(), slog.LevelDebug,
			"discarding malformed stream payload",
			slog.String("error", err.Error()),
		)
		return
	}

	if !acceptStream(s.scope, ev) {
		return
	}

	n := Normalize(s.scope, ev, s.now())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.seen[n.ID] {
		// Arrival order takes precedence over timestamp order for
		// stream-sourced items: always prepend.
		items := make([]Notification, 0, len(s.items)+1)
		items = append(items, n)
		items = append(items, s.items...)
		if len(items) > maxItems {
			items = items[:maxItems]
		}
		s.items = items
		s.rebuildSeenLocked()
		if s.visible {
			s.unread++
		}
	}
	s.mu.Unlock()
	s.publish()

	s.emit(raw)
}

// emit invokes the optional side-channel callback, recovering panics
// so consumer bugs cannot kill the stream loop.
func (s *Sync) emit(raw []byte) {
	if s.onEvent == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.LogAttrs(context.Background(), slog.LevelWarn,
				"event callback panicked",
				slog.Any("panic", r),
			)
		}
	}()
	s.onEvent(raw)
}

func (s *Sync) rebuildSeenLocked() {
	seen := make(map[string]bool, len(s.items))
	for _, n := range s.items {
		seen[n.ID] = true
	}
	s.seen = seen
}

func (s *Sync) setConnected(connected bool) {
	s.mu.Lock()
	if s.closed || s.connected == connected {
		s.mu.Unlock()
		return
	}
	s.connected = connected
	s.mu.Unlock()
	s.publish()
}

// publish sends the current snapshot without blocking; stale snapshots
// are dropped for slow consumers. The lock is held across the send so
// that no send can start once Close has set the closed flag, which
// makes closing the channel in Close safe.
func (s *Sync) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	snap := s.snapshotLocked()

	select {
	case s.updates <- snap:
	default:
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
