package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signnatural/academy-cli/internal/notify"
)

const waitFor = 3 * time.Second
const tick = 10 * time.Millisecond

// staticTokens is a TokenSource with a fixed token.
type staticTokens struct {
	mu    sync.Mutex
	token string
}

func (s *staticTokens) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// fakeBackend implements notify.Backend in memory.
type fakeBackend struct {
	mu           sync.Mutex
	events       []notify.Event
	listErr      error
	listCalls    int
	listGate     chan struct{} // when non-nil, List blocks until closed
	markOneErr   error
	markAllErr   error
	markedOne    []string
	markAllCalls int
}

func (f *fakeBackend) ListNotifications(ctx context.Context) ([]notify.Event, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	events := make([]notify.Event, len(f.events))
	copy(events, f.events)
	err := f.listErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (f *fakeBackend) MarkNotificationRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markOneErr != nil {
		return f.markOneErr
	}
	f.markedOne = append(f.markedOne, id)
	return nil
}

func (f *fakeBackend) MarkAllNotificationsRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markAllErr != nil {
		return f.markAllErr
	}
	f.markAllCalls++
	return nil
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func eventsFromJSON(t *testing.T, payload string) []notify.Event {
	t.Helper()
	var events []notify.Event
	require.NoError(t, json.Unmarshal([]byte(payload), &events))
	return events
}

// streamServer is a faked server-push endpoint.
type streamServer struct {
	srv      *httptest.Server
	msgs     chan string
	connects atomic.Int32
	fail     atomic.Bool
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()
	s := &streamServer{msgs: make(chan string, 64)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.connects.Add(1)

		if s.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case msg := <-s.msgs:
				fmt.Fprintf(w, "data: %s\n\n", msg)
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *streamServer) push(payload string) {
	s.msgs <- payload
}

func (s *streamServer) url() string {
	return s.srv.URL + "/api/notifications/stream"
}

func newTestSync(
	t *testing.T,
	scope notify.Scope,
	backend notify.Backend,
	streamURL string,
	mutate ...func(*notify.Config),
) *notify.Sync {
	t.Helper()
	cfg := notify.Config{
		Scope:         scope,
		Backend:       backend,
		Tokens:        &staticTokens{token: "tok"},
		StreamURL:     streamURL,
		Logger:        slog.New(slog.DiscardHandler),
		ReconnectBase: 10 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s := notify.New(cfg)
	t.Cleanup(s.Close)
	return s
}

func TestSync_NoAuthShortCircuit(t *testing.T) {
	backend := &fakeBackend{}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url(), func(c *notify.Config) {
		c.Tokens = &staticTokens{token: ""}
	})
	s.Start()
	s.Close()

	assert.Zero(t, backend.calls(), "no REST calls without a token")
	assert.Zero(t, server.connects.Load(), "no stream connections without a token")

	snap := s.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Zero(t, snap.Unread)
	assert.False(t, snap.Connected)
}

func TestSync_HydrationFiltersDedupesAndSorts(t *testing.T) {
	backend := &fakeBackend{events: eventsFromJSON(t, `[
		{"id":"a","type":"new_booking","audience":"user","read":false,"createdAt":"2024-01-01T00:00:00Z","message":"first write"},
		{"id":"b","type":"ticket_replied","audience":"user","read":true,"createdAt":"2024-01-02T00:00:00Z"},
		{"id":"c","type":"new_booking","audience":"admin","read":false,"createdAt":"2024-01-03T00:00:00Z"},
		{"id":"a","type":"new_booking","audience":"user","read":false,"createdAt":"2024-01-01T00:00:00Z","message":"last write"}
	]`)}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected
	}, waitFor, tick, "stream should connect after hydration")

	snap := s.Snapshot()
	require.Len(t, snap.Items, 2, "admin row filtered, duplicate collapsed")
	assert.Equal(t, "b", snap.Items[0].ID, "sorted newest first")
	assert.Equal(t, "a", snap.Items[1].ID)
	assert.Equal(t, "last write", snap.Items[1].Message, "hydration dedupe is last-write-wins")
	assert.Equal(t, 1, snap.Unread)
}

func TestSync_StreamDedupFirstInsertWins(t *testing.T) {
	backend := &fakeBackend{events: eventsFromJSON(t, `[
		{"id":"a","type":"new_booking","audience":"user","read":false,"createdAt":"2024-01-01T00:00:00Z","message":"from rest"}
	]`)}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected
	}, waitFor, tick)

	server.push(`{"id":"a","type":"new_booking","message":"from stream"}`)
	server.push(`{"id":"sentinel","type":"ticket_replied"}`)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.Items) > 0 && snap.Items[0].ID == "sentinel"
	}, waitFor, tick)

	snap := s.Snapshot()
	var countA int
	for _, n := range snap.Items {
		if n.ID == "a" {
			countA++
			assert.Equal(t, "from rest", n.Message, "earlier insert wins over same-id push")
		}
	}
	assert.Equal(t, 1, countA)
}

func TestSync_CapAtFifty(t *testing.T) {
	backend := &fakeBackend{}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected
	}, waitFor, tick)

	for i := 0; i < 60; i++ {
		server.push(fmt.Sprintf(`{"id":"evt-%d","type":"new_booking"}`, i))
	}

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.Items) == 50 && snap.Items[0].ID == "evt-59"
	}, waitFor, tick)

	snap := s.Snapshot()
	assert.Len(t, snap.Items, 50)
	assert.Equal(t, "evt-10", snap.Items[49].ID, "oldest pushes evicted")
}

func TestSync_AdminScopeFiltering(t *testing.T) {
	backend := &fakeBackend{}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeAdmin, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected
	}, waitFor, tick)

	server.push(`{"id":"x1","type":"new_booking"}`)                           // not admin_board
	server.push(`{"id":"x2","type":"user_registered","kind":"admin_board"}`)  // off allow-list
	server.push(`{"id":"ok","type":"testimonial_approved","kind":"admin_board"}`)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.Items) > 0 && snap.Items[0].ID == "ok"
	}, waitFor, tick)

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Success story approved", snap.Items[0].Title)
}

func TestSync_UserScopeRejectsAdminBoard(t *testing.T) {
	backend := &fakeBackend{}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected
	}, waitFor, tick)

	server.push(`{"id":"x1","type":"testimonial_approved","kind":"admin_board"}`)
	server.push(`{"id":"ok","type":"booking_confirmed"}`)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.Items) > 0 && snap.Items[0].ID == "ok"
	}, waitFor, tick)

	assert.Len(t, s.Snapshot().Items, 1)
}

func TestSync_MalformedPayloadDiscarded(t *testing.T) {
	backend := &fakeBackend{}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected
	}, waitFor, tick)

	server.push(`this is not json`)
	server.push(`{"id":"ok","type":"ticket_replied"}`)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.Items) > 0 && snap.Items[0].ID == "ok"
	}, waitFor, tick, "a bad message must not break the stream")

	assert.Len(t, s.Snapshot().Items, 1)
}

func TestSync_HiddenSuppressesUnreadIncrement(t *testing.T) {
	backend := &fakeBackend{}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected
	}, waitFor, tick)

	s.SetVisible(false)
	server.push(`{"id":"h1","type":"new_booking"}`)
	server.push(`{"id":"h2","type":"new_booking"}`)

	require.Eventually(t, func() bool {
		return len(s.Snapshot().Items) == 2
	}, waitFor, tick)
	assert.Zero(t, s.Snapshot().Unread, "hidden pushes land in items without bumping the badge")

	// Returning to visibility does not reconcile the count.
	s.SetVisible(true)
	assert.Zero(t, s.Snapshot().Unread)

	server.push(`{"id":"h3","type":"new_booking"}`)
	require.Eventually(t, func() bool {
		return s.Snapshot().Unread == 1
	}, waitFor, tick)
}

func TestSync_MarkOneRead(t *testing.T) {
	backend := &fakeBackend{events: eventsFromJSON(t, `[
		{"id":"a","type":"new_booking","audience":"user","read":false,"createdAt":"2024-01-01T00:00:00Z"}
	]`)}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return len(s.Snapshot().Items) == 1
	}, waitFor, tick)

	s.MarkOneRead(context.Background(), "a")

	snap := s.Snapshot()
	assert.True(t, snap.Items[0].Read)
	assert.Zero(t, snap.Unread)
	assert.Equal(t, []string{"a"}, backend.markedOne)

	// Idempotent locally: a second call cannot underflow the counter.
	s.MarkOneRead(context.Background(), "a")
	assert.Zero(t, s.Snapshot().Unread)
}

func TestSync_MarkOneReadFailureLeavesStateUntouched(t *testing.T) {
	backend := &fakeBackend{
		events: eventsFromJSON(t, `[
			{"id":"a","type":"new_booking","audience":"user","read":false,"createdAt":"2024-01-01T00:00:00Z"}
		]`),
		markOneErr: errors.New("simulated 500"),
	}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return len(s.Snapshot().Items) == 1
	}, waitFor, tick)

	before := s.Snapshot()
	s.MarkOneRead(context.Background(), "a")
	after := s.Snapshot()

	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Unread, after.Unread)
}

func TestSync_MarkAllRead(t *testing.T) {
	backend := &fakeBackend{events: eventsFromJSON(t, `[
		{"id":"a","type":"new_booking","audience":"user","read":false,"createdAt":"2024-01-01T00:00:00Z"},
		{"id":"b","type":"ticket_replied","audience":"user","read":false,"createdAt":"2024-01-02T00:00:00Z"}
	]`)}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Unread == 2
	}, waitFor, tick)

	s.MarkAllRead(context.Background())

	snap := s.Snapshot()
	assert.Zero(t, snap.Unread)
	for _, n := range snap.Items {
		assert.True(t, n.Read)
	}
	assert.Equal(t, 1, backend.markAllCalls)
}

func TestSync_MarkAllReadFailureLeavesStateUntouched(t *testing.T) {
	backend := &fakeBackend{
		events: eventsFromJSON(t, `[
			{"id":"a","type":"new_booking","audience":"user","read":false,"createdAt":"2024-01-01T00:00:00Z"}
		]`),
		markAllErr: errors.New("simulated 500"),
	}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Unread == 1
	}, waitFor, tick)

	s.MarkAllRead(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Unread)
	assert.False(t, snap.Items[0].Read)
}

func TestSync_TeardownMidHydration(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{
		events: eventsFromJSON(t, `[
			{"id":"late","type":"new_booking","audience":"user","read":false,"createdAt":"2024-01-01T00:00:00Z"}
		]`),
		listGate: gate,
	}
	server := newStreamServer(t)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	go func() {
		time.Sleep(30 * time.Millisecond)
		close(gate)
	}()
	s.Close()

	snap := s.Snapshot()
	assert.Empty(t, snap.Items, "late hydration must not land after close")
	assert.Zero(t, snap.Unread)

	// Nothing was published either: the channel closes on teardown, so
	// the first receive must report a closed channel, not a snapshot.
	u, ok := <-s.Updates()
	require.False(t, ok, "unexpected update after close: %+v", u)
}

func TestSync_ReconnectRetriesWithoutRehydrating(t *testing.T) {
	backend := &fakeBackend{}
	server := newStreamServer(t)
	server.fail.Store(true)

	s := newTestSync(t, notify.ScopeUser, backend, server.url())
	s.Start()

	require.Eventually(t, func() bool {
		return server.connects.Load() >= 3
	}, waitFor, tick, "client owns its reconnect loop")

	assert.False(t, s.Snapshot().Connected)
	assert.Equal(t, 1, backend.calls(), "reconnects never re-run hydration")

	// Backend recovers; the next attempt connects.
	server.fail.Store(false)
	require.Eventually(t, func() bool {
		return s.Snapshot().Connected
	}, waitFor, tick)
}

func TestSync_OnEventCallbackPanicsAreRecovered(t *testing.T) {
	backend := &fakeBackend{}
	server := newStreamServer(t)

	var mu sync.Mutex
	var raws []string
	s := newTestSync(t, notify.ScopeUser, backend, server.url(), func(c *notify.Config) {
		c.OnEvent = func(raw []byte) {
			mu.Lock()
			raws = append(raws, string(raw))
			mu.Unlock()
			panic("consumer bug")
		}
	})
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected
	}, waitFor, tick)

	server.push(`{"id":"p1","type":"new_booking"}`)
	server.push(`{"id":"p2","type":"new_booking"}`)

	require.Eventually(t, func() bool {
		return len(s.Snapshot().Items) == 2
	}, waitFor, tick, "a panicking callback must not break the stream loop")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, raws, 2)
	assert.JSONEq(t, `{"id":"p1","type":"new_booking"}`, raws[0])
}
