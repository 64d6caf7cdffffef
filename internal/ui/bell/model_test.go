package bell_test

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signnatural/academy-cli/internal/keys"
	"github.com/signnatural/academy-cli/internal/notify"
	"github.com/signnatural/academy-cli/internal/ui/bell"
)

type fakeBackend struct {
	markedOne    []string
	markAllCalls int
}

func (f *fakeBackend) ListNotifications(ctx context.Context) ([]notify.Event, error) {
	return nil, nil
}

func (f *fakeBackend) MarkNotificationRead(ctx context.Context, id string) error {
	f.markedOne = append(f.markedOne, id)
	return nil
}

func (f *fakeBackend) MarkAllNotificationsRead(ctx context.Context) error {
	f.markAllCalls++
	return nil
}

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

// newFeed builds a feed over an engine that is never started, so tests
// drive it purely through messages.
func newFeed(t *testing.T, backend notify.Backend) (bell.Model, *notify.Sync) {
	t.Helper()
	s := notify.New(notify.Config{
		Scope:   notify.ScopeUser,
		Backend: backend,
		Tokens:  staticTokens("tok"),
	})
	t.Cleanup(s.Close)
	return bell.New(s, keys.DefaultKeyMap(), 80, 24), s
}

func snapshotOf(items ...notify.Notification) notify.Snapshot {
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	return notify.Snapshot{Items: items, Unread: unread, Connected: true}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestFeed_AppliesOwnSnapshotsOnly(t *testing.T) {
	m, s := newFeed(t, &fakeBackend{})
	_, other := newFeed(t, &fakeBackend{})

	snap := snapshotOf(notify.Notification{ID: "n1", Title: "New booking", CreatedAt: time.Now()})
	m, _ = m.Update(bell.SnapshotMsg{Sync: s, Snapshot: snap})
	assert.Equal(t, 1, m.Unread())
	assert.True(t, m.Connected())

	// A snapshot from a different engine must not land here.
	foreign := snapshotOf()
	foreign.Connected = false
	m, _ = m.Update(bell.SnapshotMsg{Sync: other, Snapshot: foreign})
	assert.Equal(t, 1, m.Unread())
	assert.True(t, m.Connected())
}

func TestFeed_MarkReadOnSelected(t *testing.T) {
	backend := &fakeBackend{}
	m, s := newFeed(t, backend)

	snap := snapshotOf(
		notify.Notification{ID: "n1", Title: "New booking", CreatedAt: time.Now()},
		notify.Notification{ID: "n2", Title: "Ticket reply", CreatedAt: time.Now().Add(-time.Minute)},
	)
	m, _ = m.Update(bell.SnapshotMsg{Sync: s, Snapshot: snap})

	// Move the cursor to the second row and mark it read.
	m, _ = m.Update(keyPress('j'))
	var cmd tea.Cmd
	m, cmd = m.Update(keyPress('m'))
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, []string{"n2"}, backend.markedOne)
}

func TestFeed_MarkReadSkipsAlreadyRead(t *testing.T) {
	backend := &fakeBackend{}
	m, s := newFeed(t, backend)

	snap := snapshotOf(notify.Notification{ID: "n1", Title: "New booking", Read: true, CreatedAt: time.Now()})
	m, _ = m.Update(bell.SnapshotMsg{Sync: s, Snapshot: snap})

	_, cmd := m.Update(keyPress('m'))
	assert.Nil(t, cmd)
	assert.Empty(t, backend.markedOne)
}

func TestFeed_MarkAllRead(t *testing.T) {
	backend := &fakeBackend{}
	m, s := newFeed(t, backend)

	snap := snapshotOf(
		notify.Notification{ID: "n1", Title: "New booking", CreatedAt: time.Now()},
		notify.Notification{ID: "n2", Title: "Ticket reply", CreatedAt: time.Now()},
	)
	m, _ = m.Update(bell.SnapshotMsg{Sync: s, Snapshot: snap})

	_, cmd := m.Update(keyPress('M'))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, 1, backend.markAllCalls)
}

func TestFeed_CursorClampsOnShrink(t *testing.T) {
	backend := &fakeBackend{}
	m, s := newFeed(t, backend)

	m, _ = m.Update(bell.SnapshotMsg{Sync: s, Snapshot: snapshotOf(
		notify.Notification{ID: "n1", CreatedAt: time.Now()},
		notify.Notification{ID: "n2", CreatedAt: time.Now()},
		notify.Notification{ID: "n3", CreatedAt: time.Now()},
	)})
	m, _ = m.Update(keyPress('j'))
	m, _ = m.Update(keyPress('j'))

	// The feed shrank underneath the cursor.
	m, _ = m.Update(bell.SnapshotMsg{Sync: s, Snapshot: snapshotOf(
		notify.Notification{ID: "n1", CreatedAt: time.Now()},
	)})

	// Marking must target the only remaining row, not panic.
	var cmd tea.Cmd
	m, cmd = m.Update(keyPress('m'))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"n1"}, backend.markedOne)
}

func TestFeed_EmptyViewRenders(t *testing.T) {
	m, _ := newFeed(t, &fakeBackend{})
	assert.Contains(t, m.View(), "No notifications")
}
