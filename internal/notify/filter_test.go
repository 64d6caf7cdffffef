package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAcceptStream_AdminScope(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{"admin board booking accepted", Event{Kind: KindAdminBoard, Type: "new_booking"}, true},
		{"admin board testimonial accepted", Event{Kind: KindAdminBoard, Type: "testimonial_approved"}, true},
		{"admin board ticket accepted", Event{Kind: KindAdminBoard, Type: "ticket_closed"}, true},
		{"admin board untyped accepted", Event{Kind: KindAdminBoard}, true},
		{"admin board off-list type dropped", Event{Kind: KindAdminBoard, Type: "user_registered"}, false},
		{"non-board message dropped", Event{Type: "new_booking"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, acceptStream(ScopeAdmin, tt.ev))
		})
	}
}

func TestAcceptStream_UserScope(t *testing.T) {
	assert.False(t, acceptStream(ScopeUser, Event{Kind: KindAdminBoard, Type: "new_booking"}))
	assert.True(t, acceptStream(ScopeUser, Event{Type: "booking_confirmed"}))
	assert.True(t, acceptStream(ScopeUser, Event{Type: "anything_else"}))
}

func TestNextDelay_MonotonicAndCapped(t *testing.T) {
	s := New(Config{Scope: ScopeUser})

	var prev time.Duration
	for failures := 1; failures <= 40; failures++ {
		d := s.nextDelay(failures)
		assert.GreaterOrEqual(t, d, prev, "delay must be non-decreasing")
		assert.LessOrEqual(t, d, 30*time.Second, "delay must cap at 30s")
		prev = d
	}

	assert.Equal(t, time.Second, s.nextDelay(1))
	assert.Equal(t, 5*time.Second, s.nextDelay(5))
	assert.Equal(t, 30*time.Second, s.nextDelay(30))
	assert.Equal(t, 30*time.Second, s.nextDelay(31))
}
