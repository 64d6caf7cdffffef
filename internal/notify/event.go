package notify

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Scope identifies which audience a feed instance is restricted to.
type Scope string

const (
	ScopeAdmin Scope = "admin"
	ScopeUser  Scope = "user"
)

// KindAdminBoard tags stream broadcasts aimed at the admin board.
const KindAdminBoard = "admin_board"

// Event is the wire form of a notification as produced by either the
// REST list endpoint or the live stream. Producers disagree on field
// names, so most fields are optional and normalization is best-effort.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Text      string         `json:"text"`
	Link      string         `json:"link"`
	ActionURL string         `json:"actionUrl"`
	CreatedAt string         `json:"createdAt"`
	Read      *bool          `json:"read"`
	Audience  string         `json:"audience"`
	Meta      map[string]any `json:"meta"`

	raw    []byte
	fields map[string]any
}

// UnmarshalJSON keeps the original payload alongside the typed fields
// so correlation ids that only some producers send stay reachable.
func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var fields map[string]any
	_ = json.Unmarshal(b, &fields)

	*e = Event(p)
	e.raw = append([]byte(nil), b...)
	e.fields = fields
	return nil
}

// Raw returns the original wire payload, or nil when the event was
// constructed in code rather than decoded.
func (e *Event) Raw() []byte {
	return e.raw
}

// Ref returns the correlation id for key (e.g. "bookingId"), checking
// the top-level payload first and then the nested meta object. Numeric
// ids are rendered in decimal form.
func (e *Event) Ref(key string) string {
	if v, ok := e.fields[key]; ok {
		if s := refString(v); s != "" {
			return s
		}
	}
	if v, ok := e.Meta[key]; ok {
		return refString(v)
	}
	return ""
}

func refString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// Notification is the client-canonical form every consumer renders.
type Notification struct {
	// ID is the deduplication key: the server id when present, else a
	// synthetic type:timestamp composite.
	ID string

	// Type is the event kind, copied through from the wire record.
	Type string

	// Title is a human label derived from Type.
	Title string

	// Message is the display text.
	Message string

	// Link is the in-app destination for this notification.
	Link string

	// CreatedAt defaults to the arrival time when the source omits it.
	CreatedAt time.Time

	// Read is the seen flag.
	Read bool

	// Audience is "admin" or "user".
	Audience Scope

	// Raw keeps the source payload for debugging and extension.
	Raw []byte
}

// titleByType is the fixed lookup from event kind to display label.
var titleByType = map[string]string{
	"new_booking":           "New booking",
	"booking_updated":       "Booking updated",
	"booking_cancelled":     "Booking cancelled",
	"testimonial_submitted": "New success story",
	"testimonial_approved":  "Success story approved",
	"testimonial_rejected":  "Success story rejected",
	"ticket_created":        "New support ticket",
	"ticket_replied":        "Support ticket reply",
	"ticket_closed":         "Support ticket closed",
	"course_published":      "New course available",
	"workshop_scheduled":    "New workshop scheduled",
}

const genericTitle = "Notification"

// adminStreamTypes is the allow-list of event kinds the admin board
// accepts from the stream: booking, testimonial, and ticket lifecycle
// events. Everything else is dropped for the admin scope.
var adminStreamTypes = map[string]bool{
	"new_booking":           true,
	"booking_updated":       true,
	"booking_cancelled":     true,
	"testimonial_submitted": true,
	"testimonial_approved":  true,
	"testimonial_rejected":  true,
	"ticket_created":        true,
	"ticket_replied":        true,
	"ticket_closed":         true,
}

// defaultLink computes the in-app destination for an event kind when
// the server does not supply an explicit route.
func defaultLink(audience Scope, eventType string) string {
	base := "/dashboard"
	if audience == ScopeAdmin {
		base = "/admin"
	}

	switch {
	case eventType == "new_booking" || strings.HasPrefix(eventType, "booking"):
		return base + "/bookings"
	case strings.HasPrefix(eventType, "testimonial"):
		return base + "/testimonials"
	case strings.HasPrefix(eventType, "ticket"):
		return base + "/tickets"
	case eventType == "course_published":
		return base + "/courses"
	case eventType == "workshop_scheduled":
		return base + "/workshops"
	default:
		return base
	}
}

// Normalize maps a wire event into the canonical notification shape.
// The scope supplies the audience default; now supplies the timestamp
// default for sources that omit createdAt.
func Normalize(scope Scope, ev Event, now time.Time) Notification {
	createdAt := now
	if ev.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, ev.CreatedAt); err == nil {
			createdAt = t
		}
	}

	audience := scope
	switch {
	case ev.Audience == string(ScopeAdmin) || ev.Kind == KindAdminBoard:
		audience = ScopeAdmin
	case ev.Audience == string(ScopeUser):
		audience = ScopeUser
	}

	id := ev.ID
	if id == "" {
		id = fmt.Sprintf("%s:%d", ev.Type, createdAt.UnixMilli())
	}

	title, ok := titleByType[ev.Type]
	if !ok {
		title = genericTitle
	}

	message := ev.Message
	if message == "" {
		message = ev.Text
	}

	link := ev.Link
	if link == "" {
		link = ev.ActionURL
	}
	if link == "" {
		link = defaultLink(audience, ev.Type)
	}

	read := false
	if ev.Read != nil {
		read = *ev.Read
	}

	return Notification{
		ID:        id,
		Type:      ev.Type,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: createdAt,
		Read:      read,
		Audience:  audience,
		Raw:       ev.raw,
	}
}

// acceptStream applies the scope filter to a live stream event. Admin
// feeds only take admin-board broadcasts whose type is on the admin
// allow-list; user feeds reject admin-board broadcasts.
func acceptStream(scope Scope, ev Event) bool {
	if scope == ScopeAdmin {
		if ev.Kind != KindAdminBoard {
			return false
		}
		if ev.Type != "" && !adminStreamTypes[ev.Type] {
			return false
		}
		return true
	}
	return ev.Kind != KindAdminBoard
}
