// Package store caches catalog and booking data in a local SQLite
// database so dashboards render offline and between refreshes. The
// notification feed is deliberately not persisted; it is rebuilt from
// the backend on every run.
package store

import (
	"context"

	"github.com/signnatural/academy-cli/internal/model"
)

// CourseFilter controls filtering and pagination for course queries.
type CourseFilter struct {
	Level    *string
	Query    *string
	SortBy   string // "title", "published_at", "price_cents"
	SortDesc bool
	Limit    int
	Offset   int
}

// BookingFilter controls filtering for booking queries.
type BookingFilter struct {
	Status       *model.BookingStatus
	UpcomingOnly bool
	Limit        int
}

// Store defines the persistence interface for cached academy data.
type Store interface {
	UpsertCourses(ctx context.Context, courses []model.Course) error
	GetCourses(ctx context.Context, opts CourseFilter) ([]model.Course, error)

	UpsertWorkshops(ctx context.Context, workshops []model.Workshop) error
	GetUpcomingWorkshops(ctx context.Context, limit int) ([]model.Workshop, error)

	UpsertBookings(ctx context.Context, bookings []model.Booking) error
	GetBookings(ctx context.Context, opts BookingFilter) ([]model.Booking, error)

	Close() error
}
