package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a reservation for a workshop session or a course cohort.
// Exactly one of WorkshopID or CourseID is set.
type Booking struct {
	ID           string        `json:"id" db:"id"`
	WorkshopID   string        `json:"workshopId" db:"workshop_id"`
	CourseID     string        `json:"courseId" db:"course_id"`
	Title        string        `json:"title" db:"title"`
	Status       BookingStatus `json:"status" db:"status"`
	ScheduledFor time.Time     `json:"scheduledFor" db:"scheduled_for"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`

	FetchedAt time.Time `json:"-" db:"fetched_at"`
}
