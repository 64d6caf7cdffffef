package api

import (
	"context"
	"time"

	"github.com/signnatural/academy-cli/internal/model"
)

// CreateBookingRequest is the payload for POST /api/bookings. Exactly
// one of WorkshopID or CourseID should be set.
type CreateBookingRequest struct {
	WorkshopID   string    `json:"workshopId,omitempty"`
	CourseID     string    `json:"courseId,omitempty"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

// Bookings fetches the caller's bookings.
func (c *Client) Bookings(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := c.Get(ctx, "/api/bookings", &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// CreateBooking places a new booking and returns the created record.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*model.Booking, error) {
	var booking model.Booking
	if err := c.Post(ctx, "/api/bookings", req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}
