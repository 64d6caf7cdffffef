package model

import "time"

// TestimonialStatus is the moderation state of a success story.
type TestimonialStatus string

const (
	TestimonialPending  TestimonialStatus = "pending"
	TestimonialApproved TestimonialStatus = "approved"
	TestimonialRejected TestimonialStatus = "rejected"
)

// Testimonial is a student success story submitted for moderation.
type Testimonial struct {
	ID         string            `json:"id"`
	AuthorID   string            `json:"authorId"`
	AuthorName string            `json:"authorName"`
	Body       string            `json:"body"`
	Rating     int               `json:"rating"`
	Status     TestimonialStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketAnswered TicketStatus = "answered"
	TicketClosed   TicketStatus = "closed"
)

// Ticket is a support request thread between a student and staff.
type Ticket struct {
	ID        string       `json:"id"`
	Subject   string       `json:"subject"`
	Body      string       `json:"body"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
