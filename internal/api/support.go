package api

import (
	"context"

	"github.com/signnatural/academy-cli/internal/model"
)

// SubmitTestimonialRequest is the payload for POST /api/testimonials.
type SubmitTestimonialRequest struct {
	Body   string `json:"body"`
	Rating int    `json:"rating,omitempty"`
}

// Testimonials fetches success stories. Admins see all moderation
// states; regular users see approved stories plus their own.
func (c *Client) Testimonials(ctx context.Context) ([]model.Testimonial, error) {
	var testimonials []model.Testimonial
	if err := c.Get(ctx, "/api/testimonials", &testimonials); err != nil {
		return nil, err
	}
	return testimonials, nil
}

// SubmitTestimonial submits a new success story for moderation.
func (c *Client) SubmitTestimonial(ctx context.Context, req SubmitTestimonialRequest) (*model.Testimonial, error) {
	var testimonial model.Testimonial
	if err := c.Post(ctx, "/api/testimonials", req, &testimonial); err != nil {
		return nil, err
	}
	return &testimonial, nil
}

// CreateTicketRequest is the payload for POST /api/tickets.
type CreateTicketRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Tickets fetches the caller's support tickets.
func (c *Client) Tickets(ctx context.Context) ([]model.Ticket, error) {
	var tickets []model.Ticket
	if err := c.Get(ctx, "/api/tickets", &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CreateTicket opens a new support ticket.
func (c *Client) CreateTicket(ctx context.Context, req CreateTicketRequest) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := c.Post(ctx, "/api/tickets", req, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}
