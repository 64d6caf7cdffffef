package api

import (
	"context"

	"github.com/signnatural/academy-cli/internal/model"
)

// Courses fetches the published course catalog.
func (c *Client) Courses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := c.Get(ctx, "/api/courses", &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// Workshops fetches the scheduled workshop list.
func (c *Client) Workshops(ctx context.Context) ([]model.Workshop, error) {
	var workshops []model.Workshop
	if err := c.Get(ctx, "/api/workshops", &workshops); err != nil {
		return nil, err
	}
	return workshops, nil
}

// Products fetches the product gallery.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.Get(ctx, "/api/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}
