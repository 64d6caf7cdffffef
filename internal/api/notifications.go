package api

import (
	"context"
	"net/url"

	"github.com/signnatural/academy-cli/internal/notify"
)

// ListNotifications fetches the current notification list for the
// authenticated caller. Rows come back in the heterogeneous wire shape;
// normalization is the notify engine's job.
func (c *Client) ListNotifications(ctx context.Context) ([]notify.Event, error) {
	var events []notify.Event
	if err := c.Get(ctx, "/api/notifications", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// MarkNotificationRead marks a single notification read. Idempotent on
// the backend; the response body is not needed.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.Patch(ctx, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllNotificationsRead marks every notification read for the caller.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.Patch(ctx, "/api/notifications/read-all", nil, nil)
}

// NotificationStreamURL returns the absolute server-push endpoint the
// notify engine connects to.
func (c *Client) NotificationStreamURL() string {
	return c.baseURL + "/api/notifications/stream"
}
