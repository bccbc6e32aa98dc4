// Package notifications renders incident emails and delivers them to page subscribers.
package notifications

import "context"

// Notification is a rendered message ready for delivery.
type Notification struct {
	To             string
	Subject        string
	Body           string
	UnsubscribeURL string
}

// Sender delivers notifications to a single channel.
type Sender interface {
	Send(ctx context.Context, notification Notification) error
}
