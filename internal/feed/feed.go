// Package feed carries per-collection change notifications from the
// mutation gateway to live subscriptions. Notifications have no
// payload: a subscriber always re-fetches its full scoped snapshot.
package feed

import "context"

// Collection names published on the feed.
const (
	MaintenanceRequests = "maintenanceRequests"
	Messages            = "messages"
	RentPayments        = "rentPayments"
	Users               = "users"
)

type Feed interface {
	// Publish signals that the collection changed.
	Publish(ctx context.Context, collection string) error
	// Subscribe returns a channel that receives a coalesced signal
	// for every change to the collection, and a cancel function that
	// releases the underlying live-query resource. Failing to call
	// cancel leaks the subscription.
	Subscribe(ctx context.Context, collection string) (<-chan struct{}, func(), error)
}
