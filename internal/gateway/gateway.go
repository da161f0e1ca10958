// Package gateway is the single write path for the portal. Every
// mutation validates, persists, then publishes the collection's feed
// event so live subscriptions re-fetch.
package gateway

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"rentport/core/internal/blob"
	"rentport/core/internal/feed"
	"rentport/core/internal/rbac"
	"rentport/core/internal/result"
	"rentport/core/internal/store"
	"rentport/core/internal/util"
)

// DefaultPropertyID is stamped on every maintenance request. The
// portal manages a single property.
const DefaultPropertyID = "property-1"

// Store is the storage surface the gateway writes through.
type Store interface {
	InsertRequest(ctx context.Context, req store.MaintenanceRequest) (store.MaintenanceRequest, error)
	UpdateRequest(ctx context.Context, id string, patch store.RequestPatch) error
	InsertMessage(ctx context.Context, msg store.Message) error
	ListUnreadMessageIDs(ctx context.Context, senderID, receiverID string) ([]string, error)
	MarkMessageRead(ctx context.Context, id string) error
	InsertPayment(ctx context.Context, payment store.RentPayment) (store.RentPayment, error)
	UpdatePayment(ctx context.Context, id string, patch store.PaymentPatch) error
}

// Gateway routes all writes. Feed publishes are best effort: by the
// time one fails the write is already durable, and the subscriber's
// next refresh will pick it up.
type Gateway struct {
	store   Store
	feed    feed.Feed
	uploads blob.Uploader
}

func New(st Store, fd feed.Feed, uploads blob.Uploader) *Gateway {
	return &Gateway{store: st, feed: fd, uploads: uploads}
}

// RequestInput carries the tenant-entered fields of a new
// maintenance request.
type RequestInput struct {
	Category    string
	Urgency     string
	Title       string
	Description string
	Location    string
}

// CreateMaintenanceRequest uploads the attached files, then inserts
// a pending request stamped with the submitter's identity. Uploads
// run in parallel; if any fails the whole submission fails and
// already-uploaded objects are left behind.
func (g *Gateway) CreateMaintenanceRequest(ctx context.Context, identity store.Identity, input RequestInput, files []blob.File) result.Result {
	if input.Title == "" || input.Description == "" || input.Category == "" {
		return result.Fail(result.Validation("title, description, and category are required"))
	}

	urls := make([]string, len(files))
	grp, grpCtx := errgroup.WithContext(ctx)
	for i, f := range files {
		grp.Go(func() error {
			url, err := g.uploads.Upload(grpCtx, f)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return result.Fail(result.Submission("upload images", err))
	}

	req := store.MaintenanceRequest{
		ID:          util.NewID("req"),
		TenantID:    identity.ID,
		TenantName:  identity.Name,
		TenantEmail: identity.Email,
		PropertyID:  DefaultPropertyID,
		Category:    input.Category,
		Urgency:     input.Urgency,
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Images:      urls,
		Status:      store.StatusPending,
	}
	saved, err := g.store.InsertRequest(ctx, req)
	if err != nil {
		return result.Fail(result.Submission("save request", err))
	}

	g.publish(ctx, feed.MaintenanceRequests)
	return result.OK(saved.ID)
}

// UpdateMaintenanceRequest applies a partial update. Status values
// are stored as given; re-opening a completed request is allowed.
func (g *Gateway) UpdateMaintenanceRequest(ctx context.Context, id string, patch store.RequestPatch) result.Result {
	if id == "" {
		return result.Fail(result.Validation("request id is required"))
	}
	if err := g.store.UpdateRequest(ctx, id, patch); err != nil {
		return result.Fail(result.Submission("update request", err))
	}
	g.publish(ctx, feed.MaintenanceRequests)
	return result.OK(id)
}

// ScheduleMaintenance assigns a technician and a visit date. Only
// landlords schedule.
func (g *Gateway) ScheduleMaintenance(ctx context.Context, identity store.Identity, id string, when time.Time, technician, notes string) result.Result {
	if !rbac.Can(rbac.Normalize(identity.Role), rbac.ActionSchedule) {
		return result.Fail(result.Auth("landlord role required to schedule", nil))
	}
	if id == "" || technician == "" {
		return result.Fail(result.Validation("request id and technician are required"))
	}

	status := store.StatusScheduled
	patch := store.RequestPatch{
		Status:             &status,
		ScheduledDate:      &when,
		AssignedTechnician: &technician,
		SchedulingNotes:    &notes,
	}
	if err := g.store.UpdateRequest(ctx, id, patch); err != nil {
		return result.Fail(result.Submission("schedule request", err))
	}
	g.publish(ctx, feed.MaintenanceRequests)
	return result.OK(id)
}

// SendMessage inserts an unread message between two users. The
// client submission time is recorded for local ordering; the store
// assigns the authoritative timestamp.
func (g *Gateway) SendMessage(ctx context.Context, senderID, receiverID, text string) result.Result {
	if senderID == "" || receiverID == "" {
		return result.Fail(result.Validation("sender and receiver are required"))
	}
	if text == "" {
		return result.Fail(result.Validation("message text is required"))
	}

	msg := store.Message{
		ID:           util.NewID("msg"),
		SenderID:     senderID,
		ReceiverID:   receiverID,
		Participants: []string{senderID, receiverID},
		Body:         text,
		ClientTime:   time.Now().UTC(),
		Read:         false,
	}
	if err := g.store.InsertMessage(ctx, msg); err != nil {
		return result.Fail(result.Submission("send message", err))
	}
	g.publish(ctx, feed.Messages)
	return result.OK(msg.ID)
}

// MarkRead marks every unread message from otherPartyID to selfID as
// read. Each message is an independent write, so a failure part way
// leaves earlier messages marked; re-running is safe and a no-op
// once nothing is unread.
func (g *Gateway) MarkRead(ctx context.Context, otherPartyID, selfID string) result.Result {
	if otherPartyID == "" || selfID == "" {
		return result.Fail(result.Validation("both participants are required"))
	}

	ids, err := g.store.ListUnreadMessageIDs(ctx, otherPartyID, selfID)
	if err != nil {
		return result.Fail(result.Submission("list unread messages", err))
	}
	var firstErr error
	marked := 0
	for _, id := range ids {
		if err := g.store.MarkMessageRead(ctx, id); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("mark message %s: %w", id, err)
			}
			continue
		}
		marked++
	}
	if marked > 0 {
		g.publish(ctx, feed.Messages)
	}
	if firstErr != nil {
		return result.Fail(result.Submission("mark messages read", firstErr))
	}
	return result.OK(selfID)
}

// PaymentInput carries the fields of a new rent payment record.
type PaymentInput struct {
	TenantID string
	Amount   float64
	DueDate  time.Time
	Status   string
}

// CreateRentPayment records a rent obligation. Only landlords create
// payment records; tenants settle them through UpdateRentPayment.
func (g *Gateway) CreateRentPayment(ctx context.Context, identity store.Identity, input PaymentInput) result.Result {
	if !rbac.Can(rbac.Normalize(identity.Role), rbac.ActionRecordPayment) {
		return result.Fail(result.Auth("landlord role required to record payments", nil))
	}
	if input.TenantID == "" {
		return result.Fail(result.Validation("tenant id is required"))
	}

	status := input.Status
	if status == "" {
		status = store.PaymentPending
	}
	payment := store.RentPayment{
		ID:       util.NewID("pay"),
		TenantID: input.TenantID,
		Amount:   input.Amount,
		DueDate:  input.DueDate,
		Status:   status,
	}
	saved, err := g.store.InsertPayment(ctx, payment)
	if err != nil {
		return result.Fail(result.Submission("save payment", err))
	}
	g.publish(ctx, feed.RentPayments)
	return result.OK(saved.ID)
}

// UpdateRentPayment applies a partial update, typically marking a
// payment paid.
func (g *Gateway) UpdateRentPayment(ctx context.Context, id string, patch store.PaymentPatch) result.Result {
	if id == "" {
		return result.Fail(result.Validation("payment id is required"))
	}
	if err := g.store.UpdatePayment(ctx, id, patch); err != nil {
		return result.Fail(result.Submission("update payment", err))
	}
	g.publish(ctx, feed.RentPayments)
	return result.OK(id)
}

func (g *Gateway) publish(ctx context.Context, collection string) {
	// Ignored on purpose. The write is durable and any subscriber
	// re-syncs on its next refresh.
	_ = g.feed.Publish(ctx, collection)
}
