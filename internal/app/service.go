// Package app wires the session manager, mutation gateway, and live
// subscriptions into one portal core.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"rentport/core/internal/blob"
	"rentport/core/internal/email"
	"rentport/core/internal/feed"
	"rentport/core/internal/gateway"
	"rentport/core/internal/live"
	"rentport/core/internal/ordering"
	"rentport/core/internal/rbac"
	"rentport/core/internal/result"
	"rentport/core/internal/session"
	"rentport/core/internal/store"
)

// ReadStore is the query surface the core reads snapshots and
// notification context through.
type ReadStore interface {
	ListRequests(ctx context.Context) ([]store.MaintenanceRequest, error)
	ListRequestsByTenant(ctx context.Context, tenantID string) ([]store.MaintenanceRequest, error)
	GetRequest(ctx context.Context, id string) (store.MaintenanceRequest, error)
	ListMessagesByParticipant(ctx context.Context, userID string) ([]store.Message, error)
	ListPayments(ctx context.Context) ([]store.RentPayment, error)
	ListPaymentsByTenant(ctx context.Context, tenantID string) ([]store.RentPayment, error)
	GetIdentity(ctx context.Context, id string) (store.Identity, error)
}

// Core owns the live subscriptions for the signed-in user and routes
// every mutation through the gateway. Subscriptions follow the
// session: signing in opens them scoped to the new identity, signing
// out closes them.
type Core struct {
	sessions *session.Manager
	gateway  *gateway.Gateway
	store    ReadStore
	feed     feed.Feed
	mailer   *email.Service

	mu            sync.Mutex
	ctx           context.Context
	requests      *live.Subscription[store.MaintenanceRequest]
	messages      *live.Subscription[store.Message]
	payments      *live.Subscription[store.RentPayment]
	cancelSession func()
}

func NewCore(sessions *session.Manager, gw *gateway.Gateway, st ReadStore, fd feed.Feed, mailer *email.Service) *Core {
	return &Core{
		sessions: sessions,
		gateway:  gw,
		store:    st,
		feed:     fd,
		mailer:   mailer,
	}
}

// Sessions exposes the session manager for sign-in flows.
func (c *Core) Sessions() *session.Manager {
	return c.sessions
}

// Open starts following session changes. The context bounds every
// snapshot fetch the subscriptions make.
func (c *Core) Open(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.cancelSession = c.sessions.OnSessionChange(c.handleSession)
}

// Close tears down the subscriptions and stops following the session.
func (c *Core) Close() {
	if c.cancelSession != nil {
		c.cancelSession()
		c.cancelSession = nil
	}
	c.closeSubscriptions()
}

func (c *Core) handleSession(identity *store.Identity) {
	c.closeSubscriptions()
	if identity == nil {
		return
	}

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	id := identity.ID
	role := rbac.Normalize(identity.Role)

	requestSrc := live.Source[store.MaintenanceRequest]{
		Collection: feed.MaintenanceRequests,
		Fetch: func(ctx context.Context) ([]store.MaintenanceRequest, error) {
			return c.store.ListRequestsByTenant(ctx, id)
		},
		Order: ordering.SortRequests,
	}
	paymentSrc := live.Source[store.RentPayment]{
		Collection: feed.RentPayments,
		Fetch: func(ctx context.Context) ([]store.RentPayment, error) {
			return c.store.ListPaymentsByTenant(ctx, id)
		},
		Order: ordering.SortPayments,
	}
	if rbac.Can(role, rbac.ActionViewAll) {
		// Landlords read the whole collection. This does not scale
		// past one landlord's worth of data; revisit if multi-property
		// support lands.
		requestSrc.Fetch = c.store.ListRequests
		paymentSrc.Fetch = c.store.ListPayments
	}
	messageSrc := live.Source[store.Message]{
		Collection: feed.Messages,
		Fetch: func(ctx context.Context) ([]store.Message, error) {
			return c.store.ListMessagesByParticipant(ctx, id)
		},
		Order: ordering.SortMessages,
	}

	requests, err := live.Open(ctx, c.feed, requestSrc)
	if err != nil {
		log.Printf("app: open request subscription: %v", err)
	}
	messages, err := live.Open(ctx, c.feed, messageSrc)
	if err != nil {
		log.Printf("app: open message subscription: %v", err)
	}
	payments, err := live.Open(ctx, c.feed, paymentSrc)
	if err != nil {
		log.Printf("app: open payment subscription: %v", err)
	}

	c.mu.Lock()
	c.requests = requests
	c.messages = messages
	c.payments = payments
	c.mu.Unlock()
}

func (c *Core) closeSubscriptions() {
	c.mu.Lock()
	requests, messages, payments := c.requests, c.messages, c.payments
	c.requests, c.messages, c.payments = nil, nil, nil
	c.mu.Unlock()

	if requests != nil {
		requests.Close()
	}
	if messages != nil {
		messages.Close()
	}
	if payments != nil {
		payments.Close()
	}
}

// Requests returns the live maintenance request subscription, if a
// session is active.
func (c *Core) Requests() (*live.Subscription[store.MaintenanceRequest], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests, c.requests != nil
}

// Messages returns the live message subscription, if a session is
// active.
func (c *Core) Messages() (*live.Subscription[store.Message], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages, c.messages != nil
}

// Payments returns the live rent payment subscription, if a session
// is active.
func (c *Core) Payments() (*live.Subscription[store.RentPayment], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payments, c.payments != nil
}

// SubmitRequest files a maintenance request as the signed-in tenant.
func (c *Core) SubmitRequest(ctx context.Context, input gateway.RequestInput, files []blob.File) result.Result {
	identity, ok := c.sessions.Current()
	if !ok {
		return result.Fail(result.Auth("not signed in", nil))
	}
	if !rbac.Can(rbac.Normalize(identity.Role), rbac.ActionSubmitRequest) {
		return result.Fail(result.Auth("tenant role required to submit requests", nil))
	}
	return c.gateway.CreateMaintenanceRequest(ctx, identity, input, files)
}

// UpdateRequest applies a partial update and, when the status
// changed, emails the tenant if their preferences allow it.
func (c *Core) UpdateRequest(ctx context.Context, id string, patch store.RequestPatch) result.Result {
	if _, ok := c.sessions.Current(); !ok {
		return result.Fail(result.Auth("not signed in", nil))
	}
	res := c.gateway.UpdateMaintenanceRequest(ctx, id, patch)
	if res.Success && patch.Status != nil {
		c.notifyStatusChange(ctx, id)
	}
	return res
}

// Schedule books a technician visit as the signed-in landlord.
func (c *Core) Schedule(ctx context.Context, id string, when time.Time, technician, notes string) result.Result {
	identity, ok := c.sessions.Current()
	if !ok {
		return result.Fail(result.Auth("not signed in", nil))
	}
	res := c.gateway.ScheduleMaintenance(ctx, identity, id, when, technician, notes)
	if res.Success {
		c.notifyStatusChange(ctx, id)
	}
	return res
}

// SendMessage sends from the signed-in user to the given receiver.
func (c *Core) SendMessage(ctx context.Context, receiverID, text string) result.Result {
	identity, ok := c.sessions.Current()
	if !ok {
		return result.Fail(result.Auth("not signed in", nil))
	}
	return c.gateway.SendMessage(ctx, identity.ID, receiverID, text)
}

// MarkConversationRead marks everything the other party sent the
// signed-in user as read.
func (c *Core) MarkConversationRead(ctx context.Context, otherPartyID string) result.Result {
	identity, ok := c.sessions.Current()
	if !ok {
		return result.Fail(result.Auth("not signed in", nil))
	}
	return c.gateway.MarkRead(ctx, otherPartyID, identity.ID)
}

// RecordPayment creates a rent payment record as the signed-in
// landlord.
func (c *Core) RecordPayment(ctx context.Context, input gateway.PaymentInput) result.Result {
	identity, ok := c.sessions.Current()
	if !ok {
		return result.Fail(result.Auth("not signed in", nil))
	}
	return c.gateway.CreateRentPayment(ctx, identity, input)
}

// UpdatePayment applies a partial payment update, typically marking
// it paid.
func (c *Core) UpdatePayment(ctx context.Context, id string, patch store.PaymentPatch) result.Result {
	if _, ok := c.sessions.Current(); !ok {
		return result.Fail(result.Auth("not signed in", nil))
	}
	return c.gateway.UpdateRentPayment(ctx, id, patch)
}

// notifyStatusChange emails the request's tenant about the new
// status. Failures are logged, never surfaced: the write that
// triggered the notification already succeeded.
func (c *Core) notifyStatusChange(ctx context.Context, requestID string) {
	if c.mailer == nil || !c.mailer.IsConfigured() {
		return
	}

	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		log.Printf("app: load request %s for notification: %v", requestID, err)
		return
	}
	tenant, err := c.store.GetIdentity(ctx, req.TenantID)
	if err != nil {
		log.Printf("app: load tenant %s for notification: %v", req.TenantID, err)
		return
	}
	if !tenant.Notifications.Email {
		return
	}

	scheduled := ""
	if req.ScheduledDate != nil {
		scheduled = req.ScheduledDate.Format("Jan 2, 2006 at 15:04")
	}
	if err := c.mailer.SendStatusUpdateEmail(tenant.Email, tenant.Name, req.Title, req.Status, scheduled); err != nil {
		log.Printf("app: send status email to %s: %v", tenant.Email, err)
	}
}
