package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users ----

const identityColumns = `id, email, name, role, phone, address, emergency_contact, notify_email, notify_push, notify_sms, created_at`

func scanIdentity(row interface{ Scan(...any) error }) (Identity, error) {
	var id Identity
	err := row.Scan(&id.ID, &id.Email, &id.Name, &id.Role, &id.Phone, &id.Address,
		&id.EmergencyContact, &id.Notifications.Email, &id.Notifications.Push,
		&id.Notifications.SMS, &id.CreatedAt)
	return id, err
}

func (s *PostgresStore) GetIdentity(ctx context.Context, id string) (Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM users WHERE id=$1`, id)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("get identity: %w", err)
	}
	return identity, nil
}

// UpsertIdentity creates the users/{id} record or replaces its
// profile fields when it already exists.
func (s *PostgresStore) UpsertIdentity(ctx context.Context, identity Identity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, phone, address, emergency_contact, notify_email, notify_push, notify_sms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email=EXCLUDED.email, name=EXCLUDED.name, role=EXCLUDED.role,
			phone=EXCLUDED.phone, address=EXCLUDED.address,
			emergency_contact=EXCLUDED.emergency_contact,
			notify_email=EXCLUDED.notify_email, notify_push=EXCLUDED.notify_push,
			notify_sms=EXCLUDED.notify_sms
	`, identity.ID, identity.Email, identity.Name, identity.Role, identity.Phone,
		identity.Address, identity.EmergencyContact, identity.Notifications.Email,
		identity.Notifications.Push, identity.Notifications.SMS)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// UpdateIdentity merges a partial profile update. Nil patch fields
// keep their stored value.
func (s *PostgresStore) UpdateIdentity(ctx context.Context, id string, patch IdentityPatch) error {
	var notifyEmail, notifyPush, notifySMS *bool
	if patch.Notifications != nil {
		notifyEmail = &patch.Notifications.Email
		notifyPush = &patch.Notifications.Push
		notifySMS = &patch.Notifications.SMS
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			name=COALESCE($2, name),
			phone=COALESCE($3, phone),
			address=COALESCE($4, address),
			emergency_contact=COALESCE($5, emergency_contact),
			notify_email=COALESCE($6, notify_email),
			notify_push=COALESCE($7, notify_push),
			notify_sms=COALESCE($8, notify_sms)
		WHERE id=$1
	`, id, patch.Name, patch.Phone, patch.Address, patch.EmergencyContact,
		notifyEmail, notifyPush, notifySMS)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- maintenance requests ----

const requestColumns = `id, tenant_id, tenant_name, tenant_email, property_id, category, urgency, title, description, location, images, status, date_submitted, last_updated, scheduled_date, assigned_technician, scheduling_notes`

func scanRequest(row interface{ Scan(...any) error }) (MaintenanceRequest, error) {
	var req MaintenanceRequest
	var images []byte
	err := row.Scan(&req.ID, &req.TenantID, &req.TenantName, &req.TenantEmail,
		&req.PropertyID, &req.Category, &req.Urgency, &req.Title, &req.Description,
		&req.Location, &images, &req.Status, &req.DateSubmitted, &req.LastUpdated,
		&req.ScheduledDate, &req.AssignedTechnician, &req.SchedulingNotes)
	if err != nil {
		return MaintenanceRequest{}, err
	}
	if err := json.Unmarshal(images, &req.Images); err != nil {
		return MaintenanceRequest{}, fmt.Errorf("decode images: %w", err)
	}
	return req, nil
}

// InsertRequest stores a new maintenance request. dateSubmitted and
// lastUpdated are assigned by the store and returned on the record.
func (s *PostgresStore) InsertRequest(ctx context.Context, req MaintenanceRequest) (MaintenanceRequest, error) {
	images, err := json.Marshal(append([]string{}, req.Images...))
	if err != nil {
		return MaintenanceRequest{}, fmt.Errorf("encode images: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO maintenance_requests
			(id, tenant_id, tenant_name, tenant_email, property_id, category, urgency, title, description, location, images, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING date_submitted, last_updated
	`, req.ID, req.TenantID, req.TenantName, req.TenantEmail, req.PropertyID,
		req.Category, req.Urgency, req.Title, req.Description, req.Location,
		images, req.Status).Scan(&req.DateSubmitted, &req.LastUpdated)
	if err != nil {
		return MaintenanceRequest{}, fmt.Errorf("insert request: %w", err)
	}
	return req, nil
}

// UpdateRequest merges a partial update and stamps lastUpdated.
func (s *PostgresStore) UpdateRequest(ctx context.Context, id string, patch RequestPatch) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE maintenance_requests SET
			status=COALESCE($2, status),
			category=COALESCE($3, category),
			urgency=COALESCE($4, urgency),
			title=COALESCE($5, title),
			description=COALESCE($6, description),
			location=COALESCE($7, location),
			scheduled_date=COALESCE($8, scheduled_date),
			assigned_technician=COALESCE($9, assigned_technician),
			scheduling_notes=COALESCE($10, scheduling_notes),
			last_updated=NOW()
		WHERE id=$1
	`, id, patch.Status, patch.Category, patch.Urgency, patch.Title,
		patch.Description, patch.Location, patch.ScheduledDate,
		patch.AssignedTechnician, patch.SchedulingNotes)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, id string) (MaintenanceRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM maintenance_requests WHERE id=$1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MaintenanceRequest{}, ErrNotFound
	}
	if err != nil {
		return MaintenanceRequest{}, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) listRequests(ctx context.Context, query string, args ...any) ([]MaintenanceRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	requests := []MaintenanceRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ListRequests returns the full collection. Landlords read unscoped;
// this is a known scalability concern carried over from the design.
func (s *PostgresStore) ListRequests(ctx context.Context) ([]MaintenanceRequest, error) {
	return s.listRequests(ctx, `SELECT `+requestColumns+` FROM maintenance_requests`)
}

func (s *PostgresStore) ListRequestsByTenant(ctx context.Context, tenantID string) ([]MaintenanceRequest, error) {
	return s.listRequests(ctx, `SELECT `+requestColumns+` FROM maintenance_requests WHERE tenant_id=$1`, tenantID)
}

// ---- messages ----

const messageColumns = `id, sender_id, receiver_id, body, ts, client_time, read`

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var msg Message
	err := row.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Body,
		&msg.Timestamp, &msg.ClientTime, &msg.Read)
	if err != nil {
		return Message{}, err
	}
	msg.Participants = []string{msg.SenderID, msg.ReceiverID}
	return msg, nil
}

// InsertMessage stores a new message. The authoritative timestamp is
// assigned by the store; the caller's clientTime is kept for local
// ordering until a snapshot carries the server value back.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, body, client_time, read)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.SenderID, msg.ReceiverID, msg.Body, msg.ClientTime, msg.Read)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessagesByParticipant(ctx context.Context, userID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE sender_id=$1 OR receiver_id=$1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ListUnreadMessageIDs returns ids of unread messages from senderID
// to receiverID. Read-marking updates each row independently.
func (s *PostgresStore) ListUnreadMessageIDs(ctx context.Context, senderID, receiverID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM messages WHERE sender_id=$1 AND receiver_id=$2 AND read=FALSE`,
		senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("list unread messages: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) MarkMessageRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE messages SET read=TRUE WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// ---- rent payments ----

const paymentColumns = `id, tenant_id, amount, due_date, status, paid_date, created_at, last_updated`

func scanPayment(row interface{ Scan(...any) error }) (RentPayment, error) {
	var p RentPayment
	err := row.Scan(&p.ID, &p.TenantID, &p.Amount, &p.DueDate, &p.Status,
		&p.PaidDate, &p.CreatedAt, &p.LastUpdated)
	return p, err
}

func (s *PostgresStore) InsertPayment(ctx context.Context, payment RentPayment) (RentPayment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rent_payments (id, tenant_id, amount, due_date, status, paid_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, last_updated
	`, payment.ID, payment.TenantID, payment.Amount, payment.DueDate,
		payment.Status, payment.PaidDate).Scan(&payment.CreatedAt, &payment.LastUpdated)
	if err != nil {
		return RentPayment{}, fmt.Errorf("insert payment: %w", err)
	}
	return payment, nil
}

func (s *PostgresStore) UpdatePayment(ctx context.Context, id string, patch PaymentPatch) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rent_payments SET
			amount=COALESCE($2, amount),
			due_date=COALESCE($3, due_date),
			status=COALESCE($4, status),
			paid_date=COALESCE($5, paid_date),
			last_updated=NOW()
		WHERE id=$1
	`, id, patch.Amount, patch.DueDate, patch.Status, patch.PaidDate)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) listPayments(ctx context.Context, query string, args ...any) ([]RentPayment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []RentPayment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *PostgresStore) ListPayments(ctx context.Context) ([]RentPayment, error) {
	return s.listPayments(ctx, `SELECT `+paymentColumns+` FROM rent_payments`)
}

func (s *PostgresStore) ListPaymentsByTenant(ctx context.Context, tenantID string) ([]RentPayment, error) {
	return s.listPayments(ctx, `SELECT `+paymentColumns+` FROM rent_payments WHERE tenant_id=$1`, tenantID)
}

// ---- credentials ----

func (s *PostgresStore) CreateCredential(ctx context.Context, cred Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
	`, cred.ID, cred.Email, cred.DisplayName, cred.PasswordHash)
	if err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCredentialByEmail(ctx context.Context, email string) (Credential, error) {
	var cred Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM credentials WHERE email=$1
	`, email).Scan(&cred.ID, &cred.Email, &cred.DisplayName, &cred.PasswordHash, &cred.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, fmt.Errorf("get credential: %w", err)
	}
	return cred, nil
}
