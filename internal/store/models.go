package store

import "time"

// Identity roles.
const (
	RoleTenant   = "tenant"
	RoleLandlord = "landlord"
)

// Maintenance request statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusScheduled  = "scheduled"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Rent payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentOverdue = "overdue"
)

// NotificationPrefs controls which channels a user wants to be
// reached on. Only email delivery is implemented; push and sms are
// stored for the UI.
type NotificationPrefs struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// Identity is a users/{id} record. JSON field names are the wire
// contract UI collaborators depend on.
type Identity struct {
	ID               string            `json:"id"`
	Email            string            `json:"email"`
	Name             string            `json:"name"`
	Role             string            `json:"role"`
	Phone            string            `json:"phone"`
	Address          string            `json:"address"`
	EmergencyContact string            `json:"emergencyContact"`
	Notifications    NotificationPrefs `json:"notifications"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// IdentityPatch is a partial profile update. Nil fields are left
// unchanged.
type IdentityPatch struct {
	Name             *string
	Phone            *string
	Address          *string
	EmergencyContact *string
	Notifications    *NotificationPrefs
}

// MaintenanceRequest is a maintenanceRequests/{id} record.
type MaintenanceRequest struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenantId"`
	TenantName         string     `json:"tenantName"`
	TenantEmail        string     `json:"tenantEmail"`
	PropertyID         string     `json:"propertyId"`
	Category           string     `json:"category"`
	Urgency            string     `json:"urgency"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Location           string     `json:"location,omitempty"`
	Images             []string   `json:"images"`
	Status             string     `json:"status"`
	DateSubmitted      time.Time  `json:"dateSubmitted"`
	LastUpdated        time.Time  `json:"lastUpdated"`
	ScheduledDate      *time.Time `json:"scheduledDate,omitempty"`
	AssignedTechnician string     `json:"assignedTechnician,omitempty"`
	SchedulingNotes    string     `json:"schedulingNotes,omitempty"`
}

// RequestPatch is a partial maintenance request update. The store
// stamps lastUpdated on every patch. Status values are stored as
// given, including re-opening a completed or cancelled request.
type RequestPatch struct {
	Status             *string
	Category           *string
	Urgency            *string
	Title              *string
	Description        *string
	Location           *string
	ScheduledDate      *time.Time
	AssignedTechnician *string
	SchedulingNotes    *string
}

// Message is a messages/{id} record. Timestamp is assigned by the
// store on insert; until a snapshot carries it back it is nil and
// ClientTime orders the message locally.
type Message struct {
	ID           string     `json:"id"`
	SenderID     string     `json:"senderId"`
	ReceiverID   string     `json:"receiverId"`
	Participants []string   `json:"participants"`
	Body         string     `json:"message"`
	Timestamp    *time.Time `json:"timestamp"`
	ClientTime   time.Time  `json:"clientTime"`
	Read         bool       `json:"read"`
}

// RentPayment is a rentPayments/{id} record.
type RentPayment struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	Amount      float64    `json:"amount"`
	DueDate     time.Time  `json:"dueDate"`
	Status      string     `json:"status"`
	PaidDate    *time.Time `json:"paidDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// PaymentPatch is a partial rent payment update.
type PaymentPatch struct {
	Amount   *float64
	DueDate  *time.Time
	Status   *string
	PaidDate *time.Time
}

// Credential is an authentication-provider account. The password
// hash never leaves the authpw package.
type Credential struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}
