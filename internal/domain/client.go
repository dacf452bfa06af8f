package domain

import "time"

// ============================================================
// Client record — one customer account, scoped to an owner
// ============================================================

// ClientStatus is the lifecycle status of a client.
type ClientStatus string

const (
	StatusActive    ClientStatus = "active"
	StatusOverdue   ClientStatus = "overdue"
	StatusInactive  ClientStatus = "inactive"
	StatusCancelled ClientStatus = "cancelled"
)

// AllStatuses lists every lifecycle status in kanban column order.
var AllStatuses = []ClientStatus{StatusActive, StatusOverdue, StatusInactive, StatusCancelled}

// Valid reports whether s is one of the four lifecycle statuses.
func (s ClientStatus) Valid() bool {
	switch s {
	case StatusActive, StatusOverdue, StatusInactive, StatusCancelled:
		return true
	}
	return false
}

// PaymentMethod of a client's recurring charge. The four built-in values
// mirror the payment_method enum of the backend; additional methods may be
// configured by name in the settings.
type PaymentMethod string

const (
	PaymentPix        PaymentMethod = "pix"
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentBoleto     PaymentMethod = "boleto"
	PaymentTransfer   PaymentMethod = "transfer"
)

// Builtin reports whether m is one of the built-in payment methods.
func (m PaymentMethod) Builtin() bool {
	switch m {
	case PaymentPix, PaymentCreditCard, PaymentBoleto, PaymentTransfer:
		return true
	}
	return false
}

// Client is the application-facing record shape served to the frontend.
type Client struct {
	ID               string        `json:"id"`
	CompanyName      string        `json:"companyName"`
	ResponsibleName  string        `json:"responsibleName"`
	ResponsiblePhone string        `json:"responsiblePhone"`
	ResponsibleEmail string        `json:"responsibleEmail,omitempty"`
	ResponsibleRole  string        `json:"responsibleRole,omitempty"`
	Email            string        `json:"email"`
	Document         string        `json:"document,omitempty"` // CPF or CNPJ
	Niche            string        `json:"niche"`
	Connections      int           `json:"connections"`
	Product          string        `json:"product"`
	MonthlyValue     float64       `json:"monthlyValue"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	DueDate          int           `json:"dueDate"` // day of month, 1-31
	Notes            string        `json:"notes"`
	Status           ClientStatus  `json:"status"`
	CreatedAt        time.Time     `json:"createdAt"`
	Tags             []string      `json:"tags,omitempty"`
	CompanyPhone     string        `json:"companyPhone,omitempty"`
}

// ClientPatch is a sparse partial update. Nil fields are left untouched;
// ID, createdAt and the owner are never patchable.
type ClientPatch struct {
	CompanyName      *string        `json:"companyName,omitempty"`
	ResponsibleName  *string        `json:"responsibleName,omitempty"`
	ResponsiblePhone *string        `json:"responsiblePhone,omitempty"`
	ResponsibleEmail *string        `json:"responsibleEmail,omitempty"`
	ResponsibleRole  *string        `json:"responsibleRole,omitempty"`
	Email            *string        `json:"email,omitempty"`
	Document         *string        `json:"document,omitempty"`
	Niche            *string        `json:"niche,omitempty"`
	Connections      *int           `json:"connections,omitempty"`
	Product          *string        `json:"product,omitempty"`
	MonthlyValue     *float64       `json:"monthlyValue,omitempty"`
	PaymentMethod    *PaymentMethod `json:"paymentMethod,omitempty"`
	DueDate          *int           `json:"dueDate,omitempty"`
	Notes            *string        `json:"notes,omitempty"`
	Status           *ClientStatus  `json:"status,omitempty"`
	Tags             *[]string      `json:"tags,omitempty"`
	CompanyPhone     *string        `json:"companyPhone,omitempty"`
}

// IsZero reports whether the patch carries no fields at all.
func (p ClientPatch) IsZero() bool {
	return p.CompanyName == nil && p.ResponsibleName == nil && p.ResponsiblePhone == nil &&
		p.ResponsibleEmail == nil && p.ResponsibleRole == nil && p.Email == nil &&
		p.Document == nil && p.Niche == nil && p.Connections == nil && p.Product == nil &&
		p.MonthlyValue == nil && p.PaymentMethod == nil && p.DueDate == nil &&
		p.Notes == nil && p.Status == nil && p.Tags == nil && p.CompanyPhone == nil
}

// ============================================================
// Persisted row — clients table columns (PostgREST wire shape)
// ============================================================

// ClientRow maps the clients table. Optional columns are pointers so a nil
// stays a SQL NULL instead of an empty string.
type ClientRow struct {
	ID               string   `json:"id,omitempty"`
	CompanyName      string   `json:"company_name"`
	ResponsibleName  string   `json:"responsible_name"`
	ResponsiblePhone string   `json:"responsible_phone"`
	ResponsibleEmail *string  `json:"responsible_email,omitempty"`
	ResponsibleRole  *string  `json:"responsible_role,omitempty"`
	Email            string   `json:"email"`
	Document         string   `json:"document"`
	Niche            string   `json:"niche"`
	Connections      int      `json:"connections"`
	Product          string   `json:"product"`
	MonthlyValue     float64  `json:"monthly_value"`
	PaymentMethod    string   `json:"payment_method"`
	DueDate          int      `json:"due_date"`
	Notes            *string  `json:"notes,omitempty"`
	Status           string   `json:"status"`
	Tags             []string `json:"tags,omitempty"`
	CompanyPhone     *string  `json:"company_phone,omitempty"`
	CreatedAt        string   `json:"created_at,omitempty"`
	UpdatedAt        string   `json:"updated_at,omitempty"`
	UserID           string   `json:"user_id,omitempty"`
}

// ============================================================
// Client lifecycle events (integration webhooks)
// ============================================================

const (
	EventClientCreated       = "client.created"
	EventClientUpdated       = "client.updated"
	EventClientStatusChanged = "client.status_changed"
	EventClientDeleted       = "client.deleted"
)

// ClientEvent is published after a confirmed client mutation.
type ClientEvent struct {
	Type       string       `json:"event"`
	OwnerID    string       `json:"ownerId"`
	ClientID   string       `json:"clientId"`
	Status     ClientStatus `json:"status,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}
