package persistence

import "time"

// Admin is a back-office account allowed to sign in.
type Admin struct {
	ID           string
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for an admin.
type Session struct {
	ID          string
	AdminID     string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// Customer is a directory record owned by the customer module.
type Customer struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Property is a service address belonging to a customer.
type Property struct {
	ID         string
	CustomerID string
	Address    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Pool is a pool installed at a property.
type Pool struct {
	ID         string
	PropertyID string
	Label      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Event is a calendar appointment row.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	EventType   string
	Status      string
	CustomerID  string
	PropertyID  *string
	PoolID      *string
	LocationURL *string
	Description *string
	CreatedBy   string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LineItem is one priced row of an estimate, stored with its position.
type LineItem struct {
	ID             string
	Position       int
	Description    string
	Quantity       float64
	UnitPriceCents int64
	TotalCents     int64
}

// Estimate is a quote document with its line items.
type Estimate struct {
	ID             string
	Number         string
	Status         string
	CustomerID     string
	PoolID         *string
	LineItems      []LineItem
	SubtotalCents  int64
	TaxRate        float64
	TaxAmountCents int64
	TotalCents     int64
	ValidUntil     *time.Time
	Notes          *string
	CreatedBy      string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
