package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

// InvoiceStatus enum constants
const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusViewed    InvoiceStatus = "VIEWED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

var invoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusViewed,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusCancelled,
}

// ParseInvoiceStatus matches a status name case-insensitively.
func ParseInvoiceStatus(raw string) (InvoiceStatus, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for _, status := range invoiceStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	for _, status := range invoiceStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Address is the postal address of a client. Every field is optional.
type Address struct {
	Street     string `gorm:"type:varchar(255)" json:"street,omitempty"`
	City       string `gorm:"type:varchar(100)" json:"city,omitempty"`
	State      string `gorm:"type:varchar(100)" json:"state,omitempty"`
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	Country    string `gorm:"type:varchar(100)" json:"country,omitempty"`
}

// Client is the billed party, stored inline with its invoice.
type Client struct {
	Name    string  `gorm:"type:varchar(255);not null" json:"name"`
	Email   string  `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone   string  `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Company string  `gorm:"type:varchar(255)" json:"company,omitempty"`
	Address Address `gorm:"embedded;embeddedPrefix:address_" json:"address"`
}

// HasPhone reports whether the client can receive SMS.
func (c Client) HasPhone() bool {
	return strings.TrimSpace(c.Phone) != ""
}

// LineItem is a billable row owned by exactly one invoice.
// It is keyed by its invoice and position and has no identity of its own.
type LineItem struct {
	InvoiceID   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"-"`
	Position    int             `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
}

// TableName overrides the default "line_items".
func (LineItem) TableName() string {
	return "invoice_line_items"
}

// Total is quantity * unit price.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Invoice is the billing aggregate. Subtotal, tax amount and total are always
// derived from LineItems and TaxRate and are never persisted.
type Invoice struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber  string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	Client         Client          `gorm:"embedded;embeddedPrefix:client_" json:"client"`
	LineItems      []LineItem      `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0" json:"tax_rate"`
	Status         InvoiceStatus   `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	IssueDate      time.Time       `gorm:"not null;index" json:"issue_date"`
	DueDate        time.Time       `gorm:"not null" json:"due_date"`
	PaymentLinkID  *string         `gorm:"type:varchar(255)" json:"payment_link_id,omitempty"`
	PaymentLinkURL *string         `gorm:"type:text" json:"payment_link_url,omitempty"`
	Notes          *string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt      *time.Time      `gorm:"autoUpdateTime:false" json:"updated_at"`
	PaidAt         *time.Time      `json:"paid_at"`
	SentAt         *time.Time      `json:"sent_at"`
}

var hundred = decimal.NewFromInt(100)

// Subtotal is the sum of all line item totals.
func (inv Invoice) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, li := range inv.LineItems {
		subtotal = subtotal.Add(li.Total())
	}
	return subtotal
}

// TaxAmount is Subtotal * TaxRate / 100.
func (inv Invoice) TaxAmount() decimal.Decimal {
	return inv.Subtotal().Mul(inv.TaxRate).Div(hundred)
}

// Total is Subtotal + TaxAmount.
func (inv Invoice) Total() decimal.Decimal {
	return inv.Subtotal().Add(inv.TaxAmount())
}

// Touch stamps UpdatedAt.
func (inv *Invoice) Touch(now time.Time) {
	inv.UpdatedAt = &now
}
