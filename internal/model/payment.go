package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus enum constants
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusRefunded  = "REFUNDED"
)

// Payment records money received against an invoice through the payment gateway.
type Payment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount"`
	PaymentIntentID   string          `gorm:"type:varchar(255);index" json:"payment_intent_id,omitempty"`
	CheckoutSessionID string          `gorm:"type:varchar(255);index" json:"checkout_session_id,omitempty"`
	Status            string          `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	CompletedAt       *time.Time      `json:"completed_at"`
}
