package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog tracks one lifecycle event of an invoice. Entries outlive the
// invoice they describe.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`        // invoice id
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // invoice number
	Details    string    `gorm:"type:text" json:"details"`                       // serialized JSON
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
