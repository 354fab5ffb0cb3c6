package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"invoiceapi/internal/logger"
	"invoiceapi/internal/model"
	"invoiceapi/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuditLogResponse struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Details       string `json:"details"`
	CreatedAt     string `json:"created_at"`
}

// AuditService keeps the activity history of every invoice. It records
// history by subscribing to invoice lifecycle events.
type AuditService interface {
	EventPublisher
	GetInvoiceActivity(ctx context.Context, invoiceID string, skip, take int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

type auditDetails struct {
	Status model.InvoiceStatus `json:"status,omitempty"`
}

// Publish persists the event. Failures are logged and never reach the
// operation that emitted the event.
func (s *auditService) Publish(ctx context.Context, event InvoiceEvent) {
	details, err := json.Marshal(auditDetails{Status: event.Status})
	if err != nil {
		details = []byte("{}")
	}

	entry := &model.AuditLog{
		ID:         uuid.New(),
		Action:     event.Type,
		EntityID:   event.InvoiceID,
		EntityName: event.InvoiceNumber,
		Details:    string(details),
		CreatedAt:  event.OccurredAt,
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		logger.FromContext(ctx).Error("failed to write audit log",
			zap.Error(err),
			zap.String("action", event.Type),
			zap.String("invoice_id", event.InvoiceID),
		)
	}
}

// GetInvoiceActivity pages through an invoice's history, newest first. The
// history of a deleted invoice stays readable.
func (s *auditService) GetInvoiceActivity(ctx context.Context, invoiceID string, skip, take int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.ListByEntity(ctx, invoiceID, skip, take)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoice activity: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, AuditLogResponse{
			ID:            l.ID.String(),
			Action:        l.Action,
			InvoiceID:     l.EntityID,
			InvoiceNumber: l.EntityName,
			Details:       l.Details,
			CreatedAt:     l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return res, total, nil
}
