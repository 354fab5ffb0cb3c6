package service

import (
	"context"
	"time"

	"invoiceapi/internal/model"
)

// Invoice lifecycle event types.
const (
	EventInvoiceCreated            = "invoice.created"
	EventInvoiceUpdated            = "invoice.updated"
	EventInvoiceDeleted            = "invoice.deleted"
	EventInvoiceSent               = "invoice.sent"
	EventInvoicePaymentLinkCreated = "invoice.payment_link_created"
	EventInvoicePaid               = "invoice.paid"
)

type InvoiceEvent struct {
	Type          string              `json:"type"`
	InvoiceID     string              `json:"invoice_id"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	Status        model.InvoiceStatus `json:"status,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// EventPublisher fans invoice lifecycle events out to observers. Publish must
// not block on slow consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event InvoiceEvent)
}

// Publishers delivers each event to every publisher in order.
type Publishers []EventPublisher

func (p Publishers) Publish(ctx context.Context, event InvoiceEvent) {
	for _, publisher := range p {
		publisher.Publish(ctx, event)
	}
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, InvoiceEvent) {}

func newInvoiceEvent(eventType string, inv *model.Invoice, at time.Time) InvoiceEvent {
	return InvoiceEvent{
		Type:          eventType,
		InvoiceID:     inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status,
		OccurredAt:    at,
	}
}
