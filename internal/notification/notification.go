// Package notification delivers invoice emails and text messages. Senders
// report provider failures as a Result value rather than an error.
package notification

import (
	"context"

	"invoiceapi/internal/model"
)

// ErrNoPhone is the failure message used when a client cannot receive SMS.
const ErrNoPhone = "Client phone number not available"

// Result is the outcome of a single delivery attempt.
type Result struct {
	Success      bool   `json:"success"`
	MessageID    string `json:"message_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Failure builds an unsuccessful Result.
func Failure(message string) Result {
	return Result{Success: false, ErrorMessage: message}
}

type EmailSender interface {
	SendInvoice(ctx context.Context, invoice *model.Invoice) Result
	SendPaymentConfirmation(ctx context.Context, invoice *model.Invoice) Result
	SendPaymentReminder(ctx context.Context, invoice *model.Invoice) Result
}

type SMSSender interface {
	SendInvoice(ctx context.Context, invoice *model.Invoice) Result
	SendPaymentConfirmation(ctx context.Context, invoice *model.Invoice) Result
	SendPaymentReminder(ctx context.Context, invoice *model.Invoice) Result
}
