package notification

import (
	"context"

	"invoiceapi/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogEmailSender writes rendered emails to the log. It stands in for
// SendGrid when no API key is configured.
type LogEmailSender struct {
	log *zap.Logger
}

func NewLogEmailSender(log *zap.Logger) *LogEmailSender {
	return &LogEmailSender{log: log.Named("email")}
}

func (s *LogEmailSender) SendInvoice(_ context.Context, invoice *model.Invoice) Result {
	return s.write(invoice, invoiceEmail(invoice))
}

func (s *LogEmailSender) SendPaymentConfirmation(_ context.Context, invoice *model.Invoice) Result {
	return s.write(invoice, paymentConfirmationEmail(invoice))
}

func (s *LogEmailSender) SendPaymentReminder(_ context.Context, invoice *model.Invoice) Result {
	return s.write(invoice, paymentReminderEmail(invoice))
}

func (s *LogEmailSender) write(invoice *model.Invoice, msg Message) Result {
	id := "log-" + uuid.NewString()
	s.log.Info("email",
		zap.String("message_id", id),
		zap.String("to", invoice.Client.Email),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return Result{Success: true, MessageID: id}
}

// LogSMSSender is the SMS counterpart of LogEmailSender.
type LogSMSSender struct {
	log *zap.Logger
}

func NewLogSMSSender(log *zap.Logger) *LogSMSSender {
	return &LogSMSSender{log: log.Named("sms")}
}

func (s *LogSMSSender) SendInvoice(_ context.Context, invoice *model.Invoice) Result {
	return s.write(invoice, invoiceSMS)
}

func (s *LogSMSSender) SendPaymentConfirmation(_ context.Context, invoice *model.Invoice) Result {
	return s.write(invoice, paymentConfirmationSMS)
}

func (s *LogSMSSender) SendPaymentReminder(_ context.Context, invoice *model.Invoice) Result {
	return s.write(invoice, paymentReminderSMS)
}

func (s *LogSMSSender) write(invoice *model.Invoice, render func(*model.Invoice) string) Result {
	if !invoice.Client.HasPhone() {
		return Failure(ErrNoPhone)
	}
	id := "log-" + uuid.NewString()
	s.log.Info("sms",
		zap.String("message_id", id),
		zap.String("to", invoice.Client.Phone),
		zap.String("body", render(invoice)),
	)
	return Result{Success: true, MessageID: id}
}
