package notification

import (
	"context"

	"invoiceapi/internal/model"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSMSSender struct {
	api        messageCreator
	fromNumber string
	log        *zap.Logger
}

func NewTwilioSMSSender(accountSID, authToken, fromNumber string, log *zap.Logger) *TwilioSMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioSMSSender(client.Api, fromNumber, log)
}

func newTwilioSMSSender(api messageCreator, fromNumber string, log *zap.Logger) *TwilioSMSSender {
	return &TwilioSMSSender{api: api, fromNumber: fromNumber, log: log.Named("twilio")}
}

func (s *TwilioSMSSender) SendInvoice(ctx context.Context, invoice *model.Invoice) Result {
	return s.send(ctx, invoice, invoiceSMS)
}

func (s *TwilioSMSSender) SendPaymentConfirmation(ctx context.Context, invoice *model.Invoice) Result {
	return s.send(ctx, invoice, paymentConfirmationSMS)
}

func (s *TwilioSMSSender) SendPaymentReminder(ctx context.Context, invoice *model.Invoice) Result {
	return s.send(ctx, invoice, paymentReminderSMS)
}

func (s *TwilioSMSSender) send(ctx context.Context, invoice *model.Invoice, render func(*model.Invoice) string) Result {
	if !invoice.Client.HasPhone() {
		return Failure(ErrNoPhone)
	}
	if err := ctx.Err(); err != nil {
		return Failure(err.Error())
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(invoice.Client.Phone)
	params.SetFrom(s.fromNumber)
	params.SetBody(render(invoice))

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		s.log.Warn("sms delivery failed",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err),
		)
		return Failure(err.Error())
	}

	if msg.Status != nil && *msg.Status == "failed" {
		reason := "sms delivery failed"
		if msg.ErrorMessage != nil {
			reason = *msg.ErrorMessage
		}
		return Failure(reason)
	}

	var sid string
	if msg.Sid != nil {
		sid = *msg.Sid
	}
	s.log.Info("sms sent",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("message_id", sid),
	)
	return Result{Success: true, MessageID: sid}
}
