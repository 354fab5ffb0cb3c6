package notification

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"invoiceapi/internal/model"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

type SendGridEmailSender struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
	log       *zap.Logger
}

func NewSendGridEmailSender(apiKey, fromEmail, fromName string, log *zap.Logger) *SendGridEmailSender {
	return &SendGridEmailSender{
		apiKey:    apiKey,
		host:      sendGridHost,
		fromEmail: fromEmail,
		fromName:  fromName,
		log:       log.Named("sendgrid"),
	}
}

// WithHost points the sender at another API host.
func (s *SendGridEmailSender) WithHost(host string) *SendGridEmailSender {
	s.host = host
	return s
}

func (s *SendGridEmailSender) SendInvoice(ctx context.Context, invoice *model.Invoice) Result {
	return s.send(ctx, invoice, invoiceEmail(invoice))
}

func (s *SendGridEmailSender) SendPaymentConfirmation(ctx context.Context, invoice *model.Invoice) Result {
	return s.send(ctx, invoice, paymentConfirmationEmail(invoice))
}

func (s *SendGridEmailSender) SendPaymentReminder(ctx context.Context, invoice *model.Invoice) Result {
	return s.send(ctx, invoice, paymentReminderEmail(invoice))
}

func (s *SendGridEmailSender) send(ctx context.Context, invoice *model.Invoice, msg Message) Result {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(invoice.Client.Name, invoice.Client.Email)
	body := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, "<pre>"+html.EscapeString(msg.Text)+"</pre>")

	req := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = mail.GetRequestBody(body)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		s.log.Warn("email delivery failed",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err),
		)
		return Failure(err.Error())
	}
	if resp.StatusCode >= http.StatusBadRequest {
		s.log.Warn("email rejected",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Int("status", resp.StatusCode),
		)
		return Failure(fmt.Sprintf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body))
	}

	messageID := http.Header(resp.Headers).Get("X-Message-Id")
	s.log.Info("email sent",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("subject", msg.Subject),
		zap.String("message_id", messageID),
	)
	return Result{Success: true, MessageID: messageID}
}
