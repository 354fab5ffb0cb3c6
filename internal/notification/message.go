package notification

import (
	"fmt"
	"strings"

	"invoiceapi/internal/model"

	"github.com/shopspring/decimal"
)

const (
	shortDate = "Jan 02, 2006"
	longDate  = "January 02, 2006"
	stampDate = "January 02, 2006 at 3:04 PM"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Text    string
}

func invoiceEmail(inv *model.Invoice) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "INVOICE %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&b, "Issue Date: %s\n\n", inv.IssueDate.Format(longDate))
	fmt.Fprintf(&b, "Bill To:\n%s\n%s\n", inv.Client.Name, inv.Client.Email)
	if inv.Client.Company != "" {
		fmt.Fprintf(&b, "%s\n", inv.Client.Company)
	}
	b.WriteString("\nItems:\n")
	for _, li := range inv.LineItems {
		fmt.Fprintf(&b, "  - %s: %d x %s = %s\n", li.Description, li.Quantity, formatMoney(li.UnitPrice), formatMoney(li.Total()))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", formatMoney(inv.Subtotal()))
	fmt.Fprintf(&b, "Tax (%s%%): %s\n", inv.TaxRate.String(), formatMoney(inv.TaxAmount()))
	fmt.Fprintf(&b, "Total Due: %s\n\n", formatMoney(inv.Total()))
	fmt.Fprintf(&b, "Due Date: %s\n", inv.DueDate.Format(longDate))
	if url := paymentURL(inv); url != "" {
		fmt.Fprintf(&b, "\nPay online: %s\n", url)
	}
	if inv.Notes != nil && *inv.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", *inv.Notes)
	}

	return Message{
		Subject: fmt.Sprintf("Invoice %s - Payment Due %s", inv.InvoiceNumber, inv.DueDate.Format(shortDate)),
		Text:    b.String(),
	}
}

func paymentConfirmationEmail(inv *model.Invoice) Message {
	var b strings.Builder
	b.WriteString("PAYMENT RECEIVED!\n\n")
	fmt.Fprintf(&b, "Thank you for your payment of %s\n\n", formatMoney(inv.Total()))
	fmt.Fprintf(&b, "Invoice: %s\n", inv.InvoiceNumber)
	if inv.PaidAt != nil {
		fmt.Fprintf(&b, "Paid on: %s\n", inv.PaidAt.Format(stampDate))
	}

	return Message{
		Subject: fmt.Sprintf("Payment Received - Invoice %s", inv.InvoiceNumber),
		Text:    b.String(),
	}
}

func paymentReminderEmail(inv *model.Invoice) Message {
	var b strings.Builder
	b.WriteString("PAYMENT REMINDER\n\n")
	fmt.Fprintf(&b, "Invoice %s is due\n\n", inv.InvoiceNumber)
	fmt.Fprintf(&b, "Amount: %s\n", formatMoney(inv.Total()))
	fmt.Fprintf(&b, "Due Date: %s\n", inv.DueDate.Format(longDate))
	if url := paymentURL(inv); url != "" {
		fmt.Fprintf(&b, "\nPay online: %s\n", url)
	}

	return Message{
		Subject: fmt.Sprintf("Payment Reminder - Invoice %s", inv.InvoiceNumber),
		Text:    b.String(),
	}
}

func invoiceSMS(inv *model.Invoice) string {
	text := fmt.Sprintf("Invoice %s for %s is due on %s.", inv.InvoiceNumber, formatMoney(inv.Total()), inv.DueDate.Format(shortDate))
	if url := paymentURL(inv); url != "" {
		text += " Pay now: " + url
	}
	return text
}

func paymentReminderSMS(inv *model.Invoice) string {
	text := fmt.Sprintf("Reminder: Invoice %s for %s is due on %s. ", inv.InvoiceNumber, formatMoney(inv.Total()), inv.DueDate.Format(shortDate))
	if url := paymentURL(inv); url != "" {
		text += "Pay now: " + url
	}
	return strings.TrimSpace(text)
}

func paymentConfirmationSMS(inv *model.Invoice) string {
	return fmt.Sprintf("Payment received! Thank you for paying %s for invoice %s.", formatMoney(inv.Total()), inv.InvoiceNumber)
}

func paymentURL(inv *model.Invoice) string {
	if inv.PaymentLinkURL == nil {
		return ""
	}
	return *inv.PaymentLinkURL
}

// formatMoney renders an amount as $1,234.50.
func formatMoney(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}
	return sign + "$" + grouped.String() + "." + frac
}
