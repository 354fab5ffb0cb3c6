package service

import (
	"time"

	"invoiceapi/internal/model"

	"github.com/shopspring/decimal"
)

// --- Requests ---

type AddressRequest struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type ClientRequest struct {
	Name    string          `json:"name" binding:"required"`
	Email   string          `json:"email" binding:"required,email"`
	Phone   string          `json:"phone"`
	Company string          `json:"company"`
	Address *AddressRequest `json:"address"`
}

type LineItemRequest struct {
	Description string           `json:"description" binding:"required"`
	Quantity    *int             `json:"quantity" binding:"omitempty,min=1"` // defaults to 1
	UnitPrice   *decimal.Decimal `json:"unit_price" binding:"required" swaggertype:"string" example:"150.00"`
}

type CreateInvoiceRequest struct {
	Client    ClientRequest     `json:"client"`
	LineItems []LineItemRequest `json:"line_items" binding:"dive"`
	TaxRate   *decimal.Decimal  `json:"tax_rate" swaggertype:"string" example:"10"`
	DueDate   time.Time         `json:"due_date" binding:"required"`
	Notes     *string           `json:"notes"`
}

// UpdateInvoiceRequest replaces every non-nil field wholesale. Status may be
// any known status and is not checked against the lifecycle.
type UpdateInvoiceRequest struct {
	Client    *ClientRequest    `json:"client"`
	LineItems []LineItemRequest `json:"line_items" binding:"dive"` // nil leaves items untouched, [] clears them
	TaxRate   *decimal.Decimal  `json:"tax_rate" swaggertype:"string"`
	DueDate   *time.Time        `json:"due_date"`
	Status    *string           `json:"status" example:"SENT"`
	Notes     *string           `json:"notes"`
}

// InvoiceFilter narrows ListInvoices. Zero values impose no constraint.
type InvoiceFilter struct {
	Status      string
	FromDate    *time.Time
	ToDate      *time.Time
	ClientEmail string
	Skip        int
	Take        int
}

// --- Responses ---

type LineItemResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

type InvoiceResponse struct {
	ID             string             `json:"id"`
	InvoiceNumber  string             `json:"invoice_number"`
	Client         model.Client       `json:"client"`
	LineItems      []LineItemResponse `json:"line_items"`
	Subtotal       string             `json:"subtotal"`
	TaxRate        string             `json:"tax_rate"`
	TaxAmount      string             `json:"tax_amount"`
	Total          string             `json:"total"`
	Status         string             `json:"status"`
	IssueDate      string             `json:"issue_date"`
	DueDate        string             `json:"due_date"`
	PaymentLinkID  *string            `json:"payment_link_id"`
	PaymentLinkURL *string            `json:"payment_link_url"`
	Notes          *string            `json:"notes"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      *string            `json:"updated_at"`
	PaidAt         *string            `json:"paid_at"`
	SentAt         *string            `json:"sent_at"`
}

type PaymentResponse struct {
	ID                string  `json:"id"`
	InvoiceID         string  `json:"invoice_id"`
	Amount            string  `json:"amount"`
	PaymentIntentID   string  `json:"payment_intent_id,omitempty"`
	CheckoutSessionID string  `json:"checkout_session_id,omitempty"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"created_at"`
	CompletedAt       *string `json:"completed_at"`
}

// --- Mapping ---

func ToInvoiceResponse(inv model.Invoice) InvoiceResponse {
	items := make([]LineItemResponse, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		items = append(items, LineItemResponse{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice.StringFixed(2),
			Total:       li.Total().StringFixed(2),
		})
	}

	return InvoiceResponse{
		ID:             inv.ID.String(),
		InvoiceNumber:  inv.InvoiceNumber,
		Client:         inv.Client,
		LineItems:      items,
		Subtotal:       inv.Subtotal().StringFixed(2),
		TaxRate:        inv.TaxRate.String(),
		TaxAmount:      inv.TaxAmount().StringFixed(2),
		Total:          inv.Total().StringFixed(2),
		Status:         string(inv.Status),
		IssueDate:      inv.IssueDate.Format(time.RFC3339),
		DueDate:        inv.DueDate.Format(time.RFC3339),
		PaymentLinkID:  inv.PaymentLinkID,
		PaymentLinkURL: inv.PaymentLinkURL,
		Notes:          inv.Notes,
		CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      formatTime(inv.UpdatedAt),
		PaidAt:         formatTime(inv.PaidAt),
		SentAt:         formatTime(inv.SentAt),
	}
}

func ToInvoiceResponses(invoices []model.Invoice) []InvoiceResponse {
	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, ToInvoiceResponse(inv))
	}
	return result
}

func ToPaymentResponses(payments []model.Payment) []PaymentResponse {
	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, PaymentResponse{
			ID:                p.ID.String(),
			InvoiceID:         p.InvoiceID.String(),
			Amount:            p.Amount.StringFixed(2),
			PaymentIntentID:   p.PaymentIntentID,
			CheckoutSessionID: p.CheckoutSessionID,
			Status:            p.Status,
			CreatedAt:         p.CreatedAt.Format(time.RFC3339),
			CompletedAt:       formatTime(p.CompletedAt),
		})
	}
	return result
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toClient(req ClientRequest) model.Client {
	client := model.Client{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
	}
	if req.Address != nil {
		client.Address = model.Address{
			Street:     req.Address.Street,
			City:       req.Address.City,
			State:      req.Address.State,
			PostalCode: req.Address.PostalCode,
			Country:    req.Address.Country,
		}
	}
	return client
}

func toLineItems(reqs []LineItemRequest) []model.LineItem {
	items := make([]model.LineItem, 0, len(reqs))
	for _, req := range reqs {
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		items = append(items, model.LineItem{
			Description: req.Description,
			Quantity:    quantity,
			UnitPrice:   *req.UnitPrice,
		})
	}
	return items
}
