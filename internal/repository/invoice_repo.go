package repository

import (
	"context"
	"errors"
	"time"

	"invoiceapi/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultTake = 50
	MaxTake     = 100
)

// InvoiceListFilter narrows List. Nil or empty fields impose no constraint;
// FromDate and ToDate are inclusive bounds on the issue date.
type InvoiceListFilter struct {
	Status      *model.InvoiceStatus
	FromDate    *time.Time
	ToDate      *time.Time
	ClientEmail string
	Skip        int
	Take        int
}

type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, error)
	Create(ctx context.Context, invoice *model.Invoice) error
	Update(ctx context.Context, invoice *model.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type invoiceRepository struct {
	db        *gorm.DB
	txManager TransactionManager
}

func NewInvoiceRepository(db *gorm.DB, txManager TransactionManager) InvoiceRepository {
	return &invoiceRepository{db: db, txManager: txManager}
}

func orderedLineItems(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return r.findOne(ctx, "find invoice", "id = ?", id)
}

func (r *invoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*model.Invoice, error) {
	return r.findOne(ctx, "find invoice by number", "invoice_number = ?", invoiceNumber)
}

func (r *invoiceRepository) findOne(ctx context.Context, op string, query string, arg interface{}) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).Preload("LineItems", orderedLineItems).First(&invoice, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(op, err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, error) {
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	take := filter.Take
	if take <= 0 {
		take = DefaultTake
	}
	if take > MaxTake {
		take = MaxTake
	}

	query := GetDB(ctx, r.db).Model(&model.Invoice{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("issue_date >= ?", filter.FromDate.UTC())
	}
	if filter.ToDate != nil {
		query = query.Where("issue_date <= ?", filter.ToDate.UTC())
	}
	if filter.ClientEmail != "" {
		query = query.Where("client_email = ?", filter.ClientEmail)
	}

	invoices := []model.Invoice{}
	if err := query.Preload("LineItems", orderedLineItems).
		Order("issue_date desc").
		Order("id").
		Offset(skip).
		Limit(take).
		Find(&invoices).Error; err != nil {
		return nil, storageError("list invoices", err)
	}
	return invoices, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return r.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		db := GetDB(txCtx, r.db)

		var count int64
		if err := db.Model(&model.Invoice{}).Where("id = ?", invoice.ID).Count(&count).Error; err != nil {
			return storageError("create invoice", err)
		}
		if count > 0 {
			return storageError("create invoice", ErrInvoiceExists)
		}

		numberLineItems(invoice)
		if err := db.Omit(clause.Associations).Create(invoice).Error; err != nil {
			return storageError("create invoice", err)
		}
		return r.insertLineItems(db, invoice)
	})
}

// Update upserts the invoice by id and replaces its line items wholesale.
func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return r.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		db := GetDB(txCtx, r.db)

		if err := db.Where("invoice_id = ?", invoice.ID).Delete(&model.LineItem{}).Error; err != nil {
			return storageError("update invoice", err)
		}

		numberLineItems(invoice)
		if err := db.Omit(clause.Associations).Save(invoice).Error; err != nil {
			return storageError("update invoice", err)
		}
		return r.insertLineItems(db, invoice)
	})
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		db := GetDB(txCtx, r.db)

		if err := db.Where("invoice_id = ?", id).Delete(&model.LineItem{}).Error; err != nil {
			return storageError("delete invoice", err)
		}
		res := db.Where("id = ?", id).Delete(&model.Invoice{})
		if res.Error != nil {
			return storageError("delete invoice", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

func (r *invoiceRepository) insertLineItems(db *gorm.DB, invoice *model.Invoice) error {
	if len(invoice.LineItems) == 0 {
		return nil
	}
	if err := db.Create(&invoice.LineItems).Error; err != nil {
		return storageError("save line items", err)
	}
	return nil
}

// numberLineItems binds line items to their invoice and records display order.
func numberLineItems(invoice *model.Invoice) {
	for i := range invoice.LineItems {
		invoice.LineItems[i].InvoiceID = invoice.ID
		invoice.LineItems[i].Position = i + 1
	}
}
