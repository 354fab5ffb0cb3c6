package repository

import (
	"context"

	"invoiceapi/internal/model"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	ListByEntity(ctx context.Context, entityID string, skip, take int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	if err := GetDB(ctx, r.db).Create(entry).Error; err != nil {
		return storageError("write audit log", err)
	}
	return nil
}

// ListByEntity returns the newest entries first.
func (r *auditRepository) ListByEntity(ctx context.Context, entityID string, skip, take int) ([]model.AuditLog, int64, error) {
	logs := []model.AuditLog{}
	var total int64

	scoped := func() *gorm.DB {
		return GetDB(ctx, r.db).Model(&model.AuditLog{}).Where("entity_id = ?", entityID)
	}
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, storageError("count audit logs", err)
	}
	if take <= 0 || take > MaxTake {
		take = DefaultTake
	}
	if skip < 0 {
		skip = 0
	}
	if err := scoped().Order("created_at desc").Offset(skip).Limit(take).Find(&logs).Error; err != nil {
		return nil, 0, storageError("list audit logs", err)
	}

	return logs, total, nil
}
