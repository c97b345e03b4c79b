package payments

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mavuno/mavuno-api/app/models"
)

// Repository persists the payments ledger.
type Repository interface {
	RecordPayment(ctx context.Context, payment *models.Payment) (bool, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// RecordPayment inserts the row unless the order is already in the ledger.
func (r *gormRepository) RecordPayment(ctx context.Context, payment *models.Payment) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
