package models

import "time"

// ProcessedOrder marks an order whose payment confirmation was already handled.
type ProcessedOrder struct {
	OrderID   string    `gorm:"primaryKey;type:varchar(191)" json:"order_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
