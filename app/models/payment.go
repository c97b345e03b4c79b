package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentProviderWave = "wave"

	PaymentStatusSucceeded = "succeeded"
)

// Payment is the append-only ledger row written once per confirmed order.
type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	UUID              string          `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	OrderID           string          `gorm:"type:varchar(191);not null;uniqueIndex:payments_order_id_key" json:"order_id"`
	Provider          string          `gorm:"type:varchar(20);not null;default:'wave'" json:"provider"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency          string          `gorm:"type:char(3);not null" json:"currency"`
	Status            string          `gorm:"type:varchar(30);not null;index" json:"status"`
	ProviderSessionID string          `gorm:"type:varchar(191);default:''" json:"provider_session_id"`
	ProviderEventID   string          `gorm:"type:varchar(191);default:''" json:"provider_event_id"`
	TransactionID     string          `gorm:"type:varchar(191);default:''" json:"transaction_id"`
	RawPayloadJSON    string          `gorm:"type:longtext" json:"-"`
	CreatedAt         time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	if p.Provider == "" {
		p.Provider = PaymentProviderWave
	}
	return nil
}
