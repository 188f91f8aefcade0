package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Distribution struct {
	ID            uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"amount"`
	DistributedTo string          `gorm:"size:255;not null" json:"distributed_to"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
