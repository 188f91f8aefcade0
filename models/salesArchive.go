package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SalesArchive struct {
	ID             uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	OriginalSaleId uuid.UUID `gorm:"type:char(36);not null;uniqueIndex" json:"original_sale_id"`
	Reason         string    `gorm:"type:text;not null" json:"reason"`
	ArchivedAt     time.Time `gorm:"autoCreateTime;index" json:"archived_at"`
}

func (a *SalesArchive) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable archive: sales_archives cannot be updated")
}

func (a *SalesArchive) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable archive: sales_archives cannot be deleted")
}
