package models

import (
	"time"

	"gorm.io/datatypes"
)

// EquipmentBatch is one CSV upload event. Its record set is written once at
// ingest time and only ever removed as a whole, never mutated.
type EquipmentBatch struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UploadedAt time.Time         `gorm:"not null;index:idx_batches_user_uploaded,priority:2" json:"uploaded_at"`
	UserID     *uint             `gorm:"index:idx_batches_user_uploaded,priority:1" json:"-"`
	Filename   string            `gorm:"not null;default:'';size:255" json:"filename"`
	Columns    datatypes.JSON    `json:"-"`
	Records    []EquipmentRecord `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"-"`
}
