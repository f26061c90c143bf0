package models

// EquipmentRecord is one row of equipment readings, owned by exactly one
// batch for its entire lifetime.
type EquipmentRecord struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	EquipmentName string  `gorm:"not null;size:255" json:"equipment_name"`
	Type          string  `gorm:"not null;size:100" json:"type"`
	Flowrate      float64 `gorm:"not null" json:"flowrate"`
	Pressure      float64 `gorm:"not null" json:"pressure"`
	Temperature   float64 `gorm:"not null" json:"temperature"`
	BatchID       uint    `gorm:"not null;index" json:"-"`
}
