package repository

import (
	"context"

	"chemtrack/internal/models"

	"gorm.io/gorm"
)

type EquipmentRepository interface {
	ListByBatch(ctx context.Context, batchID uint) ([]models.EquipmentRecord, error)
	StatsForBatch(ctx context.Context, batchID uint) (*BatchStats, error)
}

// BatchStats holds the raw aggregates for one batch. Averages are unrounded;
// presentation-level rounding happens in the service layer.
type BatchStats struct {
	Count          int64
	AvgFlowrate    float64
	AvgPressure    float64
	AvgTemperature float64
	TypeCounts     map[string]int64
}

type equipmentRepository struct {
	db *gorm.DB
}

func NewEquipmentRepository(db *gorm.DB) EquipmentRepository {
	return &equipmentRepository{db: db}
}

func (r *equipmentRepository) ListByBatch(ctx context.Context, batchID uint) ([]models.EquipmentRecord, error) {
	var records []models.EquipmentRecord
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Find(&records).
		Error
	return records, err
}

func (r *equipmentRepository) StatsForBatch(ctx context.Context, batchID uint) (*BatchStats, error) {
	stats := &BatchStats{TypeCounts: make(map[string]int64)}

	err := r.db.WithContext(ctx).
		Model(&models.EquipmentRecord{}).
		Where("batch_id = ?", batchID).
		Count(&stats.Count).
		Error
	if err != nil {
		return nil, err
	}

	if stats.Count == 0 {
		return stats, nil
	}

	row := r.db.WithContext(ctx).
		Model(&models.EquipmentRecord{}).
		Select("AVG(flowrate) as avg_flowrate, AVG(pressure) as avg_pressure, AVG(temperature) as avg_temperature").
		Where("batch_id = ?", batchID).
		Row()
	if err := row.Scan(&stats.AvgFlowrate, &stats.AvgPressure, &stats.AvgTemperature); err != nil {
		return nil, err
	}

	type typeCount struct {
		Type  string
		Count int64
	}
	var counts []typeCount
	err = r.db.WithContext(ctx).
		Model(&models.EquipmentRecord{}).
		Select("type, COUNT(id) as count").
		Where("batch_id = ?", batchID).
		Group("type").
		Scan(&counts).
		Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		stats.TypeCounts[c.Type] = c.Count
	}

	return stats, nil
}
