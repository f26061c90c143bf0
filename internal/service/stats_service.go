package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"chemtrack/internal/models"
	"chemtrack/internal/repository"
)

type AverageValues struct {
	Flowrate    float64 `json:"flowrate"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
}

type BatchInfo struct {
	ID         uint      `json:"id"`
	UploadedAt time.Time `json:"uploaded_at"`
	Filename   string    `json:"filename"`
}

type DashboardStats struct {
	TotalCount       int64                    `json:"total_count"`
	AverageValues    AverageValues            `json:"average_values"`
	TypeDistribution map[string]int64         `json:"type_distribution"`
	LatestBatch      *BatchInfo               `json:"latest_batch"`
	EquipmentData    []models.EquipmentRecord `json:"equipment_data"`
}

type BatchSummary struct {
	ID             uint      `json:"id"`
	UploadedAt     time.Time `json:"uploaded_at"`
	Filename       string    `json:"filename"`
	Columns        []string  `json:"columns,omitempty"`
	TotalRecords   int64     `json:"total_records"`
	AvgFlowrate    float64   `json:"avg_flowrate"`
	AvgPressure    float64   `json:"avg_pressure"`
	AvgTemperature float64   `json:"avg_temperature"`
}

type EquipmentListing struct {
	BatchID       uint                     `json:"batch_id"`
	EquipmentData []models.EquipmentRecord `json:"equipment_data"`
}

type StatsService interface {
	// Dashboard aggregates the requesting user's most recent batch; a user
	// with no batches gets a zero-filled result, not an error.
	Dashboard(ctx context.Context, userID uint) (*DashboardStats, error)
	LatestEquipment(ctx context.Context, userID uint) (*EquipmentListing, error)
	History(ctx context.Context, userID uint) ([]BatchSummary, error)
}

type statsService struct {
	batches   repository.BatchRepository
	equipment repository.EquipmentRepository
	cache     repository.CacheRepository
	cacheTTL  time.Duration
}

func NewStatsService(batches repository.BatchRepository, equipment repository.EquipmentRepository, cache repository.CacheRepository, cacheTTL time.Duration) StatsService {
	return &statsService{
		batches:   batches,
		equipment: equipment,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

func dashboardCacheKey(userID uint) string {
	return fmt.Sprintf("dashboard:user:%d", userID)
}

func (s *statsService) Dashboard(ctx context.Context, userID uint) (*DashboardStats, error) {
	key := dashboardCacheKey(userID)

	cached := &DashboardStats{}
	hit, err := s.cache.GetJSON(ctx, key, cached)
	if err != nil {
		log.Printf("Dashboard cache read failed for user %d: %v", userID, err)
	} else if hit {
		return cached, nil
	}

	stats, err := s.computeDashboard(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, stats, s.cacheTTL); err != nil {
		log.Printf("Dashboard cache write failed for user %d: %v", userID, err)
	}

	return stats, nil
}

func (s *statsService) computeDashboard(ctx context.Context, userID uint) (*DashboardStats, error) {
	empty := &DashboardStats{
		TypeDistribution: map[string]int64{},
		EquipmentData:    []models.EquipmentRecord{},
	}

	batch, err := s.batches.LatestForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest batch: %w", err)
	}
	if batch == nil {
		return empty, nil
	}

	aggregates, err := s.equipment.StatsForBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate batch %d: %w", batch.ID, err)
	}

	records, err := s.equipment.ListByBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records for batch %d: %w", batch.ID, err)
	}
	if records == nil {
		records = []models.EquipmentRecord{}
	}

	return &DashboardStats{
		TotalCount: aggregates.Count,
		AverageValues: AverageValues{
			Flowrate:    round2(aggregates.AvgFlowrate),
			Pressure:    round2(aggregates.AvgPressure),
			Temperature: round2(aggregates.AvgTemperature),
		},
		TypeDistribution: aggregates.TypeCounts,
		LatestBatch: &BatchInfo{
			ID:         batch.ID,
			UploadedAt: batch.UploadedAt,
			Filename:   batch.Filename,
		},
		EquipmentData: records,
	}, nil
}

func (s *statsService) LatestEquipment(ctx context.Context, userID uint) (*EquipmentListing, error) {
	batch, err := s.batches.LatestForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest batch: %w", err)
	}
	if batch == nil {
		return &EquipmentListing{EquipmentData: []models.EquipmentRecord{}}, nil
	}

	records, err := s.equipment.ListByBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records for batch %d: %w", batch.ID, err)
	}
	if records == nil {
		records = []models.EquipmentRecord{}
	}

	return &EquipmentListing{
		BatchID:       batch.ID,
		EquipmentData: records,
	}, nil
}

func (s *statsService) History(ctx context.Context, userID uint) ([]BatchSummary, error) {
	batches, err := s.batches.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	summaries := make([]BatchSummary, 0, len(batches))
	for _, batch := range batches {
		aggregates, err := s.equipment.StatsForBatch(ctx, batch.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate batch %d: %w", batch.ID, err)
		}

		var columns []string
		if len(batch.Columns) > 0 {
			if err := json.Unmarshal(batch.Columns, &columns); err != nil {
				log.Printf("Unreadable column list on batch %d: %v", batch.ID, err)
			}
		}

		summaries = append(summaries, BatchSummary{
			ID:             batch.ID,
			UploadedAt:     batch.UploadedAt,
			Filename:       batch.Filename,
			Columns:        columns,
			TotalRecords:   aggregates.Count,
			AvgFlowrate:    round2(aggregates.AvgFlowrate),
			AvgPressure:    round2(aggregates.AvgPressure),
			AvgTemperature: round2(aggregates.AvgTemperature),
		})
	}

	return summaries, nil
}

// round2 rounds to 2 decimal places, half away from zero on the underlying
// binary value.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
