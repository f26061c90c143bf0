package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"chemtrack/internal/models"
	"chemtrack/internal/repository"

	"gorm.io/datatypes"
)

// requiredColumns is the exact, case-sensitive header set an upload must
// carry. Order matters only for the missing-column error message.
var requiredColumns = []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}

type UploadResult struct {
	BatchID        uint `json:"batch_id"`
	RecordsCreated int  `json:"records_created"`
}

type IngestService interface {
	// IngestCSV runs the whole pipeline: extension check, parse, header
	// validation, transactional batch+records insert, then the retention
	// hook for the owning user.
	IngestCSV(ctx context.Context, userID *uint, filename string, file io.Reader) (*UploadResult, error)
}

type ingestService struct {
	batches    repository.BatchRepository
	cache      repository.CacheRepository
	maxBatches int
}

func NewIngestService(batches repository.BatchRepository, cache repository.CacheRepository, maxBatches int) IngestService {
	if maxBatches <= 0 {
		maxBatches = 5
	}
	return &ingestService{
		batches:    batches,
		cache:      cache,
		maxBatches: maxBatches,
	}
}

func (s *ingestService) IngestCSV(ctx context.Context, userID *uint, filename string, file io.Reader) (*UploadResult, error) {
	if !strings.HasSuffix(filename, ".csv") {
		return nil, FieldErrors{"file": {"Only CSV files are allowed."}}
	}

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("Error processing CSV: %v", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("Error processing CSV: no columns to parse from file")
	}

	header := rows[0]
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := colIndex[name]; !seen {
			colIndex[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("Missing required columns: %s", strings.Join(missing, ", "))
	}

	records := make([]models.EquipmentRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record, err := rowToRecord(row, colIndex)
		if err != nil {
			return nil, fmt.Errorf("Error processing CSV: %v", err)
		}
		records = append(records, record)
	}

	columns, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("Error processing CSV: %v", err)
	}

	batch := &models.EquipmentBatch{
		UploadedAt: time.Now().UTC(),
		UserID:     userID,
		Filename:   filename,
		Columns:    datatypes.JSON(columns),
	}
	if err := s.batches.CreateWithRecords(ctx, batch, records); err != nil {
		return nil, fmt.Errorf("Error processing CSV: %v", err)
	}

	if userID != nil {
		s.enforceRetention(ctx, *userID)
		if err := s.cache.Delete(ctx, dashboardCacheKey(*userID)); err != nil {
			log.Printf("Failed to invalidate dashboard cache for user %d: %v", *userID, err)
		}
	}

	return &UploadResult{
		BatchID:        batch.ID,
		RecordsCreated: len(records),
	}, nil
}

// enforceRetention is the explicit post-creation hook: keep only the most
// recent maxBatches batches of the user, everything older is dropped along
// with its records. A failure here does not fail the upload that already
// committed.
func (s *ingestService) enforceRetention(ctx context.Context, userID uint) {
	dropped, err := s.batches.DeleteBeyond(ctx, userID, s.maxBatches)
	if err != nil {
		log.Printf("Failed to enforce batch retention for user %d: %v", userID, err)
		return
	}
	if dropped > 0 {
		log.Printf("Retention dropped %d old batch(es) for user %d", dropped, userID)
	}
}

func rowToRecord(row []string, colIndex map[string]int) (models.EquipmentRecord, error) {
	flowrate, err := parseField(row, colIndex, "Flowrate")
	if err != nil {
		return models.EquipmentRecord{}, err
	}
	pressure, err := parseField(row, colIndex, "Pressure")
	if err != nil {
		return models.EquipmentRecord{}, err
	}
	temperature, err := parseField(row, colIndex, "Temperature")
	if err != nil {
		return models.EquipmentRecord{}, err
	}

	return models.EquipmentRecord{
		EquipmentName: fieldValue(row, colIndex, "Equipment Name"),
		Type:          fieldValue(row, colIndex, "Type"),
		Flowrate:      flowrate,
		Pressure:      pressure,
		Temperature:   temperature,
	}, nil
}

func fieldValue(row []string, colIndex map[string]int, col string) string {
	idx := colIndex[col]
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseField(row []string, colIndex map[string]int, col string) (float64, error) {
	raw := fieldValue(row, colIndex, col)
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("could not convert %s value %q to float", col, raw)
	}
	return value, nil
}
