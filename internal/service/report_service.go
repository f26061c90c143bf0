package service

import (
	"context"
	"errors"
	"fmt"

	"chemtrack/internal/models"
	"chemtrack/internal/repository"
	"chemtrack/internal/utils"
)

// ErrNoBatch is the report path's not-found condition. The dashboard
// zero-fills instead; the asymmetry is part of the contract.
var ErrNoBatch = errors.New("No data available for report generation")

type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ReportService interface {
	GeneratePDF(ctx context.Context, userID uint) (*ReportFile, error)
	GenerateExcel(ctx context.Context, userID uint) (*ReportFile, error)
}

type reportService struct {
	batches   repository.BatchRepository
	equipment repository.EquipmentRepository
}

func NewReportService(batches repository.BatchRepository, equipment repository.EquipmentRepository) ReportService {
	return &reportService{
		batches:   batches,
		equipment: equipment,
	}
}

func (s *reportService) GeneratePDF(ctx context.Context, userID uint) (*ReportFile, error) {
	batch, records, err := s.loadLatest(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := utils.BuildPDFReport(batch, records)
	if err != nil {
		return nil, fmt.Errorf("failed to build PDF report: %w", err)
	}

	return &ReportFile{
		Filename:    fmt.Sprintf("equipment_report_batch_%d.pdf", batch.ID),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func (s *reportService) GenerateExcel(ctx context.Context, userID uint) (*ReportFile, error) {
	batch, records, err := s.loadLatest(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := utils.BuildExcelReport(batch, records)
	if err != nil {
		return nil, fmt.Errorf("failed to build Excel report: %w", err)
	}

	return &ReportFile{
		Filename:    fmt.Sprintf("equipment_report_batch_%d.xlsx", batch.ID),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

func (s *reportService) loadLatest(ctx context.Context, userID uint) (*models.EquipmentBatch, []models.EquipmentRecord, error) {
	batch, err := s.batches.LatestForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load latest batch: %w", err)
	}
	if batch == nil {
		return nil, nil, ErrNoBatch
	}

	records, err := s.equipment.ListByBatch(ctx, batch.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list records for batch %d: %w", batch.ID, err)
	}

	return batch, records, nil
}
