package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"chemtrack/internal/models"
	"chemtrack/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportFixture(t *testing.T) (*testutil.Store, ReportService) {
	t.Helper()
	store := testutil.NewStore()
	svc := NewReportService(store.Batches(), store.Equipment())
	return store, svc
}

func seedReportBatch(t *testing.T, store *testutil.Store, userID uint) *models.EquipmentBatch {
	t.Helper()
	uid := userID
	batch := &models.EquipmentBatch{
		UserID:     &uid,
		UploadedAt: time.Now().UTC(),
		Filename:   "equipment.csv",
	}
	records := []models.EquipmentRecord{
		{EquipmentName: "Reactor R-101", Type: "Reactor", Flowrate: 120.5, Pressure: 15.2, Temperature: 180},
		{EquipmentName: "Pump P-201 with a very long name", Type: "Pump", Flowrate: 45, Pressure: 8.75, Temperature: 25},
		{EquipmentName: "Heat Exchanger E-301", Type: "Heat Exchanger", Flowrate: 88.8, Pressure: 12, Temperature: 95.5},
	}
	require.NoError(t, store.Batches().CreateWithRecords(context.Background(), batch, records))
	return batch
}

func TestGeneratePDF_NoData(t *testing.T) {
	_, svc := newReportFixture(t)

	_, err := svc.GeneratePDF(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoBatch)

	_, err = svc.GenerateExcel(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoBatch)
}

func TestGeneratePDF(t *testing.T) {
	store, svc := newReportFixture(t)
	seedReportBatch(t, store, 1)

	file, err := svc.GeneratePDF(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "equipment_report_batch_1.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")), "output should be a PDF document")
	assert.Greater(t, len(file.Data), 1000, "report should contain the rendered tables")
}

func TestGeneratePDF_ScopedToUser(t *testing.T) {
	store, svc := newReportFixture(t)
	seedReportBatch(t, store, 2)

	_, err := svc.GeneratePDF(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoBatch)
}

func TestGenerateExcel(t *testing.T) {
	store, svc := newReportFixture(t)
	seedReportBatch(t, store, 1)

	file, err := svc.GenerateExcel(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "equipment_report_batch_1.xlsx", file.Filename)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.ContentType)
	// xlsx is a zip container.
	assert.True(t, bytes.HasPrefix(file.Data, []byte("PK")), "output should be an xlsx archive")
}

func TestGeneratePDF_UsesLatestBatch(t *testing.T) {
	store, svc := newReportFixture(t)
	first := seedReportBatch(t, store, 1)
	second := seedReportBatch(t, store, 1)
	store.SetUploadedAt(first.ID, time.Now().UTC().Add(-time.Hour))
	store.SetUploadedAt(second.ID, time.Now().UTC())

	file, err := svc.GeneratePDF(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "equipment_report_batch_2.pdf", file.Filename)
}
