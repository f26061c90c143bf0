package repository

import (
	"context"
	"errors"

	"chemtrack/internal/models"

	"gorm.io/gorm"
)

type BatchRepository interface {
	// CreateWithRecords persists a batch and its rows as one atomic unit, so
	// a failure cannot leave an orphaned empty batch behind.
	CreateWithRecords(ctx context.Context, batch *models.EquipmentBatch, records []models.EquipmentRecord) error
	LatestForUser(ctx context.Context, userID uint) (*models.EquipmentBatch, error)
	ListByUser(ctx context.Context, userID uint) ([]models.EquipmentBatch, error)
	// DeleteBeyond removes every batch of the user past the `keep` most
	// recent ones, records first, and reports how many batches were dropped.
	DeleteBeyond(ctx context.Context, userID uint, keep int) (int64, error)
}

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) CreateWithRecords(ctx context.Context, batch *models.EquipmentBatch, records []models.EquipmentRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].BatchID = batch.ID
		}
		return tx.CreateInBatches(records, 100).Error
	})
}

func (r *batchRepository) LatestForUser(ctx context.Context, userID uint) (*models.EquipmentBatch, error) {
	var batch models.EquipmentBatch
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Order("id DESC").
		First(&batch).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) ListByUser(ctx context.Context, userID uint) ([]models.EquipmentBatch, error) {
	var batches []models.EquipmentBatch
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Order("id DESC").
		Find(&batches).
		Error
	return batches, err
}

func (r *batchRepository) DeleteBeyond(ctx context.Context, userID uint, keep int) (int64, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.EquipmentBatch{}).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Order("id DESC").
		Pluck("id", &ids).
		Error
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(ids) <= keep {
		return 0, nil
	}
	staleIDs := ids[keep:]

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id IN ?", staleIDs).Delete(&models.EquipmentRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", staleIDs).Delete(&models.EquipmentBatch{}).Error
	})
	if err != nil {
		return 0, err
	}

	return int64(len(staleIDs)), nil
}
