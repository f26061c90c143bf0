// Package testutil provides in-memory repository implementations so service
// and handler tests run without Postgres or Redis.
package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"chemtrack/internal/models"
	"chemtrack/internal/repository"
)

type Store struct {
	mu sync.Mutex

	nextBatchID  uint
	nextRecordID uint
	nextUserID   uint

	batches map[uint]models.EquipmentBatch
	records map[uint]models.EquipmentRecord
	users   map[uint]models.User
}

func NewStore() *Store {
	return &Store{
		batches: make(map[uint]models.EquipmentBatch),
		records: make(map[uint]models.EquipmentRecord),
		users:   make(map[uint]models.User),
	}
}

func (s *Store) Batches() repository.BatchRepository { return &batchRepo{s} }

func (s *Store) Equipment() repository.EquipmentRepository { return &equipmentRepo{s} }

func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// BatchCount reports how many batches currently exist, across all users.
func (s *Store) BatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

// RecordCount reports how many equipment records currently exist.
func (s *Store) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// BatchIDs returns the ids of the user's batches, newest first.
func (s *Store) BatchIDs(userID uint) []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	batches := s.userBatchesLocked(userID)
	ids := make([]uint, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	return ids
}

// SetUploadedAt rewrites a batch's creation timestamp, for tests that need
// control over retention ordering.
func (s *Store) SetUploadedAt(batchID uint, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.batches[batchID]; ok {
		b.UploadedAt = t
		s.batches[batchID] = b
	}
}

func (s *Store) userBatchesLocked(userID uint) []models.EquipmentBatch {
	var batches []models.EquipmentBatch
	for _, b := range s.batches {
		if b.UserID != nil && *b.UserID == userID {
			batches = append(batches, b)
		}
	}
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].UploadedAt.Equal(batches[j].UploadedAt) {
			return batches[i].UploadedAt.After(batches[j].UploadedAt)
		}
		return batches[i].ID > batches[j].ID
	})
	return batches
}

type batchRepo struct {
	s *Store
}

func (r *batchRepo) CreateWithRecords(ctx context.Context, batch *models.EquipmentBatch, records []models.EquipmentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextBatchID++
	batch.ID = r.s.nextBatchID
	r.s.batches[batch.ID] = *batch

	for i := range records {
		r.s.nextRecordID++
		records[i].ID = r.s.nextRecordID
		records[i].BatchID = batch.ID
		r.s.records[records[i].ID] = records[i]
	}
	return nil
}

func (r *batchRepo) LatestForUser(ctx context.Context, userID uint) (*models.EquipmentBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	batches := r.s.userBatchesLocked(userID)
	if len(batches) == 0 {
		return nil, nil
	}
	latest := batches[0]
	return &latest, nil
}

func (r *batchRepo) ListByUser(ctx context.Context, userID uint) ([]models.EquipmentBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.userBatchesLocked(userID), nil
}

func (r *batchRepo) DeleteBeyond(ctx context.Context, userID uint, keep int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	batches := r.s.userBatchesLocked(userID)
	if keep < 0 {
		keep = 0
	}
	if len(batches) <= keep {
		return 0, nil
	}

	var dropped int64
	for _, b := range batches[keep:] {
		for id, rec := range r.s.records {
			if rec.BatchID == b.ID {
				delete(r.s.records, id)
			}
		}
		delete(r.s.batches, b.ID)
		dropped++
	}
	return dropped, nil
}

type equipmentRepo struct {
	s *Store
}

func (r *equipmentRepo) ListByBatch(ctx context.Context, batchID uint) ([]models.EquipmentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var records []models.EquipmentRecord
	for _, rec := range r.s.records {
		if rec.BatchID == batchID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (r *equipmentRepo) StatsForBatch(ctx context.Context, batchID uint) (*repository.BatchStats, error) {
	records, _ := r.ListByBatch(ctx, batchID)

	stats := &repository.BatchStats{TypeCounts: make(map[string]int64)}
	stats.Count = int64(len(records))
	if stats.Count == 0 {
		return stats, nil
	}

	var sumFlow, sumPres, sumTemp float64
	for _, rec := range records {
		sumFlow += rec.Flowrate
		sumPres += rec.Pressure
		sumTemp += rec.Temperature
		stats.TypeCounts[rec.Type]++
	}
	n := float64(stats.Count)
	stats.AvgFlowrate = sumFlow / n
	stats.AvgPressure = sumPres / n
	stats.AvgTemperature = sumTemp / n
	return stats, nil
}

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextUserID++
	user.ID = r.s.nextUserID
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

// Cache is an in-memory repository.CacheRepository. Expirations are honored
// lazily on read.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cacheEntry{data: data}
	if expiration > 0 {
		entry.expiresAt = time.Now().Add(expiration)
	}
	c.entries[key] = entry
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len reports how many live entries the cache holds.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
