package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"fsgeno/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	genotypes   map[string]model.GenotypeRecord
	lineage     map[string][]model.LineageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.genotypes = make(map[string]model.GenotypeRecord)
	s.lineage = make(map[string][]model.LineageRecord)
	return nil
}

func (s *MemoryStore) SaveGenotype(_ context.Context, record model.GenotypeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.genotypes[record.ID] = cloneGenotypeRecord(record)
	return nil
}

func (s *MemoryStore) GetGenotype(_ context.Context, id string) (model.GenotypeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.genotypes[id]
	if !ok {
		return model.GenotypeRecord{}, false, nil
	}
	return cloneGenotypeRecord(record), true, nil
}

// ListGenotypes returns every record ordered by creation time, then id.
func (s *MemoryStore) ListGenotypes(_ context.Context) ([]model.GenotypeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.GenotypeRecord, 0, len(s.genotypes))
	for _, record := range s.genotypes {
		out = append(out, cloneGenotypeRecord(record))
	}
	sortGenotypeRecords(out)
	return out, nil
}

func (s *MemoryStore) DeleteGenotype(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.genotypes, id)
	return nil
}

func (s *MemoryStore) SaveLineage(_ context.Context, runID string, lineage []model.LineageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	copied := make([]model.LineageRecord, len(lineage))
	for i, record := range lineage {
		record.ParentIDs = append([]string(nil), record.ParentIDs...)
		copied[i] = record
	}
	s.lineage[runID] = copied
	return nil
}

func (s *MemoryStore) GetLineage(_ context.Context, runID string) ([]model.LineageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage, ok := s.lineage[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.LineageRecord, len(lineage))
	for i, record := range lineage {
		record.ParentIDs = append([]string(nil), record.ParentIDs...)
		copied[i] = record
	}
	return copied, true, nil
}

func cloneGenotypeRecord(in model.GenotypeRecord) model.GenotypeRecord {
	out := in
	out.Summary.Shapes = cloneCounts(in.Summary.Shapes)
	out.Summary.Joints = cloneCounts(in.Summary.Joints)
	return out
}

func cloneCounts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortGenotypeRecords(records []model.GenotypeRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
