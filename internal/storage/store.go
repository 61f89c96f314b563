package storage

import (
	"context"

	"fsgeno/internal/model"
)

// Store persists genotype records and the lineage of evolution runs.
type Store interface {
	Init(ctx context.Context) error
	SaveGenotype(ctx context.Context, record model.GenotypeRecord) error
	GetGenotype(ctx context.Context, id string) (model.GenotypeRecord, bool, error)
	ListGenotypes(ctx context.Context) ([]model.GenotypeRecord, error)
	DeleteGenotype(ctx context.Context, id string) error
	SaveLineage(ctx context.Context, runID string, lineage []model.LineageRecord) error
	GetLineage(ctx context.Context, runID string) ([]model.LineageRecord, bool, error)
}
