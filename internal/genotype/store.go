package genotype

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fsgeno/internal/model"
	"fsgeno/internal/storage"
)

var ErrGenotypeNotFound = errors.New("genotype not found")

// NewRecord describes g for persistence. An empty id is replaced by a fresh
// UUID.
func NewRecord(id string, g *Genotype, createdAt time.Time) model.GenotypeRecord {
	if id == "" {
		id = uuid.NewString()
	}
	sig := ComputeSignature(g)
	return model.GenotypeRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:          id,
		Text:        g.String(),
		Fingerprint: sig.Fingerprint,
		Summary:     sig.Summary,
		CreatedAt:   createdAt.UTC(),
	}
}

func SaveGenotype(ctx context.Context, store storage.Store, id string, g *Genotype) (model.GenotypeRecord, error) {
	if store == nil {
		return model.GenotypeRecord{}, fmt.Errorf("store is required")
	}
	if g == nil {
		return model.GenotypeRecord{}, fmt.Errorf("genotype is required")
	}
	record := NewRecord(id, g, time.Now())
	if err := store.SaveGenotype(ctx, record); err != nil {
		return model.GenotypeRecord{}, err
	}
	return record, nil
}

// LoadGenotype reads a stored record and parses its text.
func LoadGenotype(ctx context.Context, store storage.Store, id string) (*Genotype, model.GenotypeRecord, error) {
	if store == nil {
		return nil, model.GenotypeRecord{}, fmt.Errorf("store is required")
	}
	record, ok, err := store.GetGenotype(ctx, id)
	if err != nil {
		return nil, model.GenotypeRecord{}, err
	}
	if !ok {
		return nil, model.GenotypeRecord{}, fmt.Errorf("%w: %s", ErrGenotypeNotFound, id)
	}
	g, err := Parse(record.Text)
	if err != nil {
		return nil, model.GenotypeRecord{}, fmt.Errorf("parse stored genotype %s: %w", id, err)
	}
	return g, record, nil
}
