//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsgeno/internal/model"
)

func TestSQLiteStoreGenotypeAndLineageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "fsgeno.db"))
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() {
		_ = store.Close()
	})

	now := time.Now().UTC()
	for i, id := range []string{"g2", "g1"} {
		require.NoError(t, store.SaveGenotype(ctx, model.GenotypeRecord{
			VersionedRecord: versioned(),
			ID:              id,
			Text:            "1.1,0,0.4:E",
			CreatedAt:       now.Add(time.Duration(i) * time.Second),
		}))
	}

	loaded, ok, err := store.GetGenotype(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.1,0,0.4:E", loaded.Text)

	records, err := store.ListGenotypes(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "g2", records[0].ID)

	require.NoError(t, store.DeleteGenotype(ctx, "g2"))
	_, ok, err = store.GetGenotype(ctx, "g2")
	require.NoError(t, err)
	assert.False(t, ok)

	lineage := []model.LineageRecord{{VersionedRecord: versioned(), GenotypeID: "g1", Generation: 0, Operation: "seed"}}
	require.NoError(t, store.SaveLineage(ctx, "run", lineage))
	got, ok, err := store.GetLineage(ctx, "run")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "seed", got[0].Operation)
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore(KindSQLite, filepath.Join(t.TempDir(), "factory.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, CloseIfSupported(store))
}
