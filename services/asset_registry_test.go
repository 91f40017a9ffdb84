package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"stock_ingestion_backend/models"
)

func TestEnsureAsset_Idempotent(t *testing.T) {
	db := newTestDB(t)
	registry := NewAssetRegistry(db)

	first, err := registry.EnsureAsset(t.Context(), "aapl")
	require.NoError(t, err)
	require.NotZero(t, first)

	second, err := registry.EnsureAsset(t.Context(), " AAPL ")
	require.NoError(t, err)
	require.Equal(t, first, second)

	var assets []models.Asset
	require.NoError(t, db.Find(&assets).Error)
	require.Len(t, assets, 1)
	require.Equal(t, "AAPL", assets[0].Symbol)
	require.Equal(t, "AAPL", assets[0].Name)
	require.Equal(t, models.AssetTypeStock, assets[0].Type)
}

func TestEnsureAsset_ConcurrentCallersShareOneRow(t *testing.T) {
	db := newTestDB(t)
	registry := NewAssetRegistry(db)

	const callers = 8
	ids := make([]uint, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := registry.EnsureAsset(t.Context(), "NVDA")
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
	n, err := registry.Count(t.Context())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestEnsureAsset_EmptySymbol(t *testing.T) {
	registry := NewAssetRegistry(newTestDB(t))

	_, err := registry.EnsureAsset(t.Context(), "   ")
	require.ErrorIs(t, err, ErrEmptySymbol)
}

func TestEnsureAsset_StorageUnavailable(t *testing.T) {
	db := newTestDB(t)
	registry := NewAssetRegistry(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = registry.EnsureAsset(t.Context(), "AAPL")
	require.Error(t, err)
	require.True(t, IsStorageError(err), "expected StorageError, got %T", err)
}

func TestListSymbols(t *testing.T) {
	registry := NewAssetRegistry(newTestDB(t))

	for _, s := range []string{"MSFT", "AAPL", "GOOGL"} {
		_, err := registry.EnsureAsset(t.Context(), s)
		require.NoError(t, err)
	}

	symbols, err := registry.ListSymbols(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL", "GOOGL", "MSFT"}, symbols)
}
