package providers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	return db
}

func TestExistingDBProvider_Connect(t *testing.T) {
	db := openMemory(t)
	defer db.Close()

	provider := NewExistingDBProvider(db, "lab", "sqlite")
	assert.NoError(t, provider.Connect(context.Background(), nil))

	native, err := provider.GetNative()
	require.NoError(t, err)
	assert.Same(t, db, native)
	assert.NoError(t, provider.HealthCheck(context.Background()))
}

func TestExistingDBProvider_NilDB(t *testing.T) {
	provider := NewExistingDBProvider(nil, "lab", "sqlite")
	ctx := context.Background()

	assert.Error(t, provider.Connect(ctx, nil))
	assert.Error(t, provider.HealthCheck(ctx))
	_, err := provider.GetNative()
	assert.Error(t, err)
	assert.NoError(t, provider.Close())

	stats := provider.Stats()
	assert.False(t, stats.Connected)
	assert.Equal(t, "lab", stats.Name)
}

func TestExistingDBProvider_HealthCheckClosed(t *testing.T) {
	db := openMemory(t)
	provider := NewExistingDBProvider(db, "lab", "sqlite")
	require.NoError(t, db.Close())

	assert.Error(t, provider.HealthCheck(context.Background()))
}

func TestExistingDBProvider_Stats(t *testing.T) {
	db := openMemory(t)
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	stats := NewExistingDBProvider(db, "lab", "sqlite").Stats()
	require.NotNil(t, stats)
	assert.Equal(t, "lab", stats.Name)
	assert.Equal(t, "sqlite", stats.Type)
	assert.True(t, stats.Connected)
}

func TestExistingDBProvider_Close(t *testing.T) {
	db := openMemory(t)
	provider := NewExistingDBProvider(db, "lab", "sqlite")

	require.NoError(t, provider.Close())
	assert.Error(t, db.Ping(), "database should be closed")
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{9, 10 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoff(tt.attempt, time.Second, 10*time.Second), "attempt %d", tt.attempt)
	}
}
