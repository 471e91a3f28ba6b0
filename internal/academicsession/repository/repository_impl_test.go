package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/bursary/internal/academicsession/domain"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockPointerCreatesOnce(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.ActiveSessionPointer{}))
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	pointer, created, err := repo.LockPointer(ctx, conn, 1, 10, "admin", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "10", pointer.SessionID.String())

	pointer, created, err = repo.LockPointer(ctx, conn, 1, 11, "clerk", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "10", pointer.SessionID.String())
	assert.Equal(t, "admin", pointer.ActivatedBy)

	_, created, err = repo.LockPointer(ctx, conn, 2, 20, "admin", now)
	require.NoError(t, err)
	assert.True(t, created)

	var count int64
	require.NoError(t, conn.Model(&domain.ActiveSessionPointer{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
