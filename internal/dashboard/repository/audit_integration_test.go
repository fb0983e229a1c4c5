//go:build integration

package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/pkg/database"
	"github.com/medflow/medflow-dispensary/pkg/logger"
	"github.com/medflow/medflow-dispensary/pkg/testutil"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testutil.TerminateShared(context.Background())
	os.Exit(code)
}

func TestAuditRepository_Postgres(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := testutil.DefaultTestContext(t)

	pg, err := testutil.SharedPostgres(ctx)
	require.NoError(t, err)
	db, err := database.New(&pg.Config, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.Equal(t, "up", db.Health(ctx)["status"])

	repo := NewAuditRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	// a second run must be a no-op
	require.NoError(t, repo.EnsureSchema(ctx))

	values := `{"max_stock": 80}`
	field := domain.FieldMinStock
	require.NoError(t, repo.Append(ctx, &domain.AuditEntry{UnitID: "101", ItemID: "10", Action: domain.AuditOverride, Values: &values}))
	require.NoError(t, repo.Append(ctx, &domain.AuditEntry{UnitID: "101", ItemID: "10", Action: domain.AuditReset, Field: &field}))
	require.NoError(t, repo.Append(ctx, &domain.AuditEntry{UnitID: "202", ItemID: "10", Action: domain.AuditReset, Field: &field}))

	entries, err := repo.ListByUnit(ctx, "101", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditReset, entries[0].Action)
	require.NotNil(t, entries[1].Values)
	assert.JSONEq(t, values, *entries[1].Values)

	bad := "price"
	err = repo.Append(ctx, &domain.AuditEntry{UnitID: "101", ItemID: "10", Action: domain.AuditReset, Field: &bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
