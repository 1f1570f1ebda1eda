package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopMigration(ctx context.Context, records map[string]Record) error { return nil }

func TestMigrations_Plan(t *testing.T) {
	m := NewMigrations()
	m.Register("notes", 0, noopMigration)
	m.Register("notes", 1, noopMigration)
	m.Register("notes", 2, noopMigration)

	t.Run("full chain", func(t *testing.T) {
		plan, err := m.Plan("notes", 0, 3)
		require.NoError(t, err)
		assert.Len(t, plan, 3)
	})

	t.Run("partial chain", func(t *testing.T) {
		plan, err := m.Plan("notes", 2, 3)
		require.NoError(t, err)
		assert.Len(t, plan, 1)
	})

	t.Run("already current", func(t *testing.T) {
		plan, err := m.Plan("notes", 3, 3)
		require.NoError(t, err)
		assert.Empty(t, plan)
	})
}

func TestMigrations_Plan_MissingStep(t *testing.T) {
	m := NewMigrations()
	m.Register("notes", 0, noopMigration)
	// Step 1 -> 2 deliberately absent.
	m.Register("notes", 2, noopMigration)

	_, err := m.Plan("notes", 0, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMigrationMissing)
	assert.Contains(t, err.Error(), "no step 1 to 2")
}

func TestMigrations_Plan_UnknownCollection(t *testing.T) {
	m := NewMigrations()

	_, err := m.Plan("ghosts", 0, 1)
	assert.ErrorIs(t, err, ErrMigrationMissing)
}

func TestMigrations_Plan_VersionRegression(t *testing.T) {
	m := NewMigrations()

	_, err := m.Plan("notes", 5, 3)
	assert.ErrorIs(t, err, ErrVersionRegression)
}

func TestMigrations_Register_Duplicate(t *testing.T) {
	m := NewMigrations()
	m.Register("notes", 0, noopMigration)

	assert.Panics(t, func() { m.Register("notes", 0, noopMigration) })
	assert.Panics(t, func() { m.Register("notes", 1, nil) })
}
