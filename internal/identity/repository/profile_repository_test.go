package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
	"tiffin/internal/testutil"
)

// Unit Tests

func TestNewMySQLProfileRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLProfileRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestWithRole(t *testing.T) {
	p, err := withRole(domain.Profile{ID: "u-1"}, " Deliverer ")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDeliverer, p.Role)

	_, err = withRole(domain.Profile{ID: "u-2"}, "admin")
	_, ok := errors.IsForbiddenError(err)
	assert.True(t, ok)
}

func TestMemoryProfileRepository(t *testing.T) {
	repo := NewMemoryProfileRepository(domain.Profile{ID: "v-1", Role: domain.RoleVendor, DisplayName: "Spice Route"})

	p, err := repo.FindByID(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, "Spice Route", p.DisplayName)

	_, err = repo.FindByID(context.Background(), "missing")
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)

	repo.Put(domain.Profile{ID: "c-1", Role: domain.RoleCustomer})
	p, err = repo.FindByID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, p.Role)
}

// Integration Tests

func TestProfileRepository_FindByID_Success(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProfileRepository(db)

	_, err := db.Exec(`INSERT INTO profiles (id, role, display_name) VALUES (?, ?, ?)`,
		"11111111-1111-1111-1111-111111111111", "vendor", "Spice Route")
	require.NoError(t, err)

	profile, err := repo.FindByID(context.Background(), "11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleVendor, profile.Role)
	assert.Equal(t, "Spice Route", profile.DisplayName)
}

func TestProfileRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProfileRepository(db)

	profile, err := repo.FindByID(context.Background(), "99999999-9999-9999-9999-999999999999")
	assert.Error(t, err)
	assert.Nil(t, profile)

	nfe, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NotNil(t, nfe)
}

func TestProfileRepository_FindByID_UnknownRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProfileRepository(db)

	_, err := db.Exec(`INSERT INTO profiles (id, role) VALUES (?, ?)`,
		"22222222-2222-2222-2222-222222222222", "admin")
	require.NoError(t, err)

	_, err = repo.FindByID(context.Background(), "22222222-2222-2222-2222-222222222222")
	_, ok := errors.IsForbiddenError(err)
	assert.True(t, ok)
}
