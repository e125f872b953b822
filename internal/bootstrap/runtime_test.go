package bootstrap

import (
	"testing"

	"socialapi/internal/config"
	"socialapi/internal/models"
	"socialapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func users(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	return n
}

func TestSeedIfEmpty_SeedsDevelopmentOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := &config.Config{Env: "development"}

	require.NoError(t, seedIfEmpty(cfg, db, "minimal"))
	seeded := users(t, db)
	assert.Positive(t, seeded)

	require.NoError(t, seedIfEmpty(cfg, db, "minimal"))
	assert.Equal(t, seeded, users(t, db))
}

func TestSeedIfEmpty_SkipsOtherEnvironments(t *testing.T) {
	db := testutil.NewTestDB(t)

	for _, env := range []string{"production", "test", ""} {
		require.NoError(t, seedIfEmpty(&config.Config{Env: env}, db, "minimal"))
	}
	assert.Zero(t, users(t, db))
}

func TestSeedIfEmpty_UnknownPreset(t *testing.T) {
	db := testutil.NewTestDB(t)
	assert.Error(t, seedIfEmpty(&config.Config{Env: "development"}, db, "galaxy"))
}
