package config_test

import (
	"context"
	"testing"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/testdb"
	"dimos-fixit/internal/config"
	"dimos-fixit/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeeder_Idempotent(t *testing.T) {
	password.SetCost(4)
	db := testdb.Open(t)
	seeder := config.NewSeeder(db, config.AdminConfig{Email: "admin@dimos.gr", Password: "admin-secret"}, zap.NewNop().Sugar())

	require.NoError(t, seeder.Run(context.Background()))
	require.NoError(t, seeder.Run(context.Background()))

	var admins, categories, settings int64
	require.NoError(t, db.Model(&models.User{}).Where("role = ?", "ADMIN").Count(&admins).Error)
	require.NoError(t, db.Model(&models.Category{}).Count(&categories).Error)
	require.NoError(t, db.Model(&models.Setting{}).Count(&settings).Error)
	assert.Equal(t, int64(1), admins)
	assert.Equal(t, int64(5), categories)
	assert.Equal(t, int64(3), settings)

	var subs []models.Subcategory
	require.NoError(t, db.Find(&subs).Error)
	assert.Len(t, subs, 11)
	for _, s := range subs {
		assert.NotNil(t, s.EstimatedDays)
		assert.True(t, s.IsActive)
	}
}

func TestSeeder_SkipsAdminWithoutPassword(t *testing.T) {
	db := testdb.Open(t)
	seeder := config.NewSeeder(db, config.AdminConfig{Email: "admin@dimos.gr"}, zap.NewNop().Sugar())
	require.NoError(t, seeder.Run(context.Background()))

	var admins int64
	require.NoError(t, db.Model(&models.User{}).Count(&admins).Error)
	assert.Equal(t, int64(0), admins)
}
