package config

import (
	"context"
	"errors"
	"fmt"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db    *gorm.DB
	admin AdminConfig
	log   *zap.SugaredLogger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, admin AdminConfig, log *zap.SugaredLogger) *Seeder {
	return &Seeder{db: db, admin: admin, log: log}
}

// Run executes all seeders. Each step is idempotent.
func (s *Seeder) Run(ctx context.Context) error {
	s.log.Info("running database seeders")

	if err := s.seedAdminUser(ctx); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := SeedMasterData(ctx, s.db, s.log); err != nil {
		return err
	}

	s.log.Info("database seeding completed")
	return nil
}

// seedAdminUser creates the bootstrap administrator once
func (s *Seeder) seedAdminUser(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", string(domain.RoleAdmin)).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if s.admin.Password == "" {
		s.log.Warn("no administrator exists and ADMIN_PASSWORD is empty, skipping admin seed")
		return nil
	}
	if !password.ValidatePassword(s.admin.Password) {
		return errors.New("ADMIN_PASSWORD must be at least 8 characters")
	}

	hashedPassword, err := password.Hash(s.admin.Password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:     s.admin.Email,
		Username:  "admin",
		Password:  hashedPassword,
		FirstName: "Διαχειριστής",
		LastName:  "Συστήματος",
		Role:      string(domain.RoleAdmin),
		IsActive:  true,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	s.log.Infow("admin user created", "email", admin.Email)
	return nil
}
