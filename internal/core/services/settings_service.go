package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/patch"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var settingKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_.]{0,99}$`)

// SettingsService handles system key/value settings
type SettingsService struct {
	settingRepo *repositories.SettingRepository
	log         *zap.SugaredLogger
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingRepo *repositories.SettingRepository, log *zap.SugaredLogger) *SettingsService {
	return &SettingsService{settingRepo: settingRepo, log: log}
}

// UpdateSettingInput represents a setting write
type UpdateSettingInput struct {
	Value       string              `json:"value"`
	Description patch.Field[string] `json:"description"`
}

// List returns every setting; staff only
func (s *SettingsService) List(ctx context.Context, actor domain.Actor) ([]*models.Setting, error) {
	if err := domain.Authorize(actor, domain.ResourceSettings, domain.ActionList, domain.Ownership{}); err != nil {
		return nil, err
	}
	settings, err := s.settingRepo.List(ctx)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if settings == nil {
		settings = []*models.Setting{}
	}
	return settings, nil
}

// Update creates or replaces a setting; admin only
func (s *SettingsService) Update(ctx context.Context, actor domain.Actor, key string, input *UpdateSettingInput) (*models.Setting, error) {
	if err := domain.Authorize(actor, domain.ResourceSettings, domain.ActionUpdate, domain.Ownership{}); err != nil {
		return nil, err
	}

	key = strings.TrimSpace(key)
	if !settingKeyPattern.MatchString(key) {
		return nil, domain.FieldError("key", "key must be lower case letters, digits, '_' or '.'")
	}

	setting := &models.Setting{Key: key, Value: input.Value}
	existing, err := s.settingRepo.GetByKey(ctx, key)
	switch {
	case err == nil:
		setting.Description = existing.Description
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, domain.Internal(err)
	}
	if input.Description.Set {
		setting.Description = strings.TrimSpace(input.Description.Value)
	}

	fe := fieldErrors{}
	fe.maxLen("description", setting.Description, 255)
	if err := fe.err(); err != nil {
		return nil, err
	}

	if err := s.settingRepo.Upsert(ctx, setting); err != nil {
		return nil, domain.Internal(err)
	}
	s.log.Infow("setting updated", "key", key, "by", actor.ID)

	saved, err := s.settingRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return saved, nil
}
