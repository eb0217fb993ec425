package config

import (
	"context"
	"errors"
	"fmt"

	"dimos-fixit/internal/adapters/persistence/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedCategory struct {
	category      models.Category
	subcategories []models.Subcategory
}

func days(n int) *int { return &n }

// default municipal categories
var defaultCategories = []seedCategory{
	{
		category: models.Category{Name: "Οδοποιία", NameEn: "Roads", Color: "#795548", Icon: "road", Description: "Λακκούβες, πεζοδρόμια, σήμανση"},
		subcategories: []models.Subcategory{
			{Name: "Λακκούβα", NameEn: "Pothole", EstimatedDays: days(7)},
			{Name: "Πεζοδρόμιο", NameEn: "Sidewalk", EstimatedDays: days(14)},
			{Name: "Οδική σήμανση", NameEn: "Road signs", EstimatedDays: days(5)},
		},
	},
	{
		category: models.Category{Name: "Ηλεκτροφωτισμός", NameEn: "Street lighting", Color: "#FFC107", Icon: "lightbulb"},
		subcategories: []models.Subcategory{
			{Name: "Καμένη λάμπα", NameEn: "Burnt out lamp", EstimatedDays: days(3)},
			{Name: "Κατεστραμμένος στύλος", NameEn: "Damaged pole", EstimatedDays: days(10)},
		},
	},
	{
		category: models.Category{Name: "Καθαριότητα", NameEn: "Cleaning", Color: "#4CAF50", Icon: "trash"},
		subcategories: []models.Subcategory{
			{Name: "Αποκομιδή απορριμμάτων", NameEn: "Waste collection", EstimatedDays: days(2)},
			{Name: "Ογκώδη αντικείμενα", NameEn: "Bulky items", EstimatedDays: days(5)},
		},
	},
	{
		category: models.Category{Name: "Ύδρευση & Αποχέτευση", NameEn: "Water & Sewage", Color: "#2196F3", Icon: "droplet"},
		subcategories: []models.Subcategory{
			{Name: "Διαρροή νερού", NameEn: "Water leak", EstimatedDays: days(1)},
			{Name: "Φρεάτιο", NameEn: "Manhole", EstimatedDays: days(3)},
		},
	},
	{
		category: models.Category{Name: "Πράσινο", NameEn: "Green spaces", Color: "#8BC34A", Icon: "tree"},
		subcategories: []models.Subcategory{
			{Name: "Κλάδεμα", NameEn: "Pruning", EstimatedDays: days(14)},
			{Name: "Πεσμένο δέντρο", NameEn: "Fallen tree", EstimatedDays: days(1)},
		},
	},
}

var defaultSettings = []models.Setting{
	{Key: "municipality.name", Value: "Δήμος", Description: "Όνομα δήμου στις εξαγωγές"},
	{Key: "issues.auto_assign", Value: "false", Description: "Αυτόματη ανάθεση νέων αναφορών"},
	{Key: "notifications.email", Value: "", Description: "Email ειδοποιήσεων για επείγοντα"},
}

// SeedMasterData seeds categories, subcategories and settings that do not exist yet
func SeedMasterData(ctx context.Context, db *gorm.DB, log *zap.SugaredLogger) error {
	db = db.WithContext(ctx)

	if err := seedCategories(db, log); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if err := seedSettings(db, log); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	log.Info("master data seeded")
	return nil
}

func seedCategories(db *gorm.DB, log *zap.SugaredLogger) error {
	for _, sc := range defaultCategories {
		category := sc.category
		category.IsActive = true

		var existing models.Category
		err := db.Where("name = ?", category.Name).First(&existing).Error
		switch {
		case err == nil:
			category = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&category).Error; err != nil {
				return err
			}
			log.Infow("created category", "name", category.Name)
		default:
			return err
		}

		for _, sub := range sc.subcategories {
			var n int64
			if err := db.Model(&models.Subcategory{}).
				Where("category_id = ? AND name = ?", category.ID, sub.Name).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			sub.CategoryID = category.ID
			sub.IsActive = true
			if err := db.Create(&sub).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func seedSettings(db *gorm.DB, log *zap.SugaredLogger) error {
	for _, st := range defaultSettings {
		setting := st
		res := db.Where("setting_key = ?", setting.Key).FirstOrCreate(&setting)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			log.Infow("created setting", "key", setting.Key)
		}
	}
	return nil
}
