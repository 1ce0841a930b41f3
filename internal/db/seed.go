package db

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"slotshare-backend/internal/auth"
	"slotshare-backend/internal/model"
)

var seedSlots = []model.Slot{
	{ID: "ppx-1", ServiceName: "Perplexity Max #1", Tier: "Max", Category: "Research", CategoryAccent: "#3b82f6", MonthlyCost: 200, IsActive: true},
	{ID: "ppx-2", ServiceName: "Perplexity Max #2", Tier: "Max", Category: "Research", CategoryAccent: "#3b82f6", MonthlyCost: 200, IsActive: true},
	{ID: "gem-dt", ServiceName: "Gemini Ultra — Deep Think", Tier: "Ultra", Category: "Google AI", CategoryAccent: "#4285f4", MonthlyCost: 250, IsActive: true},
	{ID: "gem-veo", ServiceName: "Veo + Flow", Tier: "Ultra", Category: "Video", CategoryAccent: "#a855f7", MonthlyCost: 250, IsActive: true},
	{ID: "gpt-1", ServiceName: "ChatGPT Pro", Tier: "Pro", Category: "Reasoning", CategoryAccent: "#8b5cf6", MonthlyCost: 200, IsActive: true},
	{ID: "lov-1", ServiceName: "Lovable Team", Tier: "Team", Category: "Code", CategoryAccent: "#f97316", MonthlyCost: 50, IsActive: true},
}

// SeedDemoData creates a default admin user and a starter slot catalog
// when they are missing. Intended for development setups only.
func SeedDemoData(db *gorm.DB) error {
	var adminCount int64
	if err := db.Model(&model.User{}).Where("username = ?", "admin").Count(&adminCount).Error; err != nil {
		return fmt.Errorf("seed: count admin users: %w", err)
	}
	if adminCount == 0 {
		hash, err := auth.HashPassword("admin123")
		if err != nil {
			return fmt.Errorf("seed: hash admin password: %w", err)
		}
		admin := model.User{Name: "Admin", Username: "admin", PasswordHash: hash, IsAdmin: true}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("seed: create admin user: %w", err)
		}
		log.Println("Seeded admin user (username: admin)")
	}

	for _, s := range seedSlots {
		var count int64
		if err := db.Model(&model.Slot{}).Where("id = ?", s.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("seed: count slot %q: %w", s.ID, err)
		}
		if count == 0 {
			if err := db.Create(&s).Error; err != nil {
				return fmt.Errorf("seed: create slot %q: %w", s.ID, err)
			}
		}
	}
	return nil
}
