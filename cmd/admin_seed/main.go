package main

import (
	"context"
	"log"
	"os"

	"casita/internal/config"
	"casita/internal/models"
	"casita/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminName := config.GetEnv("ADMIN_NAME", "Platform Admin")

	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer func() {
		if repositories.DB != nil {
			if sqlDB, err := repositories.DB.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Printf("Failed to close PostgreSQL connection: %v", err)
				}
			}
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("Failed to close Redis connection: %v", err)
			}
		}
	}()

	seedAdmin(adminEmail, adminPassword, adminName)
	seedPayoutRecipient()
}

func seedAdmin(email, password, name string) {
	var existing models.User
	if err := repositories.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Println("Admin user already exists")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	admin := models.User{
		Email:        email,
		Password:     string(hashedPassword),
		Name:         name,
		Role:         models.RoleAdmin,
		TokenVersion: 1,
	}

	if err := repositories.DB.Create(&admin).Error; err != nil {
		log.Fatal("Failed to create admin user:", err)
	}

	log.Println("Admin account created successfully")
}

// seedPayoutRecipient stores the platform payout destination when
// PAYOUT_RECIPIENT_EMAIL is set. The auto-payout reconciler defers every
// eligible earning until this setting exists.
func seedPayoutRecipient() {
	email := os.Getenv("PAYOUT_RECIPIENT_EMAIL")
	if email == "" {
		return
	}

	settings := repositories.NewSettingsRepository(repositories.DB)
	if err := settings.Set(context.Background(), models.SettingPayoutRecipientEmail, email); err != nil {
		log.Fatal("Failed to store payout recipient:", err)
	}

	log.Println("Payout recipient configured:", email)
}
