package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleGuest = "guest"
	RoleHost  = "host"
	RoleAdmin = "admin"
)

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type User struct {
	gorm.Model
	Email        string  `gorm:"uniqueIndex;not null"`
	Password     string  `gorm:"not null"`
	Name         string  `gorm:"not null"`
	Role         string  `gorm:"default:'guest';index"`
	WalletID     *uint   `gorm:"unique;default:null"`
	Wallet       *Wallet `gorm:"foreignKey:WalletID"`
	Status       string  `gorm:"default:'active'"`
	LastLoginAt  time.Time
	TokenVersion int `gorm:"default:1"`
}
