package models

import (
	"strings"

	"gorm.io/gorm"
)

// MenuItem is a dish that can be ordered
type MenuItem struct {
	gorm.Model

	Name        string `json:"name" yaml:"name" gorm:"not null"`
	Description string `json:"description" yaml:"description"`
	Price       int64  `json:"price" yaml:"price"`
	Category    string `json:"category" yaml:"category"`

	// Flags
	Spicy      bool `json:"spicy" yaml:"spicy"`
	Vegetarian bool `json:"vegetarian" yaml:"vegetarian"`
	Popular    bool `json:"popular" yaml:"popular"`

	Available bool `json:"available" yaml:"available"`
}

// NameKey is the key used to deduplicate menu items across sources
func (m MenuItem) NameKey() string {
	return strings.ToLower(strings.TrimSpace(m.Name))
}
