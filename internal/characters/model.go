// Package characters holds the Character entity, its gorm-backed store and
// the service the HTTP handlers call.
package characters

import "errors"

// ErrNotFound is returned when a character id does not exist.
var ErrNotFound = errors.New("character not found")

// Character is a playable class. Table and column names match the schema the
// original roster database was created with; JSON keys are PascalCase.
type Character struct {
	ID     uint   `gorm:"column:Id;primaryKey;autoIncrement" json:"Id"`
	Nume   string `gorm:"column:Nume;not null" json:"Nume"`
	Poza   string `gorm:"column:Poza" json:"Poza"`
	Health int    `gorm:"column:Health" json:"Health"`
	Armor  int    `gorm:"column:Armor" json:"Armor"`
	Mana   int    `gorm:"column:Mana" json:"Mana"`
}

// TableName implements gorm's tabler interface.
func (Character) TableName() string {
	return "Characters"
}

// SeedCharacters returns a fresh copy of the five rows written by a reset.
func SeedCharacters() []Character {
	return []Character{
		{Nume: "Mage", Poza: "/images/mage.jpg", Health: 70, Armor: 30, Mana: 100},
		{Nume: "Archer", Poza: "/images/archer.png", Health: 80, Armor: 40, Mana: 60},
		{Nume: "Rogue", Poza: "/images/rogue.png", Health: 75, Armor: 35, Mana: 50},
		{Nume: "Cleric", Poza: "/images/cleric.png", Health: 85, Armor: 50, Mana: 90},
		{Nume: "Paladin", Poza: "/images/paladin.jpg", Health: 95, Armor: 80, Mana: 70},
	}
}
