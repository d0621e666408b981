// FILE: atlant-crm/models/parent.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Parent - родитель, на которого оформляются платежи.
type Parent struct {
	gorm.Model
	LastName   string    `json:"lastName" gorm:"not null"`
	FirstName  string    `json:"firstName" gorm:"not null"`
	MiddleName string    `json:"middleName"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email" gorm:"index"`
	Comment    string    `json:"comment"`
	Athletes   []Athlete `json:"athletes,omitempty" gorm:"foreignKey:ParentID"`
}

// Athlete - ребёнок-спортсмен, занимающийся в секции.
type Athlete struct {
	gorm.Model
	ParentID  uint       `json:"parentId" gorm:"not null;index"`
	LastName  string     `json:"lastName"`
	FirstName string     `json:"firstName"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Group     string     `json:"group"` // название группы/секции
}
