package models

import "gorm.io/gorm"

// User - сотрудник спортивной школы (администратор, тренер, бухгалтер).
type User struct {
	gorm.Model
	Login        string `json:"login" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	FullName     string `json:"fullName"`
	Roles        []Role `json:"roles" gorm:"many2many:user_roles;"`
}

// Role - роль пользователя с набором прав.
type Role struct {
	gorm.Model
	Name        string       `json:"name" gorm:"uniqueIndex;not null"`
	Permissions []Permission `json:"permissions" gorm:"many2many:role_permissions;"`
}

// Permission - отдельное право доступа (например, "payments_manual_mark").
type Permission struct {
	gorm.Model
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}
