package database

import (
	"gorm.io/gorm"

	"taskflow/internal/domain"
)

// AutoMigrate runs schema migration for all domain entities
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Board{},
		&domain.Column{},
		&domain.Task{},
		&domain.BoardMember{},
		&domain.Comment{},
		&domain.Notification{},
	)
}
