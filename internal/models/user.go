package models

import (
	"time"

	"github.com/google/uuid"
)

// User — модель пользователя в системе.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	// Active — флаг активности учётной записи; для деактивированного
	// пользователя валидация access-токена завершается отказом.
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
