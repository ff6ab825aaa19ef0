package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы токенов, попадающих в blocklist.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// BlockedToken — запись реестра отзыва (blocklist).
//
// Наличие записи с ExpiresAt в будущем — единственный сигнал отказа;
// запись с прошедшим ExpiresAt логически инертна ещё до того, как её
// удалит фоновая очистка (просроченный токен и так не пройдёт
// собственную проверку exp).
type BlockedToken struct {
	ID        int64
	JTI       uuid.UUID
	TokenType string
	// UserID — опционально, для очистки и аудита.
	UserID *uuid.UUID
	// ExpiresAt — зеркало естественного exp заблокированного токена.
	ExpiresAt time.Time
	RevokedAt time.Time
	// Reason — опциональная причина блокировки.
	Reason string
}
