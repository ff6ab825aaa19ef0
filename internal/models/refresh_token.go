package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — серверная запись refresh-токена.
//
// Сам токен — подписанный JWT, который хранится только у клиента;
// в БД лежит запись с его jti для ротации и отзыва. Инварианты:
//   - jti уникален (одна запись на токен);
//   - Revoked=true влечёт заполненный RevokedAt;
//   - ExpiresAt > CreatedAt;
//   - отозванный токен никогда не возвращается в активное состояние.
type RefreshToken struct {
	ID     int64
	UserID uuid.UUID
	// JTI — уникальный идентификатор токена, ключ связи между JWT
	// и записью о его отзыве.
	JTI       uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	// DeviceInfo — User-Agent клиента на момент выпуска (до 255 символов).
	DeviceInfo string
	// ClientIP — IP клиента на момент выпуска (IPv4/IPv6).
	ClientIP string
}

// IsExpired сообщает, истёк ли токен к моменту now.
// Истечение — производное сравнение, а не хранимое состояние.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
