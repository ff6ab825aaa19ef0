package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hometasks/auth-service/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/jti).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdateUser обновляет email, хэш пароля и флаг активности.
	UpdateUser(ctx context.Context, user *models.User) error
}

// RefreshTokenStorage выполняет операции над записями refresh-токенов.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новую запись refresh-токена.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByJTI находит запись по jti.
	RefreshTokenByJTI(ctx context.Context, jti uuid.UUID) (*models.RefreshToken, error)
	// RevokeRefreshToken отзывает токен и зеркалирует jti в blocklist
	// одной транзакцией. Возвращает:
	//   (true, nil)  — токен был активен и отозван сейчас;
	//   (false, nil) — токен существует, но уже был отозван;
	//   (false, ErrNotFound) — запись не найдена.
	RevokeRefreshToken(ctx context.Context, jti uuid.UUID, reason string) (bool, error)
	// RevokeAllByUser отзывает все активные токены пользователя и
	// зеркалирует их в blocklist одной транзакцией; возвращает число
	// отозванных записей.
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, reason string) (int64, error)
	// DeleteExpiredTokens удаляет записи, просроченные до порога cutoff.
	DeleteExpiredTokens(ctx context.Context, cutoff time.Time) error
}

// BlocklistStorage — реестр отозванных jti.
type BlocklistStorage interface {
	// BlockToken добавляет jti в blocklist; идемпотентен — повторный
	// вызов для того же jti возвращает существующую запись.
	BlockToken(ctx context.Context, token *models.BlockedToken) (*models.BlockedToken, error)
	// IsBlocked сообщает, заблокирован ли jti на момент now.
	// Записи с прошедшим зеркальным exp не считаются блокирующими.
	IsBlocked(ctx context.Context, jti uuid.UUID, now time.Time) (bool, error)
	// DeleteExpiredBlocks удаляет записи с прошедшим зеркальным exp.
	DeleteExpiredBlocks(ctx context.Context, now time.Time) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	BlocklistStorage
	Close()
}
