// service содержит бизнес-логику auth-сервиса: регистрацию и
// аутентификацию пользователей, выпуск/проверку/ротацию токенов,
// отзыв сессий и защиту логина от перебора паролей.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданные хранилище (storage.Storage) и guard потокобезопасны.
//   - Сбои сторов обрабатываются асимметрично: недоступный стор счётчиков
//     пропускает попытку (fail-open, см. пакет limiter), недоступная БД при
//     проверке blocklist по умолчанию отвергает токен (fail-closed,
//     переключатель auth.blocklist_fail_open).
//   - Ошибки возвращаются и далее маппятся транспортом на HTTP-статусы
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hometasks/auth-service/internal/config"
	"github.com/hometasks/auth-service/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Транспорт: HTTP 401 (с числом оставшихся попыток — осознанное исключение
	// из правила «не раскрывать причину отказа»).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLockedOut — идентификатор (ip, email) заблокирован после серии
	// неудачных попыток. Транспорт: HTTP 429 с Retry-After.
	ErrLockedOut = errors.New("too many failed attempts")

	// ErrInvalidToken — токен некорректен по формату/подписи/типу
	// или отсутствует в хранилище. Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/ротация) и недействителен
	// независимо от срока. Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrUserInactive — учётная запись деактивирована. Транспорт: HTTP 401.
	ErrUserInactive = errors.New("user inactive")

	// ErrEmailTaken — e-mail уже занят другим пользователем. Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности.
	// Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrRefreshTokenCollision — исчерпаны попытки сохранить запись
	// refresh-токена с уникальным jti. Транспорт: HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")
)

// LockoutError оборачивает ErrLockedOut и несёт оставшееся время блокировки.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry after %s", e.RetryAfter)
}

func (e *LockoutError) Unwrap() error { return ErrLockedOut }

// CredentialsError оборачивает ErrInvalidCredentials и несёт число
// оставшихся попыток до блокировки.
type CredentialsError struct {
	Remaining int64
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempts remaining", e.Remaining)
}

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }

// BruteForceGuard — контракт защиты логина от перебора (см. limiter.Guard).
type BruteForceGuard interface {
	// IsLocked сообщает, заблокирован ли идентификатор, и остаток блокировки.
	IsLocked(ctx context.Context, identifier string) (bool, time.Duration)
	// RecordFailure учитывает неудачную попытку; возвращает остаток
	// попыток до блокировки и признак достижения порога.
	RecordFailure(ctx context.Context, identifier string) (int64, bool)
	// Reset сбрасывает счётчик при успешном логине.
	Reset(ctx context.Context, identifier string)
}

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	storage storage.Storage
	guard   BruteForceGuard
	cfg     config.AuthConfig
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, guard BruteForceGuard, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		guard:   guard,
		cfg:     cfg,
	}
}
