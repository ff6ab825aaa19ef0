package limiter

import (
	"context"
	"log/slog"
	"time"

	logctx "github.com/hometasks/auth-service/internal/pkg/log"

	"github.com/redis/go-redis/v9"
)

const bruteForcePrefix = "rate_limit:brute_force:"

// Guard — защита логина от перебора паролей: счётчик неудачных попыток
// на идентификатор с TTL = окну блокировки.
//
// Идентификатор — пара (ip клиента, введённый email): блокировка одному
// актору по одному аккаунту не задевает ни другие IP этого аккаунта,
// ни соседей за NAT. Остаточный риск: атакующий, ротирующий IP против
// одного аккаунта, получает max попыток с каждого адреса —
// распределённый перебор этим слоем не закрывается.
type Guard struct {
	rdb         *redis.Client
	maxAttempts int64
	window      time.Duration
	timeout     time.Duration
}

// NewGuard создаёт guard поверх готового клиента Redis.
func NewGuard(rdb *redis.Client, maxAttempts int64, window, timeout time.Duration) *Guard {
	return &Guard{
		rdb:         rdb,
		maxAttempts: maxAttempts,
		window:      window,
		timeout:     timeout,
	}
}

// LoginIdentifier собирает ключ блокировки из IP клиента и введённого email.
func LoginIdentifier(clientIP, email string) string {
	return clientIP + ":" + email
}

func (g *Guard) key(identifier string) string {
	return bruteForcePrefix + identifier
}

// IsLocked сообщает, заблокирован ли идентификатор, и оставшееся время
// блокировки. Читает счётчик без инкремента: сама проверка попыткой
// не является.
func (g *Guard) IsLocked(ctx context.Context, identifier string) (bool, time.Duration) {
	const op = "limiter.guard.IsLocked"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	count, err := g.rdb.Get(ctx, g.key(identifier)).Int64()
	if err != nil {
		if err != redis.Nil {
			logctx.From(ctx).Warn("brute_force_guard_degraded",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
		return false, 0
	}

	if count < g.maxAttempts {
		return false, 0
	}

	ttl, err := g.rdb.TTL(ctx, g.key(identifier)).Result()
	if err != nil || ttl <= 0 {
		return true, g.window
	}

	return true, ttl
}

// RecordFailure учитывает неудачную попытку логина. Возвращает остаток
// попыток до блокировки и признак достижения порога; остаток считается
// из значения, которое вернул INCR, без повторного чтения счётчика.
// TTL ключа обновляется при каждой неудаче: окно блокировки
// отсчитывается от последней попытки. При недоступном сторе отвечает
// максимумом попыток без блокировки (fail-open).
func (g *Guard) RecordFailure(ctx context.Context, identifier string) (int64, bool) {
	const op = "limiter.guard.RecordFailure"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	key := g.key(identifier)

	pipe := g.rdb.TxPipeline()
	countCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, g.window)

	if _, err := pipe.Exec(ctx); err != nil {
		logctx.From(ctx).Warn("brute_force_guard_degraded",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return g.maxAttempts, false
	}

	count := countCmd.Val()
	locked := count >= g.maxAttempts

	if locked {
		logctx.From(ctx).Warn("brute_force_lockout",
			slog.String("op", op),
			slog.Int64("attempts", count),
		)
	}

	remaining := g.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, locked
}

// Reset удаляет счётчик неудач; вызывается при успешном логине.
func (g *Guard) Reset(ctx context.Context, identifier string) {
	const op = "limiter.guard.Reset"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.rdb.Del(ctx, g.key(identifier)).Err(); err != nil {
		logctx.From(ctx).Warn("brute_force_guard_degraded",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}
}

// RemainingAttempts — сколько попыток осталось до блокировки.
// При недоступном сторе отвечает максимумом (fail-open).
func (g *Guard) RemainingAttempts(ctx context.Context, identifier string) int64 {
	const op = "limiter.guard.RemainingAttempts"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	count, err := g.rdb.Get(ctx, g.key(identifier)).Int64()
	if err != nil {
		if err != redis.Nil {
			logctx.From(ctx).Warn("brute_force_guard_degraded",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
		return g.maxAttempts
	}

	remaining := g.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining
}

// LockoutTTL — оставшееся время жизни счётчика; ok=false, если
// счётчика нет или стор недоступен.
func (g *Guard) LockoutTTL(ctx context.Context, identifier string) (time.Duration, bool) {
	const op = "limiter.guard.LockoutTTL"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ttl, err := g.rdb.TTL(ctx, g.key(identifier)).Result()
	if err != nil {
		logctx.From(ctx).Warn("brute_force_guard_degraded",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return 0, false
	}

	if ttl <= 0 {
		return 0, false
	}

	return ttl, true
}
