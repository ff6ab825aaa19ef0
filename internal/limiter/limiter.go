// limiter реализует эфемерные счётчики поверх Redis: общий троттлинг
// запросов по клиенту и защиту логина от перебора паролей (guard.go).
//
// Политика отказа у обоих компонентов — fail-open: недоступный стор
// счётчиков пропускает запрос (доступность важнее этого слоя защиты),
// деградация логируется. Рестарт стора лишь обнуляет счётчики, то есть
// делает систему более разрешительной — ложная блокировка невозможна.
//
// Счётчики мутируются атомарным INCR с выставлением TTL; схемы
// «прочитал-сравнил-записал» здесь нет.
package limiter

import (
	"context"
	"log/slog"
	"time"

	logctx "github.com/hometasks/auth-service/internal/pkg/log"

	"github.com/redis/go-redis/v9"
)

const (
	minutePrefix = "rate_limit:minute:"
	hourPrefix   = "rate_limit:hour:"
)

// NewClient создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// с fail-fast проверкой соединения на старте.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}

// Verdict — решение лимитера по запросу.
type Verdict struct {
	Allowed bool
	// RetryAfter — рекомендация клиенту, когда повторить;
	// заполняется только при отказе.
	RetryAfter time.Duration
}

// Limiter — общий per-client троттлинг с двумя окнами: N в минуту и
// M в час. Запрос отклоняется, если превышено любое из окон.
type Limiter struct {
	rdb       *redis.Client
	perMinute int64
	perHour   int64
	timeout   time.Duration
}

// NewLimiter создаёт лимитер поверх готового клиента Redis.
// timeout ограничивает каждое обращение к стору счётчиков.
func NewLimiter(rdb *redis.Client, perMinute, perHour int64, timeout time.Duration) *Limiter {
	return &Limiter{
		rdb:       rdb,
		perMinute: perMinute,
		perHour:   perHour,
		timeout:   timeout,
	}
}

// Allow учитывает запрос клиента clientID и возвращает решение.
// Оба окна инкрементируются атомарно одним пайплайном; TTL ключа
// выставляется только при первом инкременте (ExpireNX), так что окно
// не «скользит» от повторных запросов.
func (l *Limiter) Allow(ctx context.Context, clientID string) Verdict {
	const op = "limiter.Allow"

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	minuteKey := minutePrefix + clientID
	hourKey := hourPrefix + clientID

	pipe := l.rdb.Pipeline()
	minuteCmd := pipe.Incr(ctx, minuteKey)
	pipe.ExpireNX(ctx, minuteKey, time.Minute)
	hourCmd := pipe.Incr(ctx, hourKey)
	pipe.ExpireNX(ctx, hourKey, time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		logctx.From(ctx).Warn("rate_limiter_degraded",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return Verdict{Allowed: true}
	}

	if minuteCmd.Val() > l.perMinute {
		return Verdict{Allowed: false, RetryAfter: l.retryAfter(ctx, minuteKey, time.Minute)}
	}

	if hourCmd.Val() > l.perHour {
		return Verdict{Allowed: false, RetryAfter: l.retryAfter(ctx, hourKey, time.Hour)}
	}

	return Verdict{Allowed: true}
}

// retryAfter — остаток TTL превышенного окна; при ошибке чтения
// возвращает полную ширину окна как верхнюю оценку.
func (l *Limiter) retryAfter(ctx context.Context, key string, window time.Duration) time.Duration {
	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return window
	}

	return ttl
}
