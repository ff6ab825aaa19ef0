package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hometasks/auth-service/internal/models"
	"github.com/hometasks/auth-service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SaveRefreshToken сохраняет новую запись refresh-токена.
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	query := `
		INSERT INTO refresh_tokens(user_id, jti, expires_at, created_at, revoked, device_info, client_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		token.UserID,
		token.JTI,
		token.ExpiresAt,
		token.CreatedAt,
		token.Revoked,
		token.DeviceInfo,
		token.ClientIP,
	).Scan(&token.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshTokenByJTI находит запись refresh-токена по jti.
func (s *Storage) RefreshTokenByJTI(ctx context.Context, jti uuid.UUID) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByJTI"

	query := `
		SELECT id, user_id, jti, expires_at, created_at, revoked, revoked_at, device_info, client_ip
		FROM refresh_tokens
		WHERE jti = $1
	`

	var token models.RefreshToken
	err := s.db.QueryRow(ctx, query, jti).Scan(
		&token.ID,
		&token.UserID,
		&token.JTI,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.Revoked,
		&token.RevokedAt,
		&token.DeviceInfo,
		&token.ClientIP,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &token, nil
}

// RevokeRefreshToken отзывает refresh-токен и зеркалирует его jti в
// blocklist одной транзакцией.
//
// Порядок важен для ротации: вызывающая сторона выпускает новый токен
// только после успешного возврата отсюда, поэтому окна, в котором оба
// токена валидны, не существует. Допустимый сбойный исход — «старый
// отозван, новый не выпущен» (пользователь логинится заново).
//
// Возвращает:
//
//	(true, nil)  — токен был активен и отозван сейчас;
//	(false, nil) — токен существует, но уже был отозван;
//	(false, ErrNotFound) — запись не найдена.
func (s *Storage) RevokeRefreshToken(ctx context.Context, jti uuid.UUID, reason string) (bool, error) {
	const op = "storage.postgres.RevokeRefreshToken"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upd = `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = now()
		WHERE jti = $1 AND revoked = FALSE
		RETURNING user_id, expires_at
	`

	var (
		userID    uuid.UUID
		expiresAt time.Time
	)
	err = tx.QueryRow(ctx, upd, jti).Scan(&userID, &expiresAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		// Условный UPDATE ничего не нашёл: либо записи нет, либо токен
		// уже отозван. Различаем отдельным SELECT.
		const sel = `
			SELECT revoked
			FROM refresh_tokens
			WHERE jti = $1
		`

		var revoked bool
		if err := tx.QueryRow(ctx, sel, jti).Scan(&revoked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
			}

			return false, fmt.Errorf("%s: %w", op, err)
		}

		return false, nil
	}

	if err := blockTokenTx(ctx, tx, &models.BlockedToken{
		JTI:       jti,
		TokenType: models.TokenTypeRefresh,
		UserID:    &userID,
		ExpiresAt: expiresAt,
		Reason:    reason,
	}); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// RevokeAllByUser отзывает все активные refresh-токены пользователя и
// зеркалирует каждый jti в blocklist одной транзакцией — сбой посреди
// массового отзыва не оставляет частичного результата.
func (s *Storage) RevokeAllByUser(ctx context.Context, userID uuid.UUID, reason string) (int64, error) {
	const op = "storage.postgres.RevokeAllByUser"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upd = `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = now()
		WHERE user_id = $1 AND revoked = FALSE
		RETURNING jti, expires_at
	`

	rows, err := tx.Query(ctx, upd, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	type revokedRow struct {
		jti       uuid.UUID
		expiresAt time.Time
	}

	var revoked []revokedRow
	for rows.Next() {
		var r revokedRow
		if err := rows.Scan(&r.jti, &r.expiresAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		revoked = append(revoked, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for _, r := range revoked {
		if err := blockTokenTx(ctx, tx, &models.BlockedToken{
			JTI:       r.jti,
			TokenType: models.TokenTypeRefresh,
			UserID:    &userID,
			ExpiresAt: r.expiresAt,
			Reason:    reason,
		}); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return int64(len(revoked)), nil
}

// DeleteExpiredTokens удаляет записи refresh-токенов, просроченные до
// порога cutoff. Передавая cutoff = now - grace, вызывающая сторона
// оставляет отозванным записям льготный период для расследований.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, cutoff time.Time) error {
	const op = "storage.postgres.DeleteExpiredTokens"

	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at <= $1
	`

	_, err := s.db.Exec(ctx, query, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
