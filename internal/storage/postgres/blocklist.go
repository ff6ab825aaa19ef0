package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hometasks/auth-service/internal/models"
	"github.com/hometasks/auth-service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// blockTokenTx вставляет запись blocklist внутри уже открытой транзакции.
// Повторная вставка того же jti — no-op (ON CONFLICT DO NOTHING).
func blockTokenTx(ctx context.Context, tx pgx.Tx, token *models.BlockedToken) error {
	const query = `
		INSERT INTO token_blocklist(jti, token_type, user_id, expires_at, revoked_at, reason)
		VALUES ($1, $2, $3, $4, now(), NULLIF($5, ''))
		ON CONFLICT (jti) DO NOTHING
	`

	_, err := tx.Exec(ctx, query,
		token.JTI,
		token.TokenType,
		token.UserID,
		token.ExpiresAt,
		token.Reason,
	)

	return err
}

// BlockToken добавляет jti в blocklist. Идемпотентен: повторный вызов
// для того же jti возвращает существующую запись без изменений.
func (s *Storage) BlockToken(ctx context.Context, token *models.BlockedToken) (*models.BlockedToken, error) {
	const op = "storage.postgres.BlockToken"

	const ins = `
		INSERT INTO token_blocklist(jti, token_type, user_id, expires_at, revoked_at, reason)
		VALUES ($1, $2, $3, $4, now(), NULLIF($5, ''))
		ON CONFLICT (jti) DO NOTHING
		RETURNING id, jti, token_type, user_id, expires_at, revoked_at, COALESCE(reason, '')
	`

	var out models.BlockedToken
	err := s.db.QueryRow(ctx, ins,
		token.JTI,
		token.TokenType,
		token.UserID,
		token.ExpiresAt,
		token.Reason,
	).Scan(
		&out.ID,
		&out.JTI,
		&out.TokenType,
		&out.UserID,
		&out.ExpiresAt,
		&out.RevokedAt,
		&out.Reason,
	)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Конфликт по jti: запись уже есть, возвращаем её.
	const sel = `
		SELECT id, jti, token_type, user_id, expires_at, revoked_at, COALESCE(reason, '')
		FROM token_blocklist
		WHERE jti = $1
	`

	err = s.db.QueryRow(ctx, sel, token.JTI).Scan(
		&out.ID,
		&out.JTI,
		&out.TokenType,
		&out.UserID,
		&out.ExpiresAt,
		&out.RevokedAt,
		&out.Reason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// IsBlocked сообщает, заблокирован ли jti на момент now. Зеркальный exp
// перепроверяется при чтении: задержка фоновой очистки не может дать
// ложноположительный отказ по давно истёкшей записи.
func (s *Storage) IsBlocked(ctx context.Context, jti uuid.UUID, now time.Time) (bool, error) {
	const op = "storage.postgres.IsBlocked"

	const query = `
		SELECT EXISTS(
			SELECT 1 FROM token_blocklist
			WHERE jti = $1 AND expires_at > $2
		)
	`

	var blocked bool
	if err := s.db.QueryRow(ctx, query, jti, now).Scan(&blocked); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return blocked, nil
}

// DeleteExpiredBlocks удаляет записи blocklist с прошедшим зеркальным exp.
// Чисто гигиена хранилища: на корректность не влияет, просроченные
// токены отвергаются собственной проверкой exp.
func (s *Storage) DeleteExpiredBlocks(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredBlocks"

	const query = `
		DELETE FROM token_blocklist
		WHERE expires_at <= $1
	`

	_, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
