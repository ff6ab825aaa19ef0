package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/hometasks/auth-service/internal/models"
	"github.com/hometasks/auth-service/internal/pkg/log"
	"github.com/hometasks/auth-service/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenClaims — общий набор клеймов access- и refresh-токенов.
// Subject — ID пользователя, ID (jti) — ключ связи с серверными
// записями отзыва, TokenType различает назначение токена.
type tokenClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// generateToken выпускает подписанный JWT заданного типа со свежим jti.
// Не хранит состояния; два вызова никогда не дают одинаковый jti
// (коллизия UUIDv4 пренебрежимо вероятна).
func (s *Service) generateToken(userID uuid.UUID, tokenType string, ttl time.Duration, now time.Time) (string, uuid.UUID, error) {
	const op = "service.token.generateToken"

	jti := uuid.New()
	claims := tokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   userID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return signed, jti, nil
}

// parseToken разбирает и проверяет подпись/клеймы токена.
// Ошибки jwt-пакета пробрасываются как есть; маппинг на доменные ошибки
// делают вызывающие стороны (им нужно различать expired и wrong-type).
func (s *Service) parseToken(tokenStr string) (*tokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
	)

	if err != nil {
		// Подпись проверяется до валидации клеймов: если ошибка — только
		// истечение, клеймам можно верить (нужно для wrong-type и logout).
		if token != nil && errors.Is(err, jwt.ErrTokenExpired) {
			if claims, ok := token.Claims.(*tokenClaims); ok {
				return claims, jwt.ErrTokenExpired
			}
		}

		return nil, err
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenMalformed
	}

	return claims, nil
}

// decodeLenient проверяет подпись токена, игнорируя истечение и прочие
// временные клеймы. Используется в logout: предъявленный просроченный
// access-токен всё равно блокируется по jti.
func (s *Service) decodeLenient(tokenStr string) (*tokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok {
		return nil, jwt.ErrTokenMalformed
	}

	return claims, nil
}

// validateAccessToken проверяет access-токен и возвращает активного
// пользователя. Порядок проверок — от дешёвых к дорогим, чтобы мусорный
// вход не доходил до БД: подпись → тип → истечение → blocklist по jti →
// разрешение subject в активную учётную запись. Побочных эффектов нет.
func (s *Service) validateAccessToken(ctx context.Context, tokenStr string) (*models.User, error) {
	const op = "service.token.validateAccessToken"

	lg := log.From(ctx)

	claims, err := s.parseToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims != nil {
			if claims.TokenType != models.TokenTypeAccess {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.TokenType != models.TokenTypeAccess {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	blocked, err := s.storage.IsBlocked(ctx, jti, time.Now().UTC())
	if err != nil {
		// Недоступный durable-стор при проверке отзыва: по умолчанию
		// fail-closed — отзыв сильнее доступности.
		lg.Error("blocklist_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		if !s.cfg.BlocklistFailOpen {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
	} else if blocked {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	user, err := s.storage.UserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrUserInactive)
	}

	return user, nil
}

// validateRefreshToken проверяет refresh-токен: подпись/тип/истечение,
// затем серверную запись, которая обязана существовать и быть
// неотозванной. Отсутствующая запись неотличима от отозванной.
func (s *Service) validateRefreshToken(ctx context.Context, tokenStr string) (*models.RefreshToken, error) {
	const op = "service.token.validateRefreshToken"

	lg := log.From(ctx)

	claims, err := s.parseToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims != nil {
			if claims.TokenType != models.TokenTypeRefresh {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.TokenType != models.TokenTypeRefresh {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	record, err := s.storage.RefreshTokenByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_lookup_not_found",
				slog.String("op", op),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		lg.Error("refresh_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if record.Revoked {
		lg.Warn("refresh_revoked",
			slog.String("op", op),
			slog.String("user_id", record.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	if record.IsExpired(time.Now().UTC()) {
		lg.Warn("refresh_expired",
			slog.String("op", op),
			slog.String("user_id", record.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	return record, nil
}

// maxDeviceInfoLen ограничивает сохраняемый User-Agent.
const maxDeviceInfoLen = 255

// issueTokenPair выпускает новую пару access+refresh токенов.
// Запись refresh-токена сохраняется до возврата пары; редкая коллизия
// jti при сохранении приводит к повторной генерации.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User, meta models.ClientMeta) (*models.TokenPair, error) {
	const (
		op          = "service.token.issueTokenPair"
		maxAttempts = 5
	)

	lg := log.From(ctx)

	now := time.Now().UTC()

	accessToken, _, err := s.generateToken(user.ID, models.TokenTypeAccess, s.cfg.AccessTokenTTL, now)
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Усечение по границе руны: срез по байтам мог бы разрезать
	// многобайтовый символ и отдать в БД невалидный UTF-8.
	deviceInfo := meta.DeviceInfo
	if len(deviceInfo) > maxDeviceInfoLen {
		cut := maxDeviceInfoLen
		for cut > 0 && !utf8.RuneStart(deviceInfo[cut]) {
			cut--
		}
		deviceInfo = deviceInfo[:cut]
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		refreshToken, jti, err := s.generateToken(user.ID, models.TokenTypeRefresh, s.cfg.RefreshTokenTTL, now)
		if err != nil {
			lg.Error("refresh_token_sign_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		record := &models.RefreshToken{
			UserID:     user.ID,
			JTI:        jti,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.cfg.RefreshTokenTTL),
			Revoked:    false,
			DeviceInfo: deviceInfo,
			ClientIP:   meta.IP,
		}

		if err := s.storage.SaveRefreshToken(ctx, record); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия jti — пробуем сгенерировать заново.
				continue
			}

			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return &models.TokenPair{
			AccessToken:     accessToken,
			RefreshToken:    refreshToken,
			AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
		}, nil
	}

	lg.Error("refresh_collision_exceeded",
		slog.String("op", op),
	)

	return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}
