package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/hometasks/auth-service/internal/limiter"
	"github.com/hometasks/auth-service/internal/models"
	"github.com/hometasks/auth-service/internal/pkg/log"
	"github.com/hometasks/auth-service/internal/pkg/redact"
	"github.com/hometasks/auth-service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Register регистрирует нового пользователя и сразу выдаёт пару токенов.
func (s *Service) Register(ctx context.Context, email, password string, meta models.ClientMeta) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.Register"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(password); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		PasswordHash: hashedPassword,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issueTokenPair(ctx, user, meta)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user.ID, nil
}

// Login выполняет вход по email+пароль с защитой от перебора.
//
// Порядок: проверка блокировки пары (ip, email) — до проверки
// учётных данных, так что заблокированный идентификатор получает отказ
// даже с верным паролем; неудачная проверка учётных данных увеличивает
// счётчик; успех сбрасывает его.
func (s *Service) Login(ctx context.Context, email, password string, meta models.ClientMeta) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	identifier := limiter.LoginIdentifier(meta.IP, normEmail)

	if locked, retryAfter := s.guard.IsLocked(ctx, identifier); locked {
		lg.Warn("login_locked_out",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
			slog.String("client_ip", meta.IP),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, &LockoutError{RetryAfter: retryAfter})
	}

	if len(password) == 0 {
		return nil, uuid.Nil, s.loginFailure(ctx, op, identifier, normEmail, meta.IP)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Несуществующий аккаунт учитывается так же, как неверный
			// пароль: ответ не даёт оракула существования email.
			return nil, uuid.Nil, s.loginFailure(ctx, op, identifier, normEmail, meta.IP)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Active || !checkPassword(user.PasswordHash, password) {
		return nil, uuid.Nil, s.loginFailure(ctx, op, identifier, normEmail, meta.IP)
	}

	s.guard.Reset(ctx, identifier)

	pair, err := s.issueTokenPair(ctx, user, meta)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_ok",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return pair, user.ID, nil
}

// loginFailure учитывает неудачную попытку и собирает ошибку с числом
// оставшихся попыток. Остаток берётся из ответа RecordFailure: повторное
// чтение счётчика дало бы лишний запрос и гонку с параллельными
// неудачами.
func (s *Service) loginFailure(ctx context.Context, op, identifier, email, clientIP string) error {
	remaining, _ := s.guard.RecordFailure(ctx, identifier)

	log.From(ctx).Warn("login_failed",
		slog.String("op", op),
		slog.String("email", redact.Email(email)),
		slog.String("client_ip", clientIP),
		slog.Int64("remaining_attempts", remaining),
	)

	return fmt.Errorf("%s: %w", op, &CredentialsError{Remaining: remaining})
}

// Refresh обновляет пару токенов по refresh-токену (ротация).
//
// Старый токен отзывается и зеркалируется в blocklist до выпуска
// нового — окна, в котором валидны оба, не существует. Повторное
// предъявление уже ротированного токена отклоняется как revoked;
// последующие звенья цепочки ротаций при этом не трогаются.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta models.ClientMeta) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.Refresh"

	record, err := s.validateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Active {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserInactive)
	}

	revokedNow, err := s.storage.RevokeRefreshToken(ctx, record.JTI, "token rotation")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !revokedNow {
		// Гонка двух ротаций одного токена: отзыв подтвердил другой
		// вызов, этот проигрывает.
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	pair, err := s.issueTokenPair(ctx, user, meta)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user.ID, nil
}

// Authenticate проверяет access-токен и возвращает активного пользователя.
// Единственная способность, которую этот сервис отдаёт остальным
// эндпоинтам: bearer-токен → личность, либо отказ.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "service.auth.Authenticate"

	user, err := s.validateAccessToken(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// Logout завершает сессию: блокирует предъявленный access-токен по jti
// и отзывает refresh-токен. Best-effort и идемпотентен: любой из
// аргументов может быть пустым или уже недействительным — вызов всё
// равно завершается успешно.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	const op = "service.auth.Logout"

	lg := log.From(ctx)

	if accessToken != "" {
		// Подпись проверяем, истечение — нет: просроченный, но
		// запомненный клиентом токен тоже блокируется.
		claims, err := s.decodeLenient(accessToken)
		if err == nil && claims.TokenType == models.TokenTypeAccess {
			s.blockAccessClaims(ctx, claims, "user logout")
		}
	}

	if refreshToken != "" {
		record, err := s.validateRefreshToken(ctx, refreshToken)
		if err == nil {
			if _, err := s.storage.RevokeRefreshToken(ctx, record.JTI, "user logout"); err != nil {
				lg.Error("logout_revoke_failed",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	return nil
}

// LogoutAll отзывает все refresh-токены пользователя и блокирует
// предъявленный access-токен; возвращает число отозванных refresh-токенов.
//
// Прочие ещё живые access-токены других устройств продолжают работать
// до собственного короткого истечения: access-токены stateless, явно
// блокируется только предъявленный. Ограниченность этого окна — причина
// короткого TTL access-токена.
func (s *Service) LogoutAll(ctx context.Context, user *models.User, accessToken string) (int64, error) {
	const op = "service.auth.LogoutAll"

	count, err := s.storage.RevokeAllByUser(ctx, user.ID, "user logout all devices")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if accessToken != "" {
		claims, derr := s.decodeLenient(accessToken)
		if derr == nil && claims.TokenType == models.TokenTypeAccess {
			s.blockAccessClaims(ctx, claims, "user logout all devices")
		}
	}

	log.From(ctx).Info("logout_all_ok",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.Int64("revoked", count),
	)

	return count, nil
}

// blockAccessClaims зеркалирует jti access-токена в blocklist; ошибки
// логируются и не прерывают вызов (logout — best-effort).
func (s *Service) blockAccessClaims(ctx context.Context, claims *tokenClaims, reason string) {
	const op = "service.auth.blockAccessClaims"

	lg := log.From(ctx)

	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return
	}

	if claims.ExpiresAt == nil {
		return
	}

	var userID *uuid.UUID
	if uid, err := uuid.Parse(claims.Subject); err == nil {
		userID = &uid
	}

	if _, err := s.storage.BlockToken(ctx, &models.BlockedToken{
		JTI:       jti,
		TokenType: models.TokenTypeAccess,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
		Reason:    reason,
	}); err != nil {
		lg.Error("block_access_token_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}
}

// DeactivateUser выполняет мягкое удаление учётной записи: отзывает все
// токены, деактивирует пользователя, анонимизирует email и делает пароль
// непригодным для входа. Жёсткое удаление не используется, чтобы не
// рвать внешние ссылки на пользователя в остальной системе.
func (s *Service) DeactivateUser(ctx context.Context, user *models.User) error {
	const op = "service.auth.DeactivateUser"

	if _, err := s.storage.RevokeAllByUser(ctx, user.ID, "account deactivated"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	scrambled, err := hashPassword(base64.RawURLEncoding.EncodeToString(secret[:]))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user.Active = false
	user.Email = fmt.Sprintf("deleted_%s_%d@deleted.local", user.ID, now.Unix())
	user.PasswordHash = scrambled
	user.UpdatedAt = now

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_deactivated",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика по умолчанию: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
