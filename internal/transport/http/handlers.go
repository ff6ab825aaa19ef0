// transport/http содержит HTTP-эндпоинты auth-сервиса.
// Здесь выполняется только разбор запросов и маппинг данных и ошибок
// доменного слоя (service) в HTTP. Вся валидация и бизнес-логика
// находятся в пакете service.
//
// Принципы:
//   - Контекст запроса прокидывается в сервис без потерь;
//   - Ошибки сервиса транслируются пакетом internal/errors;
//   - Logout отвечает 204 независимо от валидности входов (контракт
//     эндпоинта: выход — best-effort и идемпотентен);
//   - Детали внутренних ошибок наружу не утекают; подробности попадают
//     в логи через мидлвары.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hometasks/auth-service/internal/limiter"
	"github.com/hometasks/auth-service/internal/models"

	"github.com/google/uuid"
)

// AuthService — контракт доменного слоя, нужный транспорту.
type AuthService interface {
	Register(ctx context.Context, email, password string, meta models.ClientMeta) (*models.TokenPair, uuid.UUID, error)
	Login(ctx context.Context, email, password string, meta models.ClientMeta) (*models.TokenPair, uuid.UUID, error)
	Refresh(ctx context.Context, refreshToken string, meta models.ClientMeta) (*models.TokenPair, uuid.UUID, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	LogoutAll(ctx context.Context, user *models.User, accessToken string) (int64, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	DeactivateUser(ctx context.Context, user *models.User) error
}

// Handlers агрегирует зависимости HTTP-слоя.
type Handlers struct {
	service AuthService
}

func NewHandlers(s AuthService) *Handlers {
	return &Handlers{service: s}
}

// credentialsRequest — тело register/login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest — тело refresh и (опционально) logout.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse — ответ register/login/refresh.
type tokenResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresIn — срок жизни access-токена в секундах.
	ExpiresIn int64 `json:"expires_in"`
}

// userResponse — ответ /auth/me.
type userResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// decodeOptional — как decodeStrict, но пустое тело — не ошибка.
func decodeOptional(r *http.Request, value any) error {
	err := decodeStrict(r, value)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// clientMeta собирает метаданные клиента из запроса.
func clientMeta(r *http.Request) models.ClientMeta {
	return models.ClientMeta{
		DeviceInfo: r.UserAgent(),
		IP:         limiter.ClientIP(r),
	}
}
