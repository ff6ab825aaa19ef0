// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход он принимает ошибку доменного слоя (service), на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Отказы валидации токена намеренно неразличимы снаружи: expired,
// revoked, неизвестный/неактивный subject — всё один и тот же 401
// unauthenticated, чтобы не давать оракула причин отказа. Единственное
// исключение — логин: остаток попыток и время блокировки отдаются
// клиенту (осознанный обмен утечки на usability, см. сервис).
package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hometasks/auth-service/internal/service"
)

// APIError — единый формат ошибки для фронта.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	// RemainingAttempts — остаток попыток логина до блокировки;
	// указатель, чтобы значение 0 не терялось при сериализации.
	RemainingAttempts *int64 `json:"remaining_attempts,omitempty"`
	// RetryAfterMinutes — рекомендация, через сколько минут повторить.
	RetryAfterMinutes int64 `json:"retry_after_minutes,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный ответ.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		// Программная ошибка вызова: не маскируем баг ответом "200 OK".
		return http.StatusInternalServerError, internalResponse()
	}

	var lockout *service.LockoutError
	if errors.As(err, &lockout) {
		return http.StatusTooManyRequests, ErrorResponse{
			Error: APIError{
				Code:              "too_many_requests",
				Message:           "too many failed attempts",
				RetryAfterMinutes: retryAfterMinutes(lockout.RetryAfter),
			},
		}
	}

	var creds *service.CredentialsError
	if errors.As(err, &creds) {
		remaining := creds.Remaining
		return http.StatusUnauthorized, ErrorResponse{
			Error: APIError{
				Code:              "unauthenticated",
				Message:           "invalid credentials",
				RemainingAttempts: &remaining,
			},
		}
	}

	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword):
		return http.StatusBadRequest, ErrorResponse{
			Error: APIError{Code: "invalid_argument", Message: "invalid argument"},
		}

	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, ErrorResponse{
			Error: APIError{Code: "already_exists", Message: "already exists"},
		}

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrUserInactive):
		return http.StatusUnauthorized, ErrorResponse{
			Error: APIError{Code: "unauthenticated", Message: "unauthenticated"},
		}

	default:
		return http.StatusInternalServerError, internalResponse()
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка и
// Retry-After для 429.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if status == http.StatusTooManyRequests && resp.Error.RetryAfterMinutes > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(resp.Error.RetryAfterMinutes*60, 10))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteTooManyRequests — ответ троттлинга запросов (лимитер, не guard).
func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	resp := ErrorResponse{
		Error: APIError{
			Code:              "too_many_requests",
			Message:           "rate limit exceeded",
			RetryAfterMinutes: retryAfterMinutes(retryAfter),
		},
	}

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter/time.Second)+1, 10))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteBadRequest — ответ 400 для синтаксически негодного запроса
// (битый JSON, неизвестные поля), до обращения к доменному слою.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	resp := ErrorResponse{
		Error: APIError{Code: "invalid_argument", Message: message},
	}

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteUnauthenticated — единый 401 без уточнения причины.
func WriteUnauthenticated(w http.ResponseWriter, r *http.Request) {
	resp := ErrorResponse{
		Error: APIError{Code: "unauthenticated", Message: "unauthenticated"},
	}

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(resp)
}

func internalResponse() ErrorResponse {
	return ErrorResponse{
		Error: APIError{Code: "internal", Message: "internal error"},
	}
}

// retryAfterMinutes округляет длительность вверх до минут (минимум 1).
func retryAfterMinutes(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}

	minutes := int64(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}

	return minutes
}
