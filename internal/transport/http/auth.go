package http

import (
	"net/http"
	"time"

	apierrors "github.com/hometasks/auth-service/internal/errors"
	"github.com/hometasks/auth-service/internal/models"
	"github.com/hometasks/auth-service/internal/pkg/log"
	"github.com/hometasks/auth-service/internal/transport/http/middleware"
)

// Register — POST /auth/register.
//
// Создаёт пользователя и сразу выдаёт пару токенов (201).
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "invalid request body")
		return
	}

	pair, userID, err := h.service.Register(r.Context(), req.Email, req.Password, clientMeta(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newTokenResponse(pair, userID.String()))
}

// Login — POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "invalid request body")
		return
	}

	pair, userID, err := h.service.Login(r.Context(), req.Email, req.Password, clientMeta(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(pair, userID.String()))
}

// Refresh — POST /auth/refresh.
//
// Ротация: предъявленный refresh-токен отзывается, выдаётся новая пара.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeStrict(r, &req); err != nil || req.RefreshToken == "" {
		apierrors.WriteBadRequest(w, r, "invalid request body")
		return
	}

	pair, userID, err := h.service.Refresh(r.Context(), req.RefreshToken, clientMeta(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(pair, userID.String()))
}

// Logout — POST /auth/logout.
//
// Всегда 204: выход идемпотентен, невалидные или просроченные токены
// не считаются ошибкой клиента.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeOptional(r, &req); err != nil {
		log.From(r.Context()).Debug("logout_body_ignored", "error", err.Error())
	}

	accessToken, _ := middleware.BearerFromContext(r.Context())

	if err := h.service.Logout(r.Context(), accessToken, req.RefreshToken); err != nil {
		// Logout не возвращает доменных ошибок; сюда попадают только
		// инфраструктурные сбои, и даже их мы не показываем клиенту.
		log.From(r.Context()).Error("logout_failed", "error", err.Error())
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll — POST /auth/logout-all.
//
// Требует валидный access-токен; отзывает все refresh-токены пользователя.
func (h *Handlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	h.requireAuth(w, r, func(user *models.User, accessToken string) {
		revoked, err := h.service.LogoutAll(r.Context(), user, accessToken)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		log.From(r.Context()).Info("logout_all", "user_id", user.ID.String(), "revoked", revoked)
		w.WriteHeader(http.StatusNoContent)
	})
}

// Me — GET /auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	h.requireAuth(w, r, func(user *models.User, _ string) {
		writeJSON(w, http.StatusOK, userResponse{
			ID:     user.ID.String(),
			Email:  user.Email,
			Active: user.Active,
		})
	})
}

// DeleteMe — DELETE /auth/me.
//
// Деактивирует аккаунт и отзывает все сессии.
func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	h.requireAuth(w, r, func(user *models.User, accessToken string) {
		if _, err := h.service.LogoutAll(r.Context(), user, accessToken); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		if err := h.service.DeactivateUser(r.Context(), user); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

// requireAuth проверяет access-токен из Authorization и передаёт
// пользователя в next. Ошибки валидации маппятся в единый 401.
func (h *Handlers) requireAuth(w http.ResponseWriter, r *http.Request, next func(user *models.User, accessToken string)) {
	accessToken, ok := middleware.BearerFromContext(r.Context())
	if !ok {
		apierrors.WriteUnauthenticated(w, r)
		return
	}

	user, err := h.service.Authenticate(r.Context(), accessToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	next(user, accessToken)
}

func newTokenResponse(pair *models.TokenPair, userID string) tokenResponse {
	expiresIn := int64(time.Until(pair.AccessExpiresAt).Round(time.Second) / time.Second)
	if expiresIn < 0 {
		expiresIn = 0
	}

	return tokenResponse{
		UserID:       userID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    expiresIn,
	}
}
