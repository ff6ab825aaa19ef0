package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/hometasks/auth-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIntegration_BlockToken_And_IsBlocked(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")
	now := time.Now().UTC()

	jti := uuid.New()
	blockedToken, err := st.BlockToken(ctx, &models.BlockedToken{
		JTI:       jti,
		TokenType: models.TokenTypeAccess,
		UserID:    &userID,
		ExpiresAt: now.Add(time.Hour),
		Reason:    "user logout",
	})
	require.NoError(t, err)
	require.NotZero(t, blockedToken.ID)
	require.Equal(t, jti, blockedToken.JTI)
	require.Equal(t, "user logout", blockedToken.Reason)

	blocked, err := st.IsBlocked(ctx, jti, now)
	require.NoError(t, err)
	require.True(t, blocked)

	blocked, err = st.IsBlocked(ctx, uuid.New(), now)
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestIntegration_BlockToken_Idempotent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	jti := uuid.New()

	first, err := st.BlockToken(ctx, &models.BlockedToken{
		JTI:       jti,
		TokenType: models.TokenTypeRefresh,
		ExpiresAt: now.Add(time.Hour),
		Reason:    "token rotation",
	})
	require.NoError(t, err)

	// Повторный вызов возвращает существующую запись без изменений.
	second, err := st.BlockToken(ctx, &models.BlockedToken{
		JTI:       jti,
		TokenType: models.TokenTypeRefresh,
		ExpiresAt: now.Add(2 * time.Hour),
		Reason:    "another reason",
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "token rotation", second.Reason)
	require.WithinDuration(t, first.ExpiresAt, second.ExpiresAt, time.Second)
}

func TestIntegration_IsBlocked_MirroredExpiry(t *testing.T) {
	// Запись с прошедшим зеркальным exp не блокирует, даже пока фоновая
	// очистка её не удалила.
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	jti := uuid.New()

	_, err := st.BlockToken(ctx, &models.BlockedToken{
		JTI:       jti,
		TokenType: models.TokenTypeAccess,
		ExpiresAt: now.Add(-time.Minute),
		Reason:    "user logout",
	})
	require.NoError(t, err)

	blocked, err := st.IsBlocked(ctx, jti, now)
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestIntegration_DeleteExpiredBlocks(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	expiredJTI := uuid.New()
	aliveJTI := uuid.New()

	_, err := st.BlockToken(ctx, &models.BlockedToken{
		JTI:       expiredJTI,
		TokenType: models.TokenTypeAccess,
		ExpiresAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	_, err = st.BlockToken(ctx, &models.BlockedToken{
		JTI:       aliveJTI,
		TokenType: models.TokenTypeAccess,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, st.DeleteExpiredBlocks(ctx, now))

	blocked, err := st.IsBlocked(ctx, aliveJTI, now)
	require.NoError(t, err)
	require.True(t, blocked)

	// Просроченная запись удалена; повторная блокировка того же jti
	// создаёт свежую запись, а не натыкается на конфликт.
	fresh, err := st.BlockToken(ctx, &models.BlockedToken{
		JTI:       expiredJTI,
		TokenType: models.TokenTypeAccess,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.NotZero(t, fresh.ID)
}
