package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/hometasks/auth-service/internal/models"
	"github.com/hometasks/auth-service/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// seedRefreshToken сохраняет запись refresh-токена со свежим jti.
func seedRefreshToken(t *testing.T, st *Storage, userID uuid.UUID, ttl time.Duration) *models.RefreshToken {
	t.Helper()
	now := time.Now().UTC()
	rt := &models.RefreshToken{
		UserID:    userID,
		JTI:       uuid.New(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	require.NoError(t, st.SaveRefreshToken(context.Background(), rt))
	return rt
}

func TestIntegration_SaveRefreshToken_And_GetByJTI_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	rt := &models.RefreshToken{
		UserID:     userID,
		JTI:        uuid.New(),
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
		DeviceInfo: "test-agent",
		ClientIP:   "10.0.0.1",
	}
	require.NoError(t, st.SaveRefreshToken(ctx, rt))
	require.NotZero(t, rt.ID)

	got, err := st.RefreshTokenByJTI(ctx, rt.JTI)
	require.NoError(t, err)
	require.Equal(t, rt.JTI, got.JTI)
	require.Equal(t, userID, got.UserID)
	require.False(t, got.Revoked)
	require.Nil(t, got.RevokedAt)
	require.Equal(t, "test-agent", got.DeviceInfo)
	require.Equal(t, "10.0.0.1", got.ClientIP)
	require.WithinDuration(t, now.Add(time.Hour), got.ExpiresAt, 2*time.Second)
}

func TestIntegration_SaveRefreshToken_DuplicateJTI(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")
	rt := seedRefreshToken(t, st, userID, time.Hour)

	dup := &models.RefreshToken{
		UserID:    userID,
		JTI:       rt.JTI,
		ExpiresAt: rt.ExpiresAt,
		CreatedAt: rt.CreatedAt,
	}
	err := st.SaveRefreshToken(ctx, dup)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_RefreshTokenByJTI_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	_, err := st.RefreshTokenByJTI(context.Background(), uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RevokeRefreshToken_Flow(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")
	rt := seedRefreshToken(t, st, userID, time.Hour)

	// Первый отзыв: токен был активен.
	revokedNow, err := st.RevokeRefreshToken(ctx, rt.JTI, "token rotation")
	require.NoError(t, err)
	require.True(t, revokedNow)

	got, err := st.RefreshTokenByJTI(ctx, rt.JTI)
	require.NoError(t, err)
	require.True(t, got.Revoked)
	require.NotNil(t, got.RevokedAt)

	// jti зеркалируется в blocklist той же транзакцией.
	blocked, err := st.IsBlocked(ctx, rt.JTI, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, blocked)

	// Повторный отзыв: запись есть, но уже отозвана.
	revokedNow, err = st.RevokeRefreshToken(ctx, rt.JTI, "token rotation")
	require.NoError(t, err)
	require.False(t, revokedNow)

	// Неизвестный jti.
	_, err = st.RevokeRefreshToken(ctx, uuid.New(), "token rotation")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RevokeAllByUser(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")
	otherID := seedUser(t, st, "other@example.com")

	rt1 := seedRefreshToken(t, st, userID, time.Hour)
	rt2 := seedRefreshToken(t, st, userID, time.Hour)
	rtOther := seedRefreshToken(t, st, otherID, time.Hour)

	// Один токен уже отозван: в массовый отзыв не попадает.
	revokedNow, err := st.RevokeRefreshToken(ctx, rt1.JTI, "user logout")
	require.NoError(t, err)
	require.True(t, revokedNow)

	count, err := st.RevokeAllByUser(ctx, userID, "user logout all devices")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	got2, err := st.RefreshTokenByJTI(ctx, rt2.JTI)
	require.NoError(t, err)
	require.True(t, got2.Revoked)

	blocked, err := st.IsBlocked(ctx, rt2.JTI, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, blocked)

	// Чужие токены не задеты.
	gotOther, err := st.RefreshTokenByJTI(ctx, rtOther.JTI)
	require.NoError(t, err)
	require.False(t, gotOther.Revoked)

	// Повторный массовый отзыв — ноль.
	count, err = st.RevokeAllByUser(ctx, userID, "user logout all devices")
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestIntegration_DeleteExpiredTokens(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	expired := seedRefreshToken(t, st, userID, -time.Hour)
	alive := seedRefreshToken(t, st, userID, time.Hour)

	require.NoError(t, st.DeleteExpiredTokens(ctx, time.Now().UTC()))

	_, err := st.RefreshTokenByJTI(ctx, expired.JTI)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.RefreshTokenByJTI(ctx, alive.JTI)
	require.NoError(t, err)
}

func TestIntegration_DeleteExpiredTokens_GracePeriod(t *testing.T) {
	// Порог в прошлом оставляет только что просроченные записи на месте:
	// их предъявление различимо как expired, а не unknown.
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	justExpired := seedRefreshToken(t, st, userID, -time.Minute)

	require.NoError(t, st.DeleteExpiredTokens(ctx, time.Now().UTC().Add(-24*time.Hour)))

	_, err := st.RefreshTokenByJTI(ctx, justExpired.JTI)
	require.NoError(t, err)
}
