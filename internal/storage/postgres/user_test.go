package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/hometasks/auth-service/internal/models"
	"github.com/hometasks/auth-service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Файл интеграционных тестов для пакета postgres (репозиторий user.go):
// - поднимает реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// - применяет миграции из ./migrations;
// - проверяет happy-path (создание и поиск по email/ID), уникальность email (CITEXT),
//   обновление и сценарии отсутствия записей (storage.ErrNotFound).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile — определяет корень репозитория относительно текущего файла тестов.
// Используется для поиска SQL-миграций в каталоге ./migrations независимо от текущего рабочего каталога.
func repoRootFromThisFile() string {
	// internal/storage/postgres/... -> подняться на 3 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// readMigration — читает содержимое SQL-миграции из подкаталога ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	root := repoRootFromThisFile()
	path := filepath.Join(root, "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres — поднимает временный экземпляр PostgreSQL через testcontainers-go,
// применяет все миграции и возвращает инициализированное хранилище и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	// применяем миграции.
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	for _, m := range []string{"1_init_users.up.sql", "2_init_refresh_tokens.up.sql", "3_init_token_blocklist.up.sql"} {
		_, err = pool.Exec(ctx, readMigration(t, m))
		require.NoError(t, err, "apply %s", m)
	}

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

// seedUser создаёт пользователя.
func seedUser(t *testing.T, st *Storage, email string) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.SaveUser(context.Background(), u))
	return u.ID
}

func TestIntegration_SaveUser_And_GetByEmail_And_ByID_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	uid := seedUser(t, st, "user@example.com")

	byEmail, err := st.UserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	require.Equal(t, uid, byEmail.ID)
	require.True(t, byEmail.Active)

	// CITEXT: поиск регистронезависим.
	byUpper, err := st.UserByEmail(ctx, "USER@EXAMPLE.COM")
	require.NoError(t, err)
	require.Equal(t, uid, byUpper.ID)

	byID, err := st.UserByID(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", byID.Email)
}

func TestIntegration_SaveUser_DuplicateEmail(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	dup := &models.User{
		ID:           uuid.New(),
		Email:        "User@Example.com", // регистр другой, CITEXT всё равно конфликтует
		PasswordHash: "hash",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := st.SaveUser(ctx, dup)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_User_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	_, err := st.UserByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_UpdateUser(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	uid := seedUser(t, st, "user@example.com")

	user, err := st.UserByID(ctx, uid)
	require.NoError(t, err)

	user.Active = false
	user.Email = "deleted_x@deleted.local"
	user.PasswordHash = "scrambled"
	user.UpdatedAt = time.Now().UTC()
	require.NoError(t, st.UpdateUser(ctx, user))

	got, err := st.UserByID(ctx, uid)
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Equal(t, "deleted_x@deleted.local", got.Email)
	require.Equal(t, "scrambled", got.PasswordHash)
}

func TestIntegration_UpdateUser_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	now := time.Now().UTC()
	ghost := &models.User{
		ID:           uuid.New(),
		Email:        "ghost@example.com",
		PasswordHash: "hash",
		UpdatedAt:    now,
	}
	err := st.UpdateUser(context.Background(), ghost)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
