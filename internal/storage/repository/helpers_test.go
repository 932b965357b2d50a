package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/buscaaqui/internal/migrations"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	return storage
}

// TestDataFactory создаёт тестовые данные напрямую в базе.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создаёт фабрику тестовых данных.
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создаёт пользователя и возвращает его uid.
func (f *TestDataFactory) CreateUser(t *testing.T, email string) string {
	t.Helper()
	uid := uuid.NewString()
	_, err := f.storage.DB.Exec(`INSERT INTO users (uid, email, name, password_hash) VALUES ($1, $2, 'Teste', 'hash')`,
		uid, email)
	require.NoError(t, err)
	return uid
}

// CategoryID возвращает id засеянной категории.
func (f *TestDataFactory) CategoryID(t *testing.T, slug string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, f.storage.DB.QueryRow(`SELECT id FROM categories WHERE slug = $1`, slug).Scan(&id))
	return id
}

// CreateAd создаёт объявление в заданном статусе.
func (f *TestDataFactory) CreateAd(t *testing.T, uid string, categoryID int64, title string, price int64, status string) *models.Ad {
	t.Helper()
	ad, err := f.storage.CreateAd(context.Background(), models.Ad{
		UserUID:     uid,
		CategoryID:  categoryID,
		Title:       title,
		Description: "descrição de " + title,
		PriceCents:  price,
		City:        "Barra do Corda",
		Photos:      []string{"https://cdn.buscaaqui.test/1.jpg"},
		Status:      status,
	})
	require.NoError(t, err)
	return ad
}

// CountRows считает строки таблицы.
func (f *TestDataFactory) CountRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.storage.DB.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
