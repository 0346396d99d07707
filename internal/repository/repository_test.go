package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/link-shortener/internal/model"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func sampleSnapshot() model.Snapshot {
	snap := model.NewSnapshot()
	snap.Version = 7
	snap.Users["alice"] = model.UserRecord{
		UUID:      "0b6f1a52-7a3c-4a8e-9f4e-3c1d2b7a9e10",
		CreatedAt: testNow,
		Links: map[string]model.Link{
			"abc123": {
				Token:           "abc123",
				Destination:     "https://example.com",
				CreatedAt:       testNow,
				ExpiresAt:       testNow.Add(time.Hour),
				RemainingVisits: model.IntPtr(4),
				VisitCount:      1,
			},
			"xyz789": {
				Token:       "xyz789",
				Destination: "https://example.org",
				CreatedAt:   testNow,
				ExpiresAt:   testNow.Add(2 * time.Hour),
			},
		},
	}
	snap.Users["bob"] = model.UserRecord{
		UUID:      "5e2d8c4b-1f3a-4b6c-8d9e-0a1b2c3d4e5f",
		CreatedAt: testNow,
		Links:     map[string]model.Link{},
	}
	return snap
}

// assertSameData ignores Version, which only some backends keep
func assertSameData(t *testing.T, want, got model.Snapshot) {
	t.Helper()
	require.Len(t, got.Users, len(want.Users))
	for name, wu := range want.Users {
		gu, ok := got.Users[name]
		require.True(t, ok, "user %s missing", name)
		assert.Equal(t, wu.UUID, gu.UUID)
		assert.True(t, wu.CreatedAt.Equal(gu.CreatedAt))
		require.Len(t, gu.Links, len(wu.Links))
		for tok, wl := range wu.Links {
			gl := gu.Links[tok]
			assert.Equal(t, wl.Destination, gl.Destination)
			assert.True(t, wl.ExpiresAt.Equal(gl.ExpiresAt), "expires_at for %s", tok)
			assert.Equal(t, wl.RemainingVisits, gl.RemainingVisits)
			assert.Equal(t, wl.VisitCount, gl.VisitCount)
		}
	}
}

func exerciseRepository(t *testing.T, repo SnapshotRepository) {
	t.Helper()
	ctx := context.Background()

	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Users)

	want := sampleSnapshot()
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assertSameData(t, want, got)

	// a later save fully replaces the earlier one
	delete(want.Users, "bob")
	delete(want.Users["alice"].Links, "xyz789")
	require.NoError(t, repo.Save(ctx, want))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assertSameData(t, want, got)
}

func TestFileRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "user_data.json")
	repo := NewFileRepository(path)
	defer repo.Close()

	exerciseRepository(t, repo)

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Version)
}

func TestFileRepository_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileRepository(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := NewSQLiteRepository(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	exerciseRepository(t, repo)
}

func TestSQLiteRepository_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "links.db")
	repo, err := NewSQLiteRepository(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(context.Background(), path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(context.Background())
	require.NoError(t, err)
	assertSameData(t, sampleSnapshot(), got)
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	repo, err := NewPostgresRepository(context.Background(), dsn)
	require.NoError(t, err)
	defer repo.Close()

	exerciseRepository(t, repo)
}

func TestRedisRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisRepositoryFromClient(client, "")
	defer repo.Close()

	exerciseRepository(t, repo)
	assert.True(t, mr.Exists(DefaultRedisKey))
}

func TestRedisRepository_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisRepository(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestSQLRepository_Placeholders(t *testing.T) {
	pg := &SQLRepository{dialect: postgresDialect}
	lite := &SQLRepository{dialect: sqliteDialect}

	q := "INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)"
	assert.Equal(t, "INSERT INTO users (id, name, created_at) VALUES ($1, $2, $3)", pg.q(q))
	assert.Equal(t, q, lite.q(q))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, Config{Driver: "file", Path: filepath.Join(t.TempDir(), "d.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileRepository{}, repo)

	repo, err = Open(ctx, Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLRepository{}, repo)
	repo.Close()

	mr := miniredis.RunT(t)
	repo, err = Open(ctx, Config{Driver: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisRepository{}, repo)
	repo.Close()

	_, err = Open(ctx, Config{Driver: "mongo"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
