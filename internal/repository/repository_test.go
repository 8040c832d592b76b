package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/notes-bin/imageshare/internal/config"
	"github.com/notes-bin/imageshare/internal/database"
	"github.com/notes-bin/imageshare/internal/model"
)

// setupTestDB 启动 PostgreSQL 容器并应用迁移。
// 没有设置 TEST_INTEGRATION 时跳过。
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("imageshare_test"),
		postgres.WithUsername("imageshare"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "imageshare",
		Password: "test-password",
		DBName:   "imageshare_test",
		SSLMode:  "disable",
	}
	require.NoError(t, database.Migrate(cfg))

	pool, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func newImage(userID, title, slug string) *model.Image {
	return &model.Image{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Slug:      slug,
		URL:       "http://example.com/" + slug + ".png",
		Filename:  "f" + slug + ".png",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestImageRepository(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewImageRepository(pool)

	img := newImage("alice", "My Photo", "my-photo")
	require.NoError(t, repo.Create(ctx, img))

	got, err := repo.GetByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.Title, got.Title)
	assert.Equal(t, img.Slug, got.Slug)

	got, err = repo.GetByIDSlug(ctx, img.ID, "my-photo")
	require.NoError(t, err)
	assert.Equal(t, img.ID, got.ID)

	// slug 不匹配按不存在处理
	_, err = repo.GetByIDSlug(ctx, img.ID, "wrong-slug")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImageRepositoryList(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewImageRepository(pool)

	for i, slug := range []string{"first", "second", "third"} {
		img := newImage("alice", slug, slug)
		img.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, img))
	}
	other := newImage("bob", "other", "other")
	other.IsPrivate = true
	require.NoError(t, repo.Create(ctx, other))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// 按创建时间倒序
	images, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.True(t, !images[0].CreatedAt.Before(images[1].CreatedAt))

	n, err = repo.CountByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	images, err = repo.ListByUser(ctx, "bob", 0, 10)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "other", images[0].Slug)
}

func TestImageRepositoryPublicByIDs(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewImageRepository(pool)

	pub := newImage("alice", "pub", "pub")
	require.NoError(t, repo.Create(ctx, pub))
	priv := newImage("alice", "priv", "priv")
	priv.IsPrivate = true
	require.NoError(t, repo.Create(ctx, priv))

	images, err := repo.PublicByIDs(ctx, []string{pub.ID, priv.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, pub.ID, images[0].ID)

	images, err = repo.PublicByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, images)

	existing, err := repo.ExistingIDs(ctx, []string{pub.ID, priv.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{pub.ID, priv.ID}, existing)
}

func TestImageRepositoryLikes(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewImageRepository(pool)

	img := newImage("alice", "photo", "photo")
	require.NoError(t, repo.Create(ctx, img))

	// 重复点赞幂等
	require.NoError(t, repo.AddLike(ctx, img.ID, "bob"))
	require.NoError(t, repo.AddLike(ctx, img.ID, "bob"))
	require.NoError(t, repo.AddLike(ctx, img.ID, "carol"))

	n, err := repo.CountLikes(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.RemoveLike(ctx, img.ID, "bob"))
	n, err = repo.CountLikes(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteWithActions(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	images := NewImageRepository(pool)
	actions := NewActionRepository(pool)

	img := newImage("alice", "photo", "photo")
	require.NoError(t, images.Create(ctx, img))
	other := newImage("alice", "keep", "keep")
	require.NoError(t, images.Create(ctx, other))

	require.NoError(t, actions.Create(ctx, "alice", model.VerbShared, img.ID))
	require.NoError(t, actions.Create(ctx, "bob", model.VerbLiked, img.ID))
	require.NoError(t, actions.Create(ctx, "bob", model.VerbLiked, other.ID))
	require.NoError(t, images.AddLike(ctx, img.ID, "bob"))

	require.NoError(t, images.DeleteWithActions(ctx, img.ID))

	// 记录、点赞、指向它的日志一起消失
	_, err := images.GetByID(ctx, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := images.CountLikes(ctx, img.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	recs, err := actions.ListByTarget(ctx, img.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)

	// 其他图片的日志不受影响
	recs, err = actions.ListByTarget(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	// 删除不存在的记录
	assert.ErrorIs(t, images.DeleteWithActions(ctx, uuid.NewString()), ErrNotFound)
}

func TestProfileActivate(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewProfileRepository(pool)

	_, err := repo.Get(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	// 重复激活幂等
	require.NoError(t, repo.Activate(ctx, "alice"))
	require.NoError(t, repo.Activate(ctx, "alice"))

	p, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, p.Active)
}
