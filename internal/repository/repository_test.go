package repository

import (
	"context"
	"path/filepath"
	"testing"

	"ByteArrayGo/internal/cache/lru"
	"ByteArrayGo/internal/model"
	"ByteArrayGo/pkg/bytearray"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepositories(t *testing.T) map[string]Repository {
	t.Helper()

	sqliteRepo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "buffers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteRepo.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepository(lru.NewCache(0, 0, nil)),
		"sqlite": sqliteRepo,
	}
}

func TestRepositorySaveGet(t *testing.T) {
	t.Parallel()

	for name, repo := range newRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			src := bytearray.FromBytes([]byte{0x00, 'h', 0xff})
			require.NoError(t, repo.Save(ctx, "buf", src))

			// 修改源数据不影响已保存内容
			src.Append(bytearray.FromString("more"))

			got, err := repo.Get(ctx, "buf")
			require.NoError(t, err)
			assert.Equal(t, []byte{0x00, 'h', 0xff}, got.Data())

			// 修改读取结果也不影响已保存内容
			got.Append(bytearray.FromString("x"))
			again, err := repo.Get(ctx, "buf")
			require.NoError(t, err)
			assert.Equal(t, 3, again.Len())
		})
	}
}

func TestRepositoryOverwriteListDelete(t *testing.T) {
	t.Parallel()

	for name, repo := range newRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, repo.Save(ctx, "b", bytearray.FromString("1")))
			require.NoError(t, repo.Save(ctx, "a", bytearray.FromString("22")))
			require.NoError(t, repo.Save(ctx, "b", bytearray.FromString("333")))

			names, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, names)

			stats, err := repo.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, name, stats["driver"])
			assert.EqualValues(t, 2, stats["buffers"])

			require.NoError(t, repo.Delete(ctx, "a"))
			assert.True(t, model.IsNotFound(repo.Delete(ctx, "a")))

			_, err = repo.Get(ctx, "a")
			assert.True(t, model.IsNotFound(err))
		})
	}
}

func TestRepositoryRejectsEmptyName(t *testing.T) {
	t.Parallel()

	for name, repo := range newRepositories(t) {
		t.Run(name, func(t *testing.T) {
			err := repo.Save(context.Background(), "", bytearray.FromString("x"))
			assert.Error(t, err)
		})
	}
}

func TestSQLiteEmptyBuffer(t *testing.T) {
	t.Parallel()

	repo := newRepositories(t)["sqlite"]
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "empty", bytearray.FromBytes(nil)))
	got, err := repo.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}
