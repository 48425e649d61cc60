package repository

import (
	"context"
	"sort"

	"ByteArrayGo/internal/cache/lru"
	"ByteArrayGo/internal/model"
	"ByteArrayGo/pkg/bytearray"
)

// MemoryRepository 内存存储仓库，数据放在LRU缓存中，由快照管理器负责持久化
type MemoryRepository struct {
	cache *lru.Cache
}

// NewMemoryRepository 创建内存仓库
func NewMemoryRepository(cache *lru.Cache) *MemoryRepository {
	return &MemoryRepository{
		cache: cache,
	}
}

// Save 保存缓冲区
func (r *MemoryRepository) Save(_ context.Context, name string, data *bytearray.ByteArray) error {
	if name == "" {
		return model.ErrInvalidParameter("buffer name is required")
	}
	r.cache.Add(name, bytearray.FromBytes(data.Data()))
	return nil
}

// Get 获取缓冲区
func (r *MemoryRepository) Get(_ context.Context, name string) (*bytearray.ByteArray, error) {
	value, ok := r.cache.Get(name)
	if !ok {
		return nil, model.ErrNotFound("buffer not found: " + name)
	}
	ba, ok := value.(*bytearray.ByteArray)
	if !ok {
		return nil, model.ErrInternalError("unexpected cache value for " + name)
	}
	return bytearray.FromBytes(ba.Data()), nil
}

// Delete 删除缓冲区
func (r *MemoryRepository) Delete(_ context.Context, name string) error {
	if !r.cache.Remove(name) {
		return model.ErrNotFound("buffer not found: " + name)
	}
	return nil
}

// List 按名称排序返回所有缓冲区
func (r *MemoryRepository) List(_ context.Context) ([]string, error) {
	names := r.cache.Keys()
	sort.Strings(names)
	return names, nil
}

// Stats 获取统计信息
func (r *MemoryRepository) Stats(_ context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{
		"driver":      "memory",
		"buffers":     r.cache.Len(),
		"total_bytes": r.cache.Bytes(),
	}, nil
}

// Close 内存仓库无需释放资源
func (r *MemoryRepository) Close() error {
	return nil
}
