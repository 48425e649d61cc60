package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ByteArrayGo/internal/cache/lru"
	"ByteArrayGo/internal/model"
	"ByteArrayGo/internal/repository"
	"ByteArrayGo/pkg/bytearray"

	"github.com/sirupsen/logrus"
)

// BufferService 缓冲区服务，在存储仓库之上执行ByteArray的各项操作
type BufferService struct {
	repo      repository.Repository
	cache     *lru.Cache // 热缓存，可能为nil
	mu        sync.Mutex // 串行化读-改-写，保证并发追加不丢数据
	cacheHits int64
	cacheMiss int64
}

// NewBufferService 创建缓冲区服务
// cacheSize<=0 时不启用热缓存（内存仓库本身就在内存里）
func NewBufferService(repo repository.Repository, cacheSize int64, ttl time.Duration) *BufferService {
	s := &BufferService{repo: repo}
	if cacheSize > 0 {
		logrus.Infof("Initializing BufferService with cache size: %.2f MB", float64(cacheSize)/(1024*1024))
		s.cache = lru.NewCache(cacheSize, ttl, func(key string, value lru.Value) {
			logrus.Debugf("Cache evicted: %s", key)
		})
	}
	return s
}

// Create 按数据来源创建缓冲区，同名覆盖
func (s *BufferService) Create(ctx context.Context, name string, src *model.Source) (*bytearray.ByteArray, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, model.ErrInvalidParameter("source is required")
	}
	ba, err := src.Build()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, name, ba); err != nil {
		return nil, err
	}
	logrus.Debugf("Buffer created: %s (%d bytes)", name, ba.Len())
	return ba, nil
}

// Put 直接保存ByteArray，同名覆盖
func (s *BufferService) Put(ctx context.Context, name string, ba *bytearray.ByteArray) error {
	if err := validateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, name, ba)
}

// Get 获取缓冲区，返回的实例归调用方所有
func (s *BufferService) Get(ctx context.Context, name string) (*bytearray.ByteArray, error) {
	if ba, ok := s.cached(name); ok {
		return ba, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, name)
}

// cached 命中热缓存时返回副本
func (s *BufferService) cached(name string) (*bytearray.ByteArray, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, ok := s.cache.Get(name)
	if !ok {
		return nil, false
	}
	atomic.AddInt64(&s.cacheHits, 1)
	logrus.Debugf("Cache hit: %s", name)
	return bytearray.FromBytes(cached.(*bytearray.ByteArray).Data()), true
}

// load 读仓库并回填热缓存，调用方需持有s.mu，
// 回填与save中的失效由同一把锁串行，缓存不会留下旧值
func (s *BufferService) load(ctx context.Context, name string) (*bytearray.ByteArray, error) {
	if ba, ok := s.cached(name); ok {
		return ba, nil
	}
	if s.cache != nil {
		atomic.AddInt64(&s.cacheMiss, 1)
		logrus.Debugf("Cache miss: %s", name)
	}

	ba, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(name, bytearray.FromBytes(ba.Data()))
	}
	return ba, nil
}

// Index 获取单个字节
func (s *BufferService) Index(ctx context.Context, name string, index int) (byte, error) {
	ba, err := s.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	return ba.Get(index)
}

// Slice 切片，target非空时结果另存
func (s *BufferService) Slice(ctx context.Context, name string, start, stop, step *int, target string) (*bytearray.ByteArray, error) {
	ba, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	result, err := ba.Slice(start, stop, step)
	if err != nil {
		return nil, err
	}
	if err := s.storeResult(ctx, target, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Concat 拼接 left + right，target非空时结果另存，两个源缓冲区不变
func (s *BufferService) Concat(ctx context.Context, left, right, target string) (*bytearray.ByteArray, error) {
	l, err := s.Get(ctx, left)
	if err != nil {
		return nil, err
	}
	r, err := s.Get(ctx, right)
	if err != nil {
		return nil, err
	}
	result := l.Concat(r)
	if err := s.storeResult(ctx, target, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Append 将other追加到name，返回追加后的内容
func (s *BufferService) Append(ctx context.Context, name, other string) (*bytearray.ByteArray, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ba, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	o := ba
	if other != name {
		if o, err = s.load(ctx, other); err != nil {
			return nil, err
		}
	}
	ba.Append(o)
	if err := s.save(ctx, name, ba); err != nil {
		return nil, err
	}
	return ba, nil
}

// Render 返回repr和ascii两种文本形式
func (s *BufferService) Render(ctx context.Context, name string) (*model.RenderResponse, error) {
	ba, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return &model.RenderResponse{
		Name:  name,
		Repr:  ba.Repr(),
		ASCII: ba.ASCII(),
	}, nil
}

// Delete 删除缓冲区
func (s *BufferService) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		s.cache.Remove(name)
	}
	return s.repo.Delete(ctx, name)
}

// List 列出所有缓冲区
func (s *BufferService) List(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx)
}

// Stats 获取统计信息
func (s *BufferService) Stats(ctx context.Context) map[string]interface{} {
	hits := atomic.LoadInt64(&s.cacheHits)
	misses := atomic.LoadInt64(&s.cacheMiss)
	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	stats := map[string]interface{}{
		"cache_enabled":  s.cache != nil,
		"cache_hits":     hits,
		"cache_misses":   misses,
		"cache_hit_rate": hitRate,
	}
	if s.cache != nil {
		stats["cache_entries"] = s.cache.Len()
		stats["cache_bytes"] = s.cache.Bytes()
	}

	repoStats, err := s.repo.Stats(ctx)
	if err != nil {
		logrus.Warnf("Failed to get repository stats: %v", err)
		stats["repository_error"] = err.Error()
	} else {
		stats["repository"] = repoStats
	}
	return stats
}

// storeResult target非空时保存结果
func (s *BufferService) storeResult(ctx context.Context, target string, ba *bytearray.ByteArray) error {
	if target == "" {
		return nil
	}
	return s.Put(ctx, target, ba)
}

// save 写入仓库并使热缓存失效，调用方需持有s.mu
func (s *BufferService) save(ctx context.Context, name string, ba *bytearray.ByteArray) error {
	if err := s.repo.Save(ctx, name, ba); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Remove(name)
	}
	return nil
}

// validateName 校验缓冲区名称
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return model.ErrInvalidParameter("buffer name is required")
	}
	if strings.ContainsAny(name, "/\\") {
		return model.ErrInvalidParameter("buffer name must not contain slashes: " + name)
	}
	return nil
}
