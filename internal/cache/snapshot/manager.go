package snapshot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ByteArrayGo/internal/cache/lru"
	"ByteArrayGo/pkg/bytearray"
	"ByteArrayGo/pkg/json"

	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"
)

// Record 快照中的一条缓冲区记录
type Record struct {
	Key        string               `json:"key"`
	Data       *bytearray.ByteArray `json:"data"`
	CreateAt   int64                `json:"createAt"`
	ExpireTime int64                `json:"expireTime"`
}

// Manager 快照管理器
type Manager struct {
	cache        *lru.Cache
	snapshotPath string
	mu           sync.Mutex
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewManager 创建快照管理器
func NewManager(cache *lru.Cache, snapshotPath string) *Manager {
	return &Manager{
		cache:        cache,
		snapshotPath: snapshotPath,
		stopChan:     make(chan struct{}),
	}
}

// Save 保存快照
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 确保目录存在
	dir := filepath.Dir(m.snapshotPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	entries := m.cache.GetAll()
	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		ba, ok := entry.Value.(*bytearray.ByteArray)
		if !ok {
			logrus.Warnf("[Snapshot Manager] Skip non-buffer entry: %s (%T)", entry.Key, entry.Value)
			continue
		}
		records = append(records, &Record{
			Key:        entry.Key,
			Data:       ba,
			CreateAt:   entry.CreateAt,
			ExpireTime: entry.ExpireTime,
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot data: %w", err)
	}

	// 原子替换，避免读到写了一半的快照
	if err := atomic.WriteFile(m.snapshotPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	logrus.Infof("[Snapshot Manager] Saved snapshot successfully, entries count: %d", len(records))
	return nil
}

// Load 加载快照，跳过已过期的记录，返回恢复的条目数
func (m *Manager) Load() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.snapshotPath)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("snapshot file not found: %s", m.snapshotPath)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("failed to unmarshal snapshot data: %w", err)
	}

	now := time.Now().Unix()
	count := 0
	// 快照按最近使用排序，倒序写回以保持LRU顺序
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		if record == nil || record.Data == nil {
			continue
		}
		entry := &lru.Entry{
			Key:        record.Key,
			Value:      record.Data,
			CreateAt:   record.CreateAt,
			ExpireTime: record.ExpireTime,
		}
		if entry.Expired(now) {
			continue
		}
		m.cache.AddEntry(entry)
		count++
	}

	logrus.Infof("[Snapshot Manager] Loaded snapshot successfully, entries count: %d", count)
	return count, nil
}

// AutoSnapshot 自动保存快照
func (m *Manager) AutoSnapshot(interval time.Duration) {
	if interval <= 0 {
		logrus.Info("[Snapshot Manager] Auto snapshot disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := m.Save(); err != nil {
					logrus.Errorf("[Snapshot Manager] Auto save snapshot failed: %v", err)
				}
			case <-m.stopChan:
				logrus.Info("[Snapshot Manager] Auto snapshot stopped")
				return
			}
		}
	}()
}

// Stop 停止自动快照并最后保存一次
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if err := m.Save(); err != nil {
			logrus.Errorf("[Snapshot Manager] Final save snapshot failed: %v", err)
		}
	})
}

// Info 获取快照信息
func (m *Manager) Info() map[string]interface{} {
	info := make(map[string]interface{})

	if stat, err := os.Stat(m.snapshotPath); err == nil {
		info["path"] = m.snapshotPath
		info["size"] = stat.Size()
		info["modTime"] = stat.ModTime().Format("2006-01-02 15:04:05")
	} else {
		info["error"] = err.Error()
	}

	info["cacheEntries"] = m.cache.Len()

	return info
}
