package lru

import (
	"container/list"
	"sync"
	"time"
)

// Cache LRU缓存结构
type Cache struct {
	mu        sync.RWMutex
	maxBytes  int64
	usedBytes int64
	ttl       int64 // 条目存活时间（秒），0表示不过期
	ll        *list.List
	cache     map[string]*list.Element
	OnEvicted func(key string, value Value)
}

// Entry 缓存条目
type Entry struct {
	Key        string
	Value      Value
	CreateAt   int64
	ExpireTime int64 // 过期时间（秒）
}

// Expired 判断条目在now时刻是否过期
func (e *Entry) Expired(now int64) bool {
	return e.ExpireTime > 0 && now > e.CreateAt+e.ExpireTime
}

// Value 缓存值接口
type Value interface {
	Len() int
}

// NewCache 创建LRU缓存
// maxBytes为0表示不限制容量，ttl为0表示不过期
func NewCache(maxBytes int64, ttl time.Duration, onEvicted func(string, Value)) *Cache {
	return &Cache{
		maxBytes:  maxBytes,
		ttl:       int64(ttl / time.Second),
		ll:        list.New(),
		cache:     make(map[string]*list.Element),
		OnEvicted: onEvicted,
	}
}

// Get 获取缓存值
func (c *Cache) Get(key string) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.cache[key]; ok {
		entry := ele.Value.(*Entry)
		// 检查是否过期
		if entry.Expired(time.Now().Unix()) {
			return nil, false
		}
		c.ll.MoveToFront(ele)
		return entry.Value, true
	}
	return nil, false
}

// Add 添加缓存值
func (c *Cache) Add(key string, value Value) {
	c.AddEntry(&Entry{
		Key:        key,
		Value:      value,
		CreateAt:   time.Now().Unix(),
		ExpireTime: c.ttl,
	})
}

// AddEntry 按给定的创建时间和过期时间添加条目，快照恢复时使用
func (c *Cache) AddEntry(entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.cache[entry.Key]; ok {
		// 更新现有条目
		c.ll.MoveToFront(ele)
		old := ele.Value.(*Entry)
		oldSize := int64(len(old.Key)) + int64(old.Value.Len())
		old.Value = entry.Value
		old.CreateAt = entry.CreateAt
		old.ExpireTime = entry.ExpireTime
		c.usedBytes += int64(len(entry.Key)) + int64(entry.Value.Len()) - oldSize
	} else {
		// 添加新条目
		e := &Entry{
			Key:        entry.Key,
			Value:      entry.Value,
			CreateAt:   entry.CreateAt,
			ExpireTime: entry.ExpireTime,
		}
		c.cache[entry.Key] = c.ll.PushFront(e)
		c.usedBytes += int64(len(entry.Key)) + int64(entry.Value.Len())
	}

	// 清理过期数据
	c.removeExpired()

	// 如果超过最大容量，移除最旧的数据
	for c.maxBytes > 0 && c.usedBytes > c.maxBytes && c.ll.Len() > 0 {
		c.removeOldest()
	}
}

// Remove 移除指定缓存
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.cache[key]; ok {
		c.removeElement(ele)
		return true
	}
	return false
}

// removeOldest 移除最旧的缓存
func (c *Cache) removeOldest() {
	ele := c.ll.Back()
	if ele != nil {
		c.removeElement(ele)
	}
}

// removeElement 移除指定元素
func (c *Cache) removeElement(ele *list.Element) {
	c.ll.Remove(ele)
	entry := ele.Value.(*Entry)
	delete(c.cache, entry.Key)
	c.usedBytes -= int64(len(entry.Key)) + int64(entry.Value.Len())

	if c.OnEvicted != nil {
		c.OnEvicted(entry.Key, entry.Value)
	}
}

// removeExpired 移除过期数据
// 只扫描链表尾部连续过期的条目
func (c *Cache) removeExpired() {
	now := time.Now().Unix()
	for ele := c.ll.Back(); ele != nil; {
		entry := ele.Value.(*Entry)
		if !entry.Expired(now) {
			break
		}
		prev := ele.Prev()
		c.removeElement(ele)
		ele = prev
	}
}

// Len 返回缓存条目数量
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ll.Len()
}

// Bytes 返回已使用的字节数
func (c *Cache) Bytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.usedBytes
}

// Clear 清空缓存
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.cache = make(map[string]*list.Element)
	c.usedBytes = 0
}

// GetAll 获取所有未过期的缓存条目（只读视图），按最近使用排序
func (c *Cache) GetAll() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now().Unix()
	entries := make([]*Entry, 0, c.ll.Len())
	for ele := c.ll.Front(); ele != nil; ele = ele.Next() {
		entry := ele.Value.(*Entry)
		if entry.Expired(now) {
			continue
		}
		entries = append(entries, &Entry{
			Key:        entry.Key,
			Value:      entry.Value,
			CreateAt:   entry.CreateAt,
			ExpireTime: entry.ExpireTime,
		})
	}
	return entries
}

// Keys 返回所有未过期的key
func (c *Cache) Keys() []string {
	entries := c.GetAll()
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}
	return keys
}
