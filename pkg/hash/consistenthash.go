package hash

import (
	"hash/crc32"
	"sort"
	"strconv"
	"sync"
)

// Hash 哈希函数类型
type Hash func(data []byte) uint32

// ConsistentHash 一致性哈希环，按缓冲区名把请求分配到服务节点
type ConsistentHash struct {
	hash     Hash
	replicas int               // 虚拟节点倍数
	keys     []uint32          // 哈希环（有序）
	hashMap  map[uint32]string // 虚拟节点到真实节点的映射
	nodes    map[string]struct{}
	mu       sync.RWMutex
}

// NewConsistentHash 创建一致性哈希，fn为nil时使用crc32
func NewConsistentHash(replicas int, fn Hash) *ConsistentHash {
	if replicas <= 0 {
		replicas = 1
	}
	ch := &ConsistentHash{
		replicas: replicas,
		hash:     fn,
		hashMap:  make(map[uint32]string),
		nodes:    make(map[string]struct{}),
	}
	if ch.hash == nil {
		ch.hash = crc32.ChecksumIEEE
	}
	return ch
}

// Add 添加节点，重复添加无效果
func (ch *ConsistentHash) Add(nodes ...string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	for _, node := range nodes {
		if _, ok := ch.nodes[node]; ok || node == "" {
			continue
		}
		ch.nodes[node] = struct{}{}
		ch.place(node)
	}
	sort.Slice(ch.keys, func(i, j int) bool { return ch.keys[i] < ch.keys[j] })
}

// place 放置节点的虚拟节点，环上每个哈希值只出现一次，
// 冲突时归名称较小的节点，结果与添加顺序无关
func (ch *ConsistentHash) place(node string) {
	for i := 0; i < ch.replicas; i++ {
		h := ch.hash([]byte(strconv.Itoa(i) + node))
		owner, ok := ch.hashMap[h]
		if !ok {
			ch.keys = append(ch.keys, h)
			ch.hashMap[h] = node
			continue
		}
		if node < owner {
			ch.hashMap[h] = node
		}
	}
}

// Remove 移除节点，剩余节点重建哈希环，被冲突占用的虚拟节点随之恢复
func (ch *ConsistentHash) Remove(node string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if _, ok := ch.nodes[node]; !ok {
		return
	}
	delete(ch.nodes, node)

	ch.keys = ch.keys[:0]
	ch.hashMap = make(map[uint32]string, len(ch.nodes)*ch.replicas)
	for n := range ch.nodes {
		ch.place(n)
	}
	sort.Slice(ch.keys, func(i, j int) bool { return ch.keys[i] < ch.keys[j] })
}

// Get 获取key对应的节点，环为空时返回空串
func (ch *ConsistentHash) Get(key string) string {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	if len(ch.keys) == 0 {
		return ""
	}

	h := ch.hash([]byte(key))
	// 二分查找第一个大于等于h的虚拟节点，越界回到环首
	idx := sort.Search(len(ch.keys), func(i int) bool {
		return ch.keys[i] >= h
	})
	return ch.hashMap[ch.keys[idx%len(ch.keys)]]
}

// GetNodes 获取所有节点（有序）
func (ch *ConsistentHash) GetNodes() []string {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	result := make([]string, 0, len(ch.nodes))
	for node := range ch.nodes {
		result = append(result, node)
	}
	sort.Strings(result)
	return result
}
