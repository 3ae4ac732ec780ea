package inference

import (
	"sync"

	"DanmakuAnalysis/internal/model"
)

// EvictionPolicy 选出溢出时要淘汰的 n 个键。order 为插入顺序。
// 两种实现都是近似策略，不是 LRU：热点条目同样可能被淘汰
type EvictionPolicy interface {
	Name() string
	Select(order []string, entries map[string]model.SentimentLabel, n int) []string
}

// FIFOEviction 淘汰最早插入的 n 个
type FIFOEviction struct{}

func (FIFOEviction) Name() string { return "fifo" }

func (FIFOEviction) Select(order []string, _ map[string]model.SentimentLabel, n int) []string {
	n = min(n, len(order))
	return append([]string(nil), order[:n]...)
}

// RandomEviction 按 map 遍历顺序淘汰任意 n 个
type RandomEviction struct{}

func (RandomEviction) Name() string { return "random" }

func (RandomEviction) Select(_ []string, entries map[string]model.SentimentLabel, n int) []string {
	victims := make([]string, 0, n)
	for k := range entries {
		if len(victims) == n {
			break
		}
		victims = append(victims, k)
	}
	return victims
}

// PolicyByName 配置名 → 淘汰策略，未知名称回退到 fifo
func PolicyByName(name string) EvictionPolicy {
	if name == "random" {
		return RandomEviction{}
	}
	return FIFOEviction{}
}

// LabelCache 文本→标签的有界缓存。容量满时一次淘汰 capacity*ratio 条（至少1条），
// 读、写、淘汰在同一把锁内完成
type LabelCache struct {
	mu         sync.Mutex
	entries    map[string]model.SentimentLabel
	order      []string
	capacity   int
	evictCount int
	policy     EvictionPolicy
}

// NewLabelCache 创建缓存，capacity <= 0 视为 1
func NewLabelCache(capacity int, ratio float64, policy EvictionPolicy) *LabelCache {
	if capacity <= 0 {
		capacity = 1
	}
	if ratio <= 0 || ratio > 1 {
		ratio = 0.1
	}
	if policy == nil {
		policy = FIFOEviction{}
	}
	return &LabelCache{
		entries:    make(map[string]model.SentimentLabel, capacity),
		capacity:   capacity,
		evictCount: max(1, int(float64(capacity)*ratio)),
		policy:     policy,
	}
}

// Lookup 批量查询，返回命中的下标→标签
func (c *LabelCache) Lookup(texts []string) map[int]model.SentimentLabel {
	c.mu.Lock()
	defer c.mu.Unlock()
	hits := make(map[int]model.SentimentLabel)
	for i, t := range texts {
		if l, ok := c.entries[t]; ok {
			hits[i] = l
		}
	}
	return hits
}

// Get 单条查询
func (c *LabelCache) Get(text string) (model.SentimentLabel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.entries[text]
	return l, ok
}

// PutAll 写入一批结果，texts 与 labels 等长
func (c *LabelCache) PutAll(texts []string, labels []model.SentimentLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range texts {
		if _, ok := c.entries[t]; ok {
			c.entries[t] = labels[i]
			continue
		}
		if len(c.entries) >= c.capacity {
			c.evictLocked()
		}
		c.entries[t] = labels[i]
		c.order = append(c.order, t)
	}
}

func (c *LabelCache) evictLocked() {
	victims := c.policy.Select(c.order, c.entries, c.evictCount)
	if len(victims) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(victims))
	for _, k := range victims {
		delete(c.entries, k)
		gone[k] = struct{}{}
	}
	kept := c.order[:0]
	for _, k := range c.order {
		if _, ok := gone[k]; !ok {
			kept = append(kept, k)
		}
	}
	c.order = kept
}

// Len 当前条目数
func (c *LabelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity 容量上限
func (c *LabelCache) Capacity() int { return c.capacity }

// Clear 清空缓存
func (c *LabelCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]model.SentimentLabel, c.capacity)
	c.order = nil
}
