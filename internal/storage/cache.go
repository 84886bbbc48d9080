package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"cv-assistant-go/internal/types"
)

// ErrNotFound 解析结果不存在或已过期
var ErrNotFound = errors.New("parsed resume not found")

// ResumeCache 按 parseID 暂存解析结果，供后续问答引用
type ResumeCache interface {
	Save(ctx context.Context, parseID string, parsed *types.ParsedResume) error
	Load(ctx context.Context, parseID string) (*types.ParsedResume, error)
}

// NewParseID 生成按时间有序的 UUIDv7
func NewParseID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type memoryEntry struct {
	parsed    types.ParsedResume
	expiresAt time.Time
}

// MemoryResumeCache 进程内缓存，未配置 Redis 时使用
// 超过容量时淘汰最早过期的条目
type MemoryResumeCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemoryResumeCache ttl 或 maxEntries 非正时不做相应限制
func NewMemoryResumeCache(ttl time.Duration, maxEntries int) *MemoryResumeCache {
	return &MemoryResumeCache{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Save 保存副本，调用方之后修改原记录不影响缓存
func (c *MemoryResumeCache) Save(_ context.Context, parseID string, parsed *types.ParsedResume) error {
	if parseID == "" || parsed == nil {
		return errors.New("parseID and parsed resume are required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictExpiredLocked(now)
	if _, exists := c.entries[parseID]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	entry := memoryEntry{parsed: cloneParsed(parsed)}
	if c.ttl > 0 {
		entry.expiresAt = now.Add(c.ttl)
	}
	c.entries[parseID] = entry
	return nil
}

// Load 返回副本
func (c *MemoryResumeCache) Load(_ context.Context, parseID string) (*types.ParsedResume, error) {
	c.mu.RLock()
	entry, ok := c.entries[parseID]
	c.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt)) {
		return nil, ErrNotFound
	}
	parsed := cloneParsed(&entry.parsed)
	return &parsed, nil
}

// Len 当前条目数（含未清理的过期条目）
func (c *MemoryResumeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryResumeCache) evictExpiredLocked(now time.Time) {
	for id, e := range c.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}

func (c *MemoryResumeCache) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range c.entries {
		if oldestID == "" || e.expiresAt.Before(oldest) {
			oldestID, oldest = id, e.expiresAt
		}
	}
	delete(c.entries, oldestID)
}

func cloneParsed(p *types.ParsedResume) types.ParsedResume {
	out := *p
	out.Name = cloneStr(p.Name)
	out.Email = cloneStr(p.Email)
	out.Phone = cloneStr(p.Phone)
	out.Summary = cloneStr(p.Summary)
	out.Skills = cloneList(p.Skills)
	out.Jobs = cloneList(p.Jobs)
	out.Education = cloneList(p.Education)
	out.Certifications = cloneList(p.Certifications)
	return out
}

func cloneList(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
