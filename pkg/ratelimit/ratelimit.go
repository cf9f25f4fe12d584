package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	GetRemaining() int
}

// TokenBucket 令牌桶速率限制器
type TokenBucket struct {
	capacity   float64   // 桶容量
	tokens     float64   // 当前令牌数
	refillRate float64   // 每秒补充的令牌数
	lastRefill time.Time // 上次补充时间
	mu         sync.Mutex
}

// NewTokenBucket 创建新的令牌桶，初始为满
func NewTokenBucket(capacity int, refillPerSecond float64) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillPerSecond,
		lastRefill: time.Now(),
	}
}

// refill 按流逝时间补充令牌
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// Allow 检查是否允许请求（允许时消耗一个令牌）
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait 等待直到允许请求或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		tb.mu.Lock()
		waitTime := time.Second
		if tb.refillRate > 0 {
			missing := 1 - tb.tokens
			waitTime = time.Duration(missing / tb.refillRate * float64(time.Second))
			if waitTime < time.Millisecond {
				waitTime = time.Millisecond
			}
		}
		tb.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// GetRemaining 获取剩余整令牌数
func (tb *TokenBucket) GetRemaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return int(tb.tokens)
}

// Category 交易所按请求类别分别计费
type Category string

const (
	// CategoryMatching 进入撮合引擎的请求（下单/改单/撤单）
	CategoryMatching Category = "matching"
	// CategoryNonMatching 其他请求（行情、持仓、订阅、认证）
	CategoryNonMatching Category = "non_matching"
)

// Limits 两类请求的桶参数
type Limits struct {
	MatchingCapacity    int
	MatchingRefill      float64
	NonMatchingCapacity int
	NonMatchingRefill   float64
}

// DefaultLimits 交易所对未分级账户的默认额度
func DefaultLimits() Limits {
	return Limits{
		MatchingCapacity:    20,
		MatchingRefill:      5,
		NonMatchingCapacity: 100,
		NonMatchingRefill:   20,
	}
}

// Manager 按类别管理令牌桶
type Manager struct {
	mu       sync.RWMutex
	limiters map[Category]RateLimiter
}

// NewManager 创建管理器；容量为 0 的类别不限流
func NewManager(l Limits) *Manager {
	m := &Manager{limiters: make(map[Category]RateLimiter)}
	if l.MatchingCapacity > 0 {
		m.limiters[CategoryMatching] = NewTokenBucket(l.MatchingCapacity, l.MatchingRefill)
	}
	if l.NonMatchingCapacity > 0 {
		m.limiters[CategoryNonMatching] = NewTokenBucket(l.NonMatchingCapacity, l.NonMatchingRefill)
	}
	return m
}

// GetLimiter 获取类别对应的限流器（可能为 nil）
func (m *Manager) GetLimiter(c Category) RateLimiter {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limiters[c]
}

// Wait 等待该类别可用；未配置的类别直接放行
func (m *Manager) Wait(ctx context.Context, c Category) error {
	l := m.GetLimiter(c)
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}

// GetRemaining 剩余额度，未配置返回 -1
func (m *Manager) GetRemaining(c Category) int {
	l := m.GetLimiter(c)
	if l == nil {
		return -1
	}
	return l.GetRemaining()
}
