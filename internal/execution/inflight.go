package execution

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/betbot/dbtrader/internal/domain"
)

// ErrDuplicateInFlight 表示相同的订单在去重窗口内已经提交过。
// 用于防止交互式重复输入或上层重试导致的重复下单。
var ErrDuplicateInFlight = fmt.Errorf("duplicate in-flight")

// InFlightDeduper 提供“短时间窗口内的确定性去重”。
//
// 分片 map + 短 TTL，过期项在访问时惰性清理；不使用概率结构，避免误判跳过下单。
type InFlightDeduper struct {
	ttl    time.Duration
	shards []inFlightShard
}

type inFlightShard struct {
	mu sync.Mutex
	m  map[string]time.Time // key -> expiresAt
}

// NewInFlightDeduper 创建去重器，ttl <= 0 时返回 nil（nil 去重器不拦截任何请求）
func NewInFlightDeduper(ttl time.Duration, shardCount int) *InFlightDeduper {
	if ttl <= 0 {
		return nil
	}
	if shardCount <= 0 {
		shardCount = 16
	}
	shards := make([]inFlightShard, shardCount)
	for i := range shards {
		shards[i].m = make(map[string]time.Time)
	}
	return &InFlightDeduper{ttl: ttl, shards: shards}
}

// TryAcquire 尝试获取 key 的 in-flight 令牌。
// - 成功返回 nil
// - 失败返回 ErrDuplicateInFlight
func (d *InFlightDeduper) TryAcquire(key string) error {
	if d == nil || key == "" {
		return nil
	}
	now := time.Now()
	sh := d.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	for k, exp := range sh.m {
		if !exp.After(now) {
			delete(sh.m, k)
		}
	}

	if exp, ok := sh.m[key]; ok && exp.After(now) {
		return ErrDuplicateInFlight
	}
	sh.m[key] = now.Add(d.ttl)
	return nil
}

// Release 提前释放 key（发送失败时调用，允许立即重试）。
func (d *InFlightDeduper) Release(key string) {
	if d == nil || key == "" {
		return
	}
	sh := d.shard(key)
	sh.mu.Lock()
	delete(sh.m, key)
	sh.mu.Unlock()
}

func (d *InFlightDeduper) shard(key string) *inFlightShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	idx := int(h.Sum32() % uint32(len(d.shards)))
	return &d.shards[idx]
}

// OrderKey 新订单的去重 key：方向 + 所有线上字段
func OrderKey(side domain.Side, o *domain.OrderRequest) string {
	if o == nil {
		return ""
	}
	nd := func(v interface{ String() string }, valid bool) string {
		if !valid {
			return "-"
		}
		return v.String()
	}
	return strings.Join([]string{
		string(side),
		o.Instrument,
		nd(o.Amount.Decimal, o.Amount.Valid),
		nd(o.Contracts.Decimal, o.Contracts.Valid),
		string(o.Type),
		o.Label,
		nd(o.Price.Decimal, o.Price.Valid),
		string(o.TimeInForce),
		string(o.Trigger),
		nd(o.TriggerPrice.Decimal, o.TriggerPrice.Valid),
	}, "|")
}
