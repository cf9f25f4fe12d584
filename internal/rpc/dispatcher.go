package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/pkg/cache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var dispatcherLog = logrus.WithField("component", "rpc_dispatcher")

// NotificationHandler 处理订阅推送
type NotificationHandler func(connID int, msg *Response)

// Dispatcher 按请求 ID 关联响应。
// 传输层每收到一条消息调用 HandleMessage，匹配到的等待者立即被唤醒；
// 没有等待者的响应放入 TTL 缓存，可按 ID 查询。
type Dispatcher struct {
	prefixLen int
	timeout   time.Duration

	mu      sync.Mutex
	pending map[int64]chan *Response

	results *cache.InMemoryCache[int64, *Response]

	notifyMu sync.RWMutex
	notify   NotificationHandler
}

// DispatcherConfig 配置
type DispatcherConfig struct {
	PrefixLen int           // 消息前缀长度
	Timeout   time.Duration // 单次等待超时，0 使用 DefaultTimeout
	ResultTTL time.Duration // 响应缓存时长，0 表示 5 分钟
}

// NewDispatcher 创建 Dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 5 * time.Minute
	}
	return &Dispatcher{
		prefixLen: cfg.PrefixLen,
		timeout:   cfg.Timeout,
		pending:   make(map[int64]chan *Response),
		results:   cache.NewInMemoryCache[int64, *Response](cfg.ResultTTL),
	}
}

// OnNotification 注册订阅推送回调
func (d *Dispatcher) OnNotification(h NotificationHandler) {
	d.notifyMu.Lock()
	d.notify = h
	d.notifyMu.Unlock()
}

// Expect 实现 Correlator
func (d *Dispatcher) Expect(e Expectation) Waiter {
	ch := make(chan *Response, 1)
	d.mu.Lock()
	d.pending[e.ID] = ch
	d.mu.Unlock()
	return &idWaiter{d: d, id: e.ID, ch: ch}
}

// Pending 当前等待中的请求数
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Result 查询缓存的响应
func (d *Dispatcher) Result(id int64) (*Response, bool) {
	return d.results.Get(id)
}

// Close 释放缓存
func (d *Dispatcher) Close() {
	d.results.Close()
}

// HandleMessage 传输层入站消息回调
func (d *Dispatcher) HandleMessage(connID int, msg string) {
	body, ok := StripPrefix(msg, d.prefixLen)
	if !ok {
		return
	}
	resp, err := ParseResponse(body)
	if err != nil {
		dispatcherLog.Debugf("忽略无法解析的消息 conn=%d: %v", connID, err)
		return
	}

	if resp.IsNotification() {
		d.notifyMu.RLock()
		h := d.notify
		d.notifyMu.RUnlock()
		if h != nil {
			h(connID, resp)
		}
		return
	}

	id := *resp.ID
	d.results.Set(id, resp, 0)

	d.mu.Lock()
	ch, found := d.pending[id]
	if found {
		delete(d.pending, id)
	}
	d.mu.Unlock()

	if found {
		ch <- resp
	}
}

func (d *Dispatcher) remove(id int64) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

type idWaiter struct {
	d  *Dispatcher
	id int64
	ch chan *Response
}

func (w *idWaiter) Wait(ctx context.Context) (*Response, error) {
	timer := time.NewTimer(w.d.timeout)
	defer timer.Stop()

	select {
	case resp := <-w.ch:
		if resp.Error != nil {
			return resp, resp.Error
		}
		return resp, nil
	case <-timer.C:
		w.d.remove(w.id)
		return nil, errors.Wrapf(domain.ErrTimeout, "请求 id=%d 在 %v 内未收到响应", w.id, w.d.timeout)
	case <-ctx.Done():
		w.d.remove(w.id)
		return nil, errors.Wrapf(ctx.Err(), "等待请求 id=%d 被取消", w.id)
	}
}

func (w *idWaiter) Cancel() {
	w.d.remove(w.id)
}
