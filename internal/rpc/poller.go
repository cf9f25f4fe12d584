package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var pollerLog = logrus.WithField("component", "rpc_poller")

// SlotReader 读取连接的“最新消息”槽
type SlotReader interface {
	LatestMessage(connID int) (string, bool)
}

// SlotPoller 通过轮询最新消息槽识别响应。
// 同一时刻只允许一个等待；两次轮询之间被覆盖的消息会丢失，
// 仅用于不提供消息回调的传输层。
type SlotPoller struct {
	slots     SlotReader
	interval  time.Duration
	timeout   time.Duration
	prefixLen int

	busy sync.Mutex
}

// NewSlotPoller 创建轮询关联器，interval/timeout 为 0 时使用默认值
func NewSlotPoller(slots SlotReader, prefixLen int, interval, timeout time.Duration) *SlotPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SlotPoller{
		slots:     slots,
		interval:  interval,
		timeout:   timeout,
		prefixLen: prefixLen,
	}
}

// Expect 记录发送前的槽快照
func (p *SlotPoller) Expect(e Expectation) Waiter {
	p.busy.Lock()
	last, _ := p.slots.LatestMessage(e.ConnID)
	return &slotWaiter{p: p, e: e, last: last}
}

type slotWaiter struct {
	p    *SlotPoller
	e    Expectation
	last string
	once sync.Once
}

func (w *slotWaiter) release() {
	w.once.Do(w.p.busy.Unlock)
}

func (w *slotWaiter) Cancel() {
	w.release()
}

func (w *slotWaiter) Wait(ctx context.Context) (*Response, error) {
	defer w.release()

	deadline := time.NewTimer(w.p.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(w.p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "轮询等待被取消")
		case <-deadline.C:
			return nil, errors.Wrapf(domain.ErrTimeout, "%v 内未收到包含 %s 的响应", w.p.timeout, w.e.ResultField)
		case <-ticker.C:
		}

		msg, ok := w.p.slots.LatestMessage(w.e.ConnID)
		if !ok || msg == w.last {
			continue
		}
		w.last = msg

		body, valid := StripPrefix(msg, w.p.prefixLen)
		if !valid {
			continue
		}
		resp, err := ParseResponse(body)
		if err != nil {
			pollerLog.Debugf("忽略无法解析的消息: %v", err)
			continue
		}
		if w.e.ResultField == "" {
			if resp.ID != nil && *resp.ID == w.e.ID {
				return resp, nil
			}
			continue
		}
		if _, found := resp.ResultField(w.e.ResultField); found {
			return resp, nil
		}
	}
}
