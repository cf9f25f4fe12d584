// Package benchmark 提供按操作计时的 Timer。
// Timer 通过 context 显式传递给被测操作，不存在进程级的全局计时状态。
package benchmark

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var benchLog = logrus.WithField("component", "benchmark")

// Mark 计时点
type Mark struct {
	Label   string
	Elapsed time.Duration // 距离 Start 的时长
}

// Timer 单个操作的计时器
type Timer struct {
	Name  string
	RunID string

	mu      sync.Mutex
	start   time.Time
	marks   []Mark
	stopped time.Duration
	now     func() time.Time
}

// Start 开始计时
func Start(name string) *Timer {
	return newTimer(name, time.Now)
}

func newTimer(name string, now func() time.Time) *Timer {
	return &Timer{
		Name:  name,
		RunID: uuid.NewString()[:8],
		start: now(),
		now:   now,
	}
}

// Mark 记录一个计时点；nil Timer 上调用无效果
func (t *Timer) Mark(label string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.marks = append(t.marks, Mark{Label: label, Elapsed: t.now().Sub(t.start)})
}

// Marks 计时点副本
func (t *Timer) Marks() []Mark {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Mark, len(t.marks))
	copy(out, t.marks)
	return out
}

// Stop 结束计时并写日志，重复调用返回第一次的结果
func (t *Timer) Stop() time.Duration {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	if t.stopped == 0 {
		t.stopped = t.now().Sub(t.start)
		if t.stopped == 0 {
			t.stopped = time.Nanosecond
		}
	}
	elapsed := t.stopped
	summary := t.summaryLocked()
	t.mu.Unlock()

	benchLog.WithField("run", t.RunID).Infof("⏱ %s 耗时 %v %s", t.Name, elapsed, summary)
	return elapsed
}

func (t *Timer) summaryLocked() string {
	if len(t.marks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(t.marks))
	for _, m := range t.marks {
		parts = append(parts, fmt.Sprintf("%s=%v", m.Label, m.Elapsed))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

type ctxKey struct{}

// NewContext 将 Timer 绑定到 ctx
func NewContext(ctx context.Context, t *Timer) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext 取出 ctx 中的 Timer，没有时返回 nil（nil Timer 的方法都是安全的）
func FromContext(ctx context.Context) *Timer {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(ctxKey{}).(*Timer)
	return t
}
