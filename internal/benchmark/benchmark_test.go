package benchmark

import (
	"context"
	"testing"
	"time"
)

func TestTimer_MarksAndStop(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	tm := newTimer("auth", clock)

	now = now.Add(10 * time.Millisecond)
	tm.Mark("sent")
	now = now.Add(30 * time.Millisecond)
	tm.Mark("response")

	marks := tm.Marks()
	if len(marks) != 2 {
		t.Fatalf("期望 2 个计时点，得到 %d", len(marks))
	}
	if marks[0].Label != "sent" || marks[0].Elapsed != 10*time.Millisecond {
		t.Errorf("第一个计时点不符: %+v", marks[0])
	}
	if marks[1].Elapsed != 40*time.Millisecond {
		t.Errorf("第二个计时点不符: %+v", marks[1])
	}

	now = now.Add(5 * time.Millisecond)
	if got := tm.Stop(); got != 45*time.Millisecond {
		t.Errorf("Stop() = %v，期望 45ms", got)
	}
	now = now.Add(time.Second)
	if got := tm.Stop(); got != 45*time.Millisecond {
		t.Errorf("重复 Stop() 应返回第一次的结果，得到 %v", got)
	}
}

func TestTimer_NilSafe(t *testing.T) {
	var tm *Timer
	tm.Mark("x")
	if tm.Marks() != nil {
		t.Error("nil Timer 的 Marks 应为 nil")
	}
	if tm.Stop() != 0 {
		t.Error("nil Timer 的 Stop 应返回 0")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("空 ctx 不应包含 Timer")
	}
	tm := Start("order")
	ctx := NewContext(context.Background(), tm)
	if FromContext(ctx) != tm {
		t.Fatal("FromContext 应返回绑定的 Timer")
	}
	FromContext(ctx).Mark("sent")
	if len(tm.Marks()) != 1 {
		t.Error("通过 ctx 记录的计时点应写入同一个 Timer")
	}
	if len(tm.RunID) != 8 {
		t.Errorf("RunID 长度应为 8，得到 %q", tm.RunID)
	}
}
