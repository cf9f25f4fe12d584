package shutdown

import (
	"context"
	"testing"
	"time"
)

func TestManager_ReverseOrderOnce(t *testing.T) {
	m := NewManager()
	var order []string
	for _, name := range []string{"logger", "journal", "websocket"} {
		n := name
		m.OnShutdown(n, func(context.Context) { order = append(order, n) })
	}

	m.Shutdown(context.Background())
	m.Shutdown(context.Background())

	want := []string{"websocket", "journal", "logger"}
	if len(order) != len(want) {
		t.Fatalf("回调执行 %d 次，期望 %d 次: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s，期望 %s", i, order[i], want[i])
		}
	}
}

func TestManager_SkipsAfterTimeout(t *testing.T) {
	m := NewManager()
	ran := false
	m.OnShutdown("first", func(context.Context) { ran = true })
	m.OnShutdown("slow", func(context.Context) { time.Sleep(30 * time.Millisecond) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	m.Shutdown(ctx)
	if ran {
		t.Error("超时后应跳过剩余回调")
	}
}
