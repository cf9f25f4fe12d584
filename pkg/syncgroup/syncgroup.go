package syncgroup

import (
	"sync"
)

// SyncGroup 是 sync.WaitGroup 的包装器，自动管理 Add() 和 Done()
// 用于连接级别的读/心跳 goroutine：Go 启动，Wait 等待全部退出
type SyncGroup struct {
	wg sync.WaitGroup

	mu      sync.Mutex
	running int
}

// NewSyncGroup 创建新的 SyncGroup
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// Go 启动一个 goroutine
func (w *SyncGroup) Go(fn func()) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.running++
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer func() {
			w.mu.Lock()
			w.running--
			w.mu.Unlock()
			w.wg.Done()
		}()
		fn()
	}()
}

// Running 当前运行中的 goroutine 数量
func (w *SyncGroup) Running() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Wait 等待所有 goroutine 完成
func (w *SyncGroup) Wait() {
	w.wg.Wait()
}
