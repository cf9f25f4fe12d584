package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/dbtrader/pkg/logger"
)

// Handler 关闭处理函数
type Handler func(ctx context.Context)

type namedHandler struct {
	name string
	fn   Handler
}

// Manager 优雅关闭管理器。回调按注册的逆序串行执行（后打开的资源先关闭）。
type Manager struct {
	callbacks []namedHandler
	mu        sync.Mutex
	once      sync.Once
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, namedHandler{name: name, fn: handler})
}

// Shutdown 执行所有关闭回调（阻塞调用，只执行一次）
// ctx 应该是一个带超时的 context，超时后跳过剩余回调
func (m *Manager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		m.mu.Lock()
		callbacks := make([]namedHandler, len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		if len(callbacks) == 0 {
			return
		}
		logger.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))

		for i := len(callbacks) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				logger.Warnf("关闭超时: %v，跳过剩余 %d 个回调", ctx.Err(), i+1)
				return
			default:
			}
			cb := callbacks[i]
			cb.fn(ctx)
			logger.Debugf("关闭回调完成: %s", cb.name)
		}
		logger.Info("所有关闭回调已完成")
	})
}
