package rpc

import (
	"context"
	"time"
)

const (
	// DefaultPollInterval 轮询模式下两次检查之间的间隔
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultTimeout 等待响应的总时长
	DefaultTimeout = 5000 * time.Millisecond
)

// Expectation 描述一次等待：对哪个连接上的哪个请求
type Expectation struct {
	ConnID int
	ID     int64
	// ResultField 轮询模式下通过 result 中是否存在该字段识别响应；按 ID 匹配时不使用
	ResultField string
}

// Waiter 一次登记后的等待句柄
type Waiter interface {
	// Wait 阻塞直到收到响应、超时或 ctx 取消
	Wait(ctx context.Context) (*Response, error)
	// Cancel 放弃等待（例如请求发送失败）
	Cancel()
}

// Correlator 将异步到达的响应与请求关联。
// 必须在发送请求之前调用 Expect，避免响应先于登记到达。
type Correlator interface {
	Expect(e Expectation) Waiter
}
