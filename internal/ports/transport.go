package ports

import (
	"context"
	"time"
)

// NoConnection 表示尚未建立连接或连接建立失败
const NoConnection = -1

// WebSocket 关闭码
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
)

// ConnectionMetadata 连接的只读快照
type ConnectionMetadata struct {
	ID          int
	URL         string
	Status      string // Connecting / Open / Failed / Closed
	Server      string // 握手响应中的 Server 头
	ErrorReason string
	OpenedAt    time.Time
	Sent        int
	Received    int
	History     []string // 最近的收发记录（带方向前缀）
}

// Transport 传输端点：持有 WebSocket 连接及其 I/O goroutine
type Transport interface {
	// Connect 建立连接，返回连接 ID；失败时返回 NoConnection
	Connect(ctx context.Context, url string) (int, error)
	// Send 发送一条文本帧
	Send(connID int, message string) error
	// LatestMessage 读取最近一条入站消息（带方向前缀）
	LatestMessage(connID int) (string, bool)
	// Close 以给定关闭码和原因关闭连接
	Close(connID int, code int, reason string) error
	// Metadata 连接快照
	Metadata(connID int) (ConnectionMetadata, bool)
}

// MessageHandler 入站消息回调，msg 带方向前缀
type MessageHandler func(connID int, msg string)

// MessageSource 能主动推送入站消息的传输层
type MessageSource interface {
	SetMessageHandler(h MessageHandler)
}
