// Package websocket 提供基于 gorilla/websocket 的传输端点：
// 按整数 ID 管理多个连接，每个连接维护“最新消息”槽与收发历史。
package websocket

import (
	"os"
	"time"
)

const (
	// MsgTypeLen 方向前缀长度
	MsgTypeLen = 3
	// InboundPrefix 入站消息前缀
	InboundPrefix = "<< "
	// OutboundPrefix 出站消息前缀（仅出现在历史记录中）
	OutboundPrefix = ">> "

	defaultHandshakeTimeout = 10 * time.Second
	defaultPingInterval     = 15 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultHistorySize      = 50
	defaultKeepClosed       = 4
	defaultBufferSize       = 4096
)

// Config 端点配置
type Config struct {
	HandshakeTimeout time.Duration
	PingInterval     time.Duration // <= 0 时不发送心跳
	WriteTimeout     time.Duration
	ReadBufferSize   int
	WriteBufferSize  int
	HistorySize      int    // 每个连接保留的收发记录条数
	KeepClosed       int    // 新建连接时保留的已结束连接数，其余清理
	ProxyURL         string // 为空时读取 HTTPS_PROXY / HTTP_PROXY
	UserAgent        string
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout: defaultHandshakeTimeout,
		PingInterval:     defaultPingInterval,
		WriteTimeout:     defaultWriteTimeout,
		ReadBufferSize:   defaultBufferSize,
		WriteBufferSize:  defaultBufferSize,
		HistorySize:      defaultHistorySize,
		KeepClosed:       defaultKeepClosed,
		UserAgent:        "dbtrader/1.0",
	}
}

func (c *Config) withDefaults() *Config {
	out := *DefaultConfig()
	if c == nil {
		return &out
	}
	if c.HandshakeTimeout > 0 {
		out.HandshakeTimeout = c.HandshakeTimeout
	}
	out.PingInterval = c.PingInterval
	if c.WriteTimeout > 0 {
		out.WriteTimeout = c.WriteTimeout
	}
	if c.ReadBufferSize > 0 {
		out.ReadBufferSize = c.ReadBufferSize
	}
	if c.WriteBufferSize > 0 {
		out.WriteBufferSize = c.WriteBufferSize
	}
	if c.HistorySize > 0 {
		out.HistorySize = c.HistorySize
	}
	if c.KeepClosed > 0 {
		out.KeepClosed = c.KeepClosed
	}
	if c.UserAgent != "" {
		out.UserAgent = c.UserAgent
	}
	out.ProxyURL = c.ProxyURL
	if out.ProxyURL == "" {
		out.ProxyURL = proxyFromEnv()
	}
	return &out
}

func proxyFromEnv() string {
	for _, key := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
