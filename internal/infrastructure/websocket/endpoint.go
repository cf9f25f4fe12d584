package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/betbot/dbtrader/internal/ports"
	"github.com/betbot/dbtrader/pkg/sigchan"
	"github.com/betbot/dbtrader/pkg/syncgroup"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var wsLog = logrus.WithField("component", "ws_endpoint")

// 连接状态
const (
	StatusOpen   = "Open"
	StatusFailed = "Failed"
	StatusClosed = "Closed"
)

// Endpoint 传输端点，实现 ports.Transport 与 ports.MessageSource
type Endpoint struct {
	cfg *Config

	mu     sync.RWMutex
	conns  map[int]*connection
	nextID int

	handlerMu sync.RWMutex
	handler   ports.MessageHandler
}

var (
	_ ports.Transport     = (*Endpoint)(nil)
	_ ports.MessageSource = (*Endpoint)(nil)
)

type connection struct {
	id   int
	url  string
	conn *websocket.Conn

	writeMu sync.Mutex

	mu        sync.RWMutex
	status    string
	server    string
	errReason string
	openedAt  time.Time
	latest    string
	history   []string
	sent      int
	received  int

	arrivals *sigchan.Chan
	stopCh   chan struct{}
	stopOnce sync.Once
	loops    *syncgroup.SyncGroup
}

// NewEndpoint 创建端点，cfg 为 nil 时使用默认配置
func NewEndpoint(cfg *Config) *Endpoint {
	return &Endpoint{
		cfg:   cfg.withDefaults(),
		conns: make(map[int]*connection),
	}
}

// SetMessageHandler 注册入站消息回调（在读 goroutine 中调用，不能阻塞）
func (e *Endpoint) SetMessageHandler(h ports.MessageHandler) {
	e.handlerMu.Lock()
	e.handler = h
	e.handlerMu.Unlock()
}

// Connect 建立连接并启动读/心跳 goroutine
func (e *Endpoint) Connect(ctx context.Context, rawURL string) (int, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:   e.cfg.ReadBufferSize,
		WriteBufferSize:  e.cfg.WriteBufferSize,
		HandshakeTimeout: e.cfg.HandshakeTimeout,
	}
	if e.cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(e.cfg.ProxyURL)
		if err != nil {
			return ports.NoConnection, errors.Wrap(err, "无效的代理 URL")
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
		wsLog.Infof("使用代理: %s", proxyURL.Host)
	}

	headers := make(http.Header)
	headers.Set("User-Agent", e.cfg.UserAgent)

	conn, resp, err := dialer.DialContext(ctx, rawURL, headers)
	if err != nil {
		return ports.NoConnection, errors.Wrapf(err, "连接 %s 失败", rawURL)
	}

	c := &connection{
		url:      rawURL,
		conn:     conn,
		status:   StatusOpen,
		openedAt: time.Now(),
		arrivals: sigchan.New(1),
		stopCh:   make(chan struct{}),
		loops:    syncgroup.NewSyncGroup(),
	}
	if resp != nil {
		c.server = resp.Header.Get("Server")
	}

	e.mu.Lock()
	e.pruneClosedLocked()
	c.id = e.nextID
	e.nextID++
	e.conns[c.id] = c
	e.mu.Unlock()

	c.loops.Go(func() { e.readLoop(c) })
	if e.cfg.PingInterval > 0 {
		c.loops.Go(func() { e.pingLoop(c) })
	}

	wsLog.Infof("🔗 连接已建立 id=%d url=%s server=%q", c.id, rawURL, c.server)
	return c.id, nil
}

func (e *Endpoint) get(id int) (*connection, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.conns[id]
	return c, ok
}

// Send 发送文本帧
func (e *Endpoint) Send(id int, message string) error {
	c, ok := e.get(id)
	if !ok {
		return errors.Errorf("连接 %d 不存在", id)
	}
	c.mu.RLock()
	status := c.status
	c.mu.RUnlock()
	if status != StatusOpen {
		return errors.Errorf("连接 %d 状态为 %s", id, status)
	}

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(e.cfg.WriteTimeout))
	err := c.conn.WriteMessage(websocket.TextMessage, []byte(message))
	c.writeMu.Unlock()
	if err != nil {
		return errors.Wrapf(err, "连接 %d 写入失败", id)
	}

	c.mu.Lock()
	c.sent++
	c.appendHistory(e.cfg.HistorySize, OutboundPrefix+message)
	c.mu.Unlock()
	return nil
}

// LatestMessage 最近一条入站消息（带 InboundPrefix）
func (e *Endpoint) LatestMessage(id int) (string, bool) {
	c, ok := e.get(id)
	if !ok {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, true
}

// WaitMessage 等待下一条入站消息或超时，返回是否收到
func (e *Endpoint) WaitMessage(ctx context.Context, id int, timeout time.Duration) bool {
	c, ok := e.get(id)
	if !ok {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.arrivals.C():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	case <-c.stopCh:
		return false
	}
}

// Close 发送关闭帧并等待读/心跳 goroutine 退出
func (e *Endpoint) Close(id int, code int, reason string) error {
	c, ok := e.get(id)
	if !ok {
		return errors.Errorf("连接 %d 不存在", id)
	}

	var closeErr error
	c.stopOnce.Do(func() {
		close(c.stopCh)

		c.writeMu.Lock()
		deadline := time.Now().Add(e.cfg.WriteTimeout)
		closeErr = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		c.writeMu.Unlock()
		_ = c.conn.Close()

		c.mu.Lock()
		if c.status == StatusOpen {
			c.status = StatusClosed
		}
		if c.errReason == "" {
			c.errReason = fmt.Sprintf("closed by client: %d %s", code, reason)
		}
		c.mu.Unlock()
	})
	c.loops.Wait()

	if closeErr != nil && !errors.Is(closeErr, websocket.ErrCloseSent) {
		wsLog.Debugf("连接 %d 发送关闭帧失败: %v", id, closeErr)
	}
	wsLog.Infof("连接已关闭 id=%d code=%d reason=%q", id, code, reason)
	return nil
}

// CloseAll 关闭所有仍打开的连接
func (e *Endpoint) CloseAll(reason string) {
	e.mu.RLock()
	ids := make([]int, 0, len(e.conns))
	for id, c := range e.conns {
		c.mu.RLock()
		open := c.status == StatusOpen
		c.mu.RUnlock()
		if open {
			ids = append(ids, id)
		}
	}
	e.mu.RUnlock()

	for _, id := range ids {
		_ = e.Close(id, websocket.CloseNormalClosure, reason)
	}
}

// Metadata 连接快照
func (e *Endpoint) Metadata(id int) (ports.ConnectionMetadata, bool) {
	c, ok := e.get(id)
	if !ok {
		return ports.ConnectionMetadata{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	history := make([]string, len(c.history))
	copy(history, c.history)
	return ports.ConnectionMetadata{
		ID:          c.id,
		URL:         c.url,
		Status:      c.status,
		Server:      c.server,
		ErrorReason: c.errReason,
		OpenedAt:    c.openedAt,
		Sent:        c.sent,
		Received:    c.received,
		History:     history,
	}, true
}

// pruneClosedLocked 只保留最近 KeepClosed 个已结束的连接（供 show 查看），调用方持有 e.mu
func (e *Endpoint) pruneClosedLocked() {
	var ended []int
	for id, c := range e.conns {
		c.mu.RLock()
		open := c.status == StatusOpen
		c.mu.RUnlock()
		if !open {
			ended = append(ended, id)
		}
	}
	if len(ended) <= e.cfg.KeepClosed {
		return
	}
	sort.Ints(ended)
	for _, id := range ended[:len(ended)-e.cfg.KeepClosed] {
		delete(e.conns, id)
	}
	wsLog.Debugf("清理已结束连接 %d 个", len(ended)-e.cfg.KeepClosed)
}

func (c *connection) appendHistory(limit int, entry string) {
	c.history = append(c.history, entry)
	if over := len(c.history) - limit; over > 0 {
		c.history = append(c.history[:0], c.history[over:]...)
	}
}

func (c *connection) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (e *Endpoint) readLoop(c *connection) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.stopped() {
				return
			}
			c.mu.Lock()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.status = StatusClosed
			} else {
				c.status = StatusFailed
			}
			c.errReason = err.Error()
			c.mu.Unlock()
			wsLog.Warnf("连接 %d 读取结束: %v", c.id, err)
			c.stopOnce.Do(func() {
				close(c.stopCh)
				_ = c.conn.Close()
			})
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		msg := InboundPrefix + string(data)
		c.mu.Lock()
		c.latest = msg
		c.received++
		c.appendHistory(e.cfg.HistorySize, msg)
		c.mu.Unlock()

		// 先交给回调（分发器写入结果缓存），再唤醒 WaitMessage 的等待者
		e.handlerMu.RLock()
		h := e.handler
		e.handlerMu.RUnlock()
		if h != nil {
			h(c.id, msg)
		}
		c.arrivals.Emit()
	}
}

func (e *Endpoint) pingLoop(c *connection) {
	ticker := time.NewTicker(e.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(e.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				wsLog.Debugf("连接 %d 心跳失败: %v", c.id, err)
				return
			}
		}
	}
}
