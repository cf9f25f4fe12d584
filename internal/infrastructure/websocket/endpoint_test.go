package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/betbot/dbtrader/internal/ports"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEchoServer 原样回显文本帧；收到 "bye" 时以 1001 关闭连接
func newEchoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, http.Header{"Server": {"fake-deribit"}})
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "bye" {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server bye"), time.Now().Add(time.Second))
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig() *Config {
	return &Config{HandshakeTimeout: 2 * time.Second, PingInterval: 20 * time.Millisecond, HistorySize: 3}
}

func TestEndpoint_SendReceive(t *testing.T) {
	_, url := newEchoServer(t)
	e := NewEndpoint(testConfig())

	var mu sync.Mutex
	var got []string
	e.SetMessageHandler(func(connID int, msg string) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})

	id, err := e.Connect(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	latest, ok := e.LatestMessage(id)
	require.True(t, ok)
	assert.Empty(t, latest, "尚未收到消息")

	require.NoError(t, e.Send(id, `{"jsonrpc":"2.0","id":1,"method":"public/get_time","params":{}}`))
	require.True(t, e.WaitMessage(context.Background(), id, 2*time.Second))

	latest, _ = e.LatestMessage(id)
	assert.Equal(t, InboundPrefix+`{"jsonrpc":"2.0","id":1,"method":"public/get_time","params":{}}`, latest)
	assert.Len(t, latest, MsgTypeLen+len(`{"jsonrpc":"2.0","id":1,"method":"public/get_time","params":{}}`))

	mu.Lock()
	assert.Equal(t, []string{latest}, got)
	mu.Unlock()

	md, ok := e.Metadata(id)
	require.True(t, ok)
	assert.Equal(t, StatusOpen, md.Status)
	assert.Equal(t, "fake-deribit", md.Server)
	assert.Equal(t, 1, md.Sent)
	assert.Equal(t, 1, md.Received)
	require.Len(t, md.History, 2)
	assert.True(t, strings.HasPrefix(md.History[0], OutboundPrefix))
	assert.True(t, strings.HasPrefix(md.History[1], InboundPrefix))

	require.NoError(t, e.Close(id, ports.CloseNormal, "done"))
	md, _ = e.Metadata(id)
	assert.Equal(t, StatusClosed, md.Status)
	assert.Contains(t, md.ErrorReason, "done")
	assert.Error(t, e.Send(id, "x"), "关闭后不能发送")
	assert.False(t, e.WaitMessage(context.Background(), id, 10*time.Millisecond))
}

func TestEndpoint_HistoryIsBounded(t *testing.T) {
	_, url := newEchoServer(t)
	e := NewEndpoint(testConfig())
	id, err := e.Connect(context.Background(), url)
	require.NoError(t, err)
	defer e.CloseAll("test")

	for _, m := range []string{"a", "b", "c"} {
		require.NoError(t, e.Send(id, m))
		require.True(t, e.WaitMessage(context.Background(), id, 2*time.Second))
	}
	md, _ := e.Metadata(id)
	assert.Len(t, md.History, 3)
	assert.Equal(t, InboundPrefix+"c", md.History[2])
}

func TestEndpoint_ServerClose(t *testing.T) {
	_, url := newEchoServer(t)
	e := NewEndpoint(testConfig())
	id, err := e.Connect(context.Background(), url)
	require.NoError(t, err)

	require.NoError(t, e.Send(id, "bye"))
	require.Eventually(t, func() bool {
		md, _ := e.Metadata(id)
		return md.Status == StatusClosed
	}, 2*time.Second, 10*time.Millisecond)

	// 服务端关闭后客户端 Close 仍然安全
	assert.NoError(t, e.Close(id, ports.CloseNormal, "late"))
}

func TestEndpoint_ConnectFailure(t *testing.T) {
	e := NewEndpoint(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	id, err := e.Connect(ctx, "ws://127.0.0.1:1/ws")
	assert.Error(t, err)
	assert.Equal(t, ports.NoConnection, id)

	_, ok := e.Metadata(0)
	assert.False(t, ok)
	assert.Error(t, e.Send(0, "x"))
	assert.Error(t, e.Close(0, ports.CloseNormal, ""))
	_, ok = e.LatestMessage(0)
	assert.False(t, ok)
}

func TestEndpoint_MultipleConnections(t *testing.T) {
	_, url := newEchoServer(t)
	e := NewEndpoint(testConfig())
	defer e.CloseAll("test")

	a, err := e.Connect(context.Background(), url)
	require.NoError(t, err)
	b, err := e.Connect(context.Background(), url)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.NoError(t, e.Send(b, "only-b"))
	require.True(t, e.WaitMessage(context.Background(), b, 2*time.Second))
	la, _ := e.LatestMessage(a)
	lb, _ := e.LatestMessage(b)
	assert.Empty(t, la)
	assert.Equal(t, InboundPrefix+"only-b", lb)
}

func TestEndpoint_HandlerRunsBeforeArrival(t *testing.T) {
	_, url := newEchoServer(t)
	e := NewEndpoint(testConfig())
	defer e.CloseAll("test")

	var mu sync.Mutex
	var stored []string
	e.SetMessageHandler(func(connID int, msg string) {
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		stored = append(stored, msg)
		mu.Unlock()
	})

	id, err := e.Connect(context.Background(), url)
	require.NoError(t, err)
	require.NoError(t, e.Send(id, "ping-1"))
	require.True(t, e.WaitMessage(context.Background(), id, 2*time.Second))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{InboundPrefix + "ping-1"}, stored, "被唤醒时回调必须已处理完该消息")
}

func TestEndpoint_PrunesEndedConnections(t *testing.T) {
	_, url := newEchoServer(t)
	cfg := testConfig()
	cfg.KeepClosed = 1
	e := NewEndpoint(cfg)
	defer e.CloseAll("test")

	for i := 0; i < 3; i++ {
		id, err := e.Connect(context.Background(), url)
		require.NoError(t, err)
		require.NoError(t, e.Close(id, ports.CloseNormal, "reconnect"))
	}
	id, err := e.Connect(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 3, id, "ID 不复用")

	_, ok := e.Metadata(0)
	assert.False(t, ok, "旧连接应被清理")
	_, ok = e.Metadata(1)
	assert.False(t, ok)
	md, ok := e.Metadata(2)
	require.True(t, ok, "保留最近结束的连接")
	assert.Equal(t, StatusClosed, md.Status)
	md, ok = e.Metadata(3)
	require.True(t, ok)
	assert.Equal(t, StatusOpen, md.Status)
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "")
	t.Setenv("https_proxy", "")
	t.Setenv("HTTP_PROXY", "http://proxy.local:8080")
	cfg := (&Config{HistorySize: 7}).withDefaults()
	assert.Equal(t, 7, cfg.HistorySize)
	assert.Equal(t, defaultHandshakeTimeout, cfg.HandshakeTimeout)
	assert.Equal(t, "http://proxy.local:8080", cfg.ProxyURL)
	assert.Equal(t, time.Duration(0), cfg.PingInterval, "显式配置的 0 表示关闭心跳")

	def := (*Config)(nil).withDefaults()
	assert.Equal(t, defaultPingInterval, def.PingInterval)
	assert.Equal(t, defaultKeepClosed, def.KeepClosed)
}
