package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/betbot/dbtrader/internal/ports"
)

type closeCall struct {
	connID int
	code   int
	reason string
}

type sentFrame struct {
	ID     int64                  `json:"id"`
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
}

// fakeTransport 只提供最新消息槽的传输层
type fakeTransport struct {
	mu         sync.Mutex
	connectErr error
	sendErr    error
	sent       []string
	latest     map[int]string
	closed     []closeCall
	// onSend 在 Send 成功记录后调用（不持有锁）
	onSend func(connID int, frame sentFrame)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{latest: make(map[int]string)}
}

func (f *fakeTransport) Connect(ctx context.Context, url string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return ports.NoConnection, f.connectErr
	}
	return 0, nil
}

func (f *fakeTransport) Send(connID int, message string) error {
	f.mu.Lock()
	if f.sendErr != nil {
		err := f.sendErr
		f.mu.Unlock()
		return err
	}
	f.sent = append(f.sent, message)
	hook := f.onSend
	f.mu.Unlock()

	if hook != nil {
		var frame sentFrame
		if err := json.Unmarshal([]byte(message), &frame); err != nil {
			panic(err)
		}
		hook(connID, frame)
	}
	return nil
}

func (f *fakeTransport) LatestMessage(connID int) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.latest[connID]
	return msg, ok
}

func (f *fakeTransport) Close(connID int, code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, closeCall{connID: connID, code: code, reason: reason})
	return nil
}

func (f *fakeTransport) Metadata(connID int) (ports.ConnectionMetadata, bool) {
	return ports.ConnectionMetadata{ID: connID, URL: "wss://fake", Status: "Open"}, true
}

func (f *fakeTransport) setLatest(connID int, msg string) {
	f.mu.Lock()
	f.latest[connID] = msg
	f.mu.Unlock()
}

func (f *fakeTransport) setSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeTransport) sentFrames() []sentFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentFrame, 0, len(f.sent))
	for _, msg := range f.sent {
		var frame sentFrame
		_ = json.Unmarshal([]byte(msg), &frame)
		out = append(out, frame)
	}
	return out
}

func (f *fakeTransport) closeCalls() []closeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]closeCall(nil), f.closed...)
}

// pushTransport 额外支持消息回调
type pushTransport struct {
	*fakeTransport

	hmu     sync.Mutex
	handler ports.MessageHandler
}

func newPushTransport() *pushTransport {
	return &pushTransport{fakeTransport: newFakeTransport()}
}

func (p *pushTransport) SetMessageHandler(h ports.MessageHandler) {
	p.hmu.Lock()
	p.handler = h
	p.hmu.Unlock()
}

// deliver 模拟收到一条消息：写入槽并回调
func (p *pushTransport) deliver(connID int, body string) {
	msg := "<< " + body
	p.setLatest(connID, msg)
	p.hmu.Lock()
	h := p.handler
	p.hmu.Unlock()
	if h != nil {
		h(connID, msg)
	}
}

func tokenResponse(id int64, token string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":{"access_token":%q,"expires_in":900,"token_type":"bearer"}}`, id, token)
}

func itoa(v int64) string {
	return fmt.Sprintf("%d", v)
}
