package services

import (
	"context"

	"github.com/betbot/dbtrader/internal/benchmark"
	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/metrics"
	"github.com/betbot/dbtrader/internal/ports"
	"github.com/betbot/dbtrader/internal/rpc"
	"github.com/betbot/dbtrader/internal/session"
	"github.com/pkg/errors"
)

// Connect 建立连接：Disconnected/Closed -> Connecting -> Connected
func (s *TradingService) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "connect"
	if err := s.session.Require(op, session.StateDisconnected, session.StateClosed); err != nil {
		return s.fail(op, err)
	}
	if s.session.State() == session.StateClosed {
		s.session.Renew()
	}
	if err := s.session.Transition(session.StateConnecting); err != nil {
		return s.fail(op, err)
	}

	connID, err := s.transport.Connect(ctx, s.opts.URL)
	benchmark.FromContext(ctx).Mark("connected")
	if err == nil && connID == ports.NoConnection {
		err = errors.New("传输层未返回有效连接 ID")
	}
	if err != nil {
		_ = s.session.Transition(session.StateDisconnected)
		return s.fail(op, errors.Wrapf(domain.ErrTransport, "连接 %s 失败: %v", s.opts.URL, err))
	}

	s.session.SetConnID(connID)
	if err := s.session.Transition(session.StateConnected); err != nil {
		return s.fail(op, err)
	}
	log.WithField("session", s.session.ID()).Infof("🔗 已连接 %s conn=%d", s.opts.URL, connID)
	return nil
}

// Authenticate 使用会话凭证认证：Connected -> Authenticating -> Authenticated。
// 超时或失败时回到 Connected，可重试。
func (s *TradingService) Authenticate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "auth"
	if err := s.session.Require(op, session.StateConnected); err != nil {
		return s.fail(op, err)
	}
	req, err := s.exchange.Auth(s.session.Credentials())
	if err != nil {
		return s.fail(op, err)
	}

	metrics.AuthAttempts.Add(1)
	if err := s.session.Transition(session.StateAuthenticating); err != nil {
		return s.fail(op, err)
	}

	waiter := s.correlator.Expect(rpc.Expectation{
		ConnID:      s.session.ConnID(),
		ID:          req.ID,
		ResultField: s.exchange.TokenField(),
	})
	if _, err := s.send(ctx, op, req); err != nil {
		waiter.Cancel()
		_ = s.session.Transition(session.StateConnected)
		return err
	}

	resp, err := waiter.Wait(ctx)
	benchmark.FromContext(ctx).Mark("auth_response")
	if err != nil {
		_ = s.session.Transition(session.StateConnected)
		if errors.Is(err, domain.ErrTimeout) {
			metrics.AuthTimeouts.Add(1)
		}
		return s.fail(op, err)
	}

	token, ok := resp.ResultField(s.exchange.TokenField())
	if !ok || token == "" {
		_ = s.session.Transition(session.StateConnected)
		return s.fail(op, errors.Wrapf(domain.ErrProtocol, "认证响应缺少 %s", s.exchange.TokenField()))
	}

	s.session.SetToken(token)
	if err := s.session.Transition(session.StateAuthenticated); err != nil {
		return s.fail(op, err)
	}
	log.WithField("session", s.session.ID()).Infof("✅ 认证成功 client_id=%s", s.session.Credentials().ClientID)
	return nil
}

// Test 发送 public/get_time，不要求认证
func (s *TradingService) Test(ctx context.Context) (int64, error) {
	return s.call(ctx, "test", live, s.exchange.Test)
}

// Logout 发送登出请求并关闭连接。无论登出请求是否发送成功，连接都会关闭，会话进入 Closed。
func (s *TradingService) Logout(ctx context.Context, req domain.LogoutRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "logout"
	if err := s.session.Require(op, authenticated...); err != nil {
		return 0, s.fail(op, err)
	}

	var (
		id      int64
		sendErr error
	)
	r, err := s.exchange.Logout(req)
	if err != nil {
		sendErr = s.fail(op, err)
	} else {
		id, sendErr = s.send(ctx, op, r)
	}

	s.closeLocked(ports.CloseGoingAway, "client logout")
	return id, sendErr
}

// Close 关闭连接（程序退出时调用），未连接时无操作
func (s *TradingService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.session.State() {
	case session.StateConnected, session.StateAuthenticated:
		s.closeLocked(ports.CloseNormal, "client shutdown")
	}
	if s.dispatcher != nil {
		s.dispatcher.Close()
	}
}

func (s *TradingService) closeLocked(code int, reason string) {
	connID := s.session.ConnID()
	if err := s.transport.Close(connID, code, reason); err != nil {
		log.Warnf("关闭连接 conn=%d 失败: %v", connID, err)
	}
	if err := s.session.Close(); err != nil {
		log.Warnf("会话关闭失败: %v", err)
		return
	}
	log.WithField("session", s.session.ID()).Infof("👋 连接已关闭 conn=%d reason=%q", connID, reason)
}
