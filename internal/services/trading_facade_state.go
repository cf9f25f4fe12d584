package services

import (
	"context"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/execution"
	"github.com/betbot/dbtrader/internal/journal"
	"github.com/betbot/dbtrader/internal/ports"
	"github.com/betbot/dbtrader/internal/rpc"
	"github.com/betbot/dbtrader/internal/session"
	"github.com/pkg/errors"
)

// State 当前会话状态
func (s *TradingService) State() session.State {
	return s.session.State()
}

// Session 只读访问会话
func (s *TradingService) Session() *session.Session {
	return s.session
}

// Correlation 实际使用的关联方式
func (s *TradingService) Correlation() CorrelationMode {
	return s.opts.Correlation
}

// ShowConnection 当前连接的元数据
func (s *TradingService) ShowConnection() (ports.ConnectionMetadata, error) {
	connID := s.session.ConnID()
	if connID == ports.NoConnection {
		return ports.ConnectionMetadata{}, errors.Wrap(domain.ErrPrecondition, "未建立连接")
	}
	md, ok := s.transport.Metadata(connID)
	if !ok {
		return ports.ConnectionMetadata{}, errors.Wrapf(domain.ErrTransport, "连接 %d 不存在", connID)
	}
	return md, nil
}

// Result 按请求 ID 查询已收到的响应（仅 ID 模式）
func (s *TradingService) Result(id int64) (*rpc.Response, bool) {
	if s.dispatcher == nil {
		return nil, false
	}
	return s.dispatcher.Result(id)
}

// RecentRequests 最近发送的请求
func (s *TradingService) RecentRequests(ctx context.Context, n int) ([]journal.Entry, error) {
	if s.journal == nil {
		return nil, errors.Wrap(domain.ErrUnsupported, "未启用请求日志")
	}
	return s.journal.Recent(ctx, n)
}

func orderKey(side domain.Side, o *domain.OrderRequest) string {
	return execution.OrderKey(side, o)
}
