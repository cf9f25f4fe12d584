package services

import (
	"context"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/rpc"
)

// GetOrderBook 查询订单簿（公共接口，不要求认证）
func (s *TradingService) GetOrderBook(ctx context.Context, q domain.OrderBookQuery) (int64, error) {
	return s.call(ctx, "get_order_book", live, func() (*rpc.Request, error) {
		return s.exchange.OrderBook(q)
	})
}

// GetPositions 查询持仓
func (s *TradingService) GetPositions(ctx context.Context, q domain.PositionsQuery) (int64, error) {
	return s.call(ctx, "get_positions", authenticated, func() (*rpc.Request, error) {
		return s.exchange.Positions(q)
	})
}

// Subscribe 订阅频道，推送通过 SetNotificationHandler 注册的回调处理
func (s *TradingService) Subscribe(ctx context.Context, req domain.SubscriptionRequest) (int64, error) {
	return s.call(ctx, "subscribe", authenticated, func() (*rpc.Request, error) {
		return s.exchange.Subscribe(req)
	})
}

// UnsubscribeAll 取消全部订阅
func (s *TradingService) UnsubscribeAll(ctx context.Context) (int64, error) {
	return s.call(ctx, "unsubscribe_all", authenticated, s.exchange.UnsubscribeAll)
}
