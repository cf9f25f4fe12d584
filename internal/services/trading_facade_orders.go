package services

import (
	"context"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/rpc"
	"github.com/pkg/errors"
)

// Buy 买入下单
func (s *TradingService) Buy(ctx context.Context, o *domain.OrderRequest) (int64, error) {
	return s.placeOrder(ctx, domain.SideBuy, o, s.exchange.Buy)
}

// Sell 卖出下单
func (s *TradingService) Sell(ctx context.Context, o *domain.OrderRequest) (int64, error) {
	return s.placeOrder(ctx, domain.SideSell, o, s.exchange.Sell)
}

func (s *TradingService) placeOrder(ctx context.Context, side domain.Side, o *domain.OrderRequest, build func(*domain.OrderRequest) (*rpc.Request, error)) (int64, error) {
	op := string(side)
	var key string
	id, err := s.call(ctx, op, authenticated, func() (*rpc.Request, error) {
		req, err := build(o)
		if err != nil {
			return nil, err
		}
		// 校验通过后才占用去重 key，无效请求不影响后续重试
		key = orderKey(side, o)
		if err := s.deduper.TryAcquire(key); err != nil {
			key = ""
			return nil, errors.Wrapf(domain.ErrPrecondition, "相同订单仍在去重窗口内: %v", err)
		}
		return req, nil
	})
	if err != nil && key != "" {
		s.deduper.Release(key)
	}
	return id, err
}

// Edit 修改订单
func (s *TradingService) Edit(ctx context.Context, o *domain.OrderRequest) (int64, error) {
	return s.call(ctx, "edit", authenticated, func() (*rpc.Request, error) {
		return s.exchange.Edit(o)
	})
}

// Cancel 撤单
func (s *TradingService) Cancel(ctx context.Context, orderID string) (int64, error) {
	return s.call(ctx, "cancel", authenticated, func() (*rpc.Request, error) {
		return s.exchange.Cancel(&domain.OrderRequest{OrderID: orderID})
	})
}

// GetOpenOrders 查询挂单
func (s *TradingService) GetOpenOrders(ctx context.Context, q domain.OpenOrdersQuery) (int64, error) {
	return s.call(ctx, "get_open_orders", authenticated, func() (*rpc.Request, error) {
		return s.exchange.OpenOrders(q)
	})
}
