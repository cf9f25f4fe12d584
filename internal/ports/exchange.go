package ports

import (
	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/rpc"
)

// Exchange 交易所协议适配器：校验参数并构造请求，不负责发送
type Exchange interface {
	Name() string
	// TokenField 认证响应 result 中 access token 的字段名
	TokenField() string

	Auth(creds domain.Credentials) (*rpc.Request, error)
	Test() (*rpc.Request, error)
	Logout(req domain.LogoutRequest) (*rpc.Request, error)

	OrderBook(q domain.OrderBookQuery) (*rpc.Request, error)
	Positions(q domain.PositionsQuery) (*rpc.Request, error)
	OpenOrders(q domain.OpenOrdersQuery) (*rpc.Request, error)

	Buy(o *domain.OrderRequest) (*rpc.Request, error)
	Sell(o *domain.OrderRequest) (*rpc.Request, error)
	Edit(o *domain.OrderRequest) (*rpc.Request, error)
	Cancel(o *domain.OrderRequest) (*rpc.Request, error)

	Subscribe(s domain.SubscriptionRequest) (*rpc.Request, error)
	UnsubscribeAll() (*rpc.Request, error)
}

// UnsupportedExchange 为可选操作提供显式的“不支持”结果。
// 适配器嵌入它，只覆盖自己实现的方法。
type UnsupportedExchange struct{}

func (UnsupportedExchange) OrderBook(domain.OrderBookQuery) (*rpc.Request, error) {
	return nil, domain.ErrUnsupported
}

func (UnsupportedExchange) Positions(domain.PositionsQuery) (*rpc.Request, error) {
	return nil, domain.ErrUnsupported
}

func (UnsupportedExchange) OpenOrders(domain.OpenOrdersQuery) (*rpc.Request, error) {
	return nil, domain.ErrUnsupported
}

func (UnsupportedExchange) Buy(*domain.OrderRequest) (*rpc.Request, error) {
	return nil, domain.ErrUnsupported
}

func (UnsupportedExchange) Sell(*domain.OrderRequest) (*rpc.Request, error) {
	return nil, domain.ErrUnsupported
}

func (UnsupportedExchange) Edit(*domain.OrderRequest) (*rpc.Request, error) {
	return nil, domain.ErrUnsupported
}

func (UnsupportedExchange) Cancel(*domain.OrderRequest) (*rpc.Request, error) {
	return nil, domain.ErrUnsupported
}

func (UnsupportedExchange) Subscribe(domain.SubscriptionRequest) (*rpc.Request, error) {
	return nil, domain.ErrUnsupported
}

func (UnsupportedExchange) UnsubscribeAll() (*rpc.Request, error) {
	return nil, domain.ErrUnsupported
}
