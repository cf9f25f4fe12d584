package deribit

import (
	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/ports"
	"github.com/betbot/dbtrader/internal/rpc"
	"github.com/sirupsen/logrus"
)

var adapterLog = logrus.WithField("component", "deribit_adapter")

// Adapter Deribit 协议适配器：校验参数并构造 JSON-RPC 请求。
// 每个请求从共享的 IDGenerator 取得唯一 ID。
type Adapter struct {
	ids *rpc.IDGenerator
}

var _ ports.Exchange = (*Adapter)(nil)

// NewAdapter ids 为 nil 时创建独立的生成器
func NewAdapter(ids *rpc.IDGenerator) *Adapter {
	if ids == nil {
		ids = &rpc.IDGenerator{}
	}
	return &Adapter{ids: ids}
}

func (a *Adapter) Name() string { return "deribit" }

func (a *Adapter) TokenField() string { return tokenField }

func (a *Adapter) build(method string, params rpc.Params) *rpc.Request {
	return rpc.NewRequest(a.ids.Next(), method, params)
}

func (a *Adapter) reject(err error) (*rpc.Request, error) {
	adapterLog.Warnf("❌ 请求未发送: %v", err)
	return nil, err
}

func (a *Adapter) Auth(creds domain.Credentials) (*rpc.Request, error) {
	if err := validateCredentials(creds); err != nil {
		return a.reject(err)
	}
	return a.build(MethodAuth, rpc.Params{
		"grant_type":    grantTypeClientCredentials,
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
	}), nil
}

func (a *Adapter) Test() (*rpc.Request, error) {
	return a.build(MethodGetTime, nil), nil
}

func (a *Adapter) Logout(req domain.LogoutRequest) (*rpc.Request, error) {
	return a.build(MethodLogout, rpc.Params{"invalidate_token": req.InvalidateToken}), nil
}

func (a *Adapter) OrderBook(q domain.OrderBookQuery) (*rpc.Request, error) {
	if err := validateOrderBook(q); err != nil {
		return a.reject(err)
	}
	params := rpc.Params{"instrument_name": q.Instrument}
	if q.Depth != nil {
		params["depth"] = *q.Depth
	}
	return a.build(MethodGetOrderBook, params), nil
}

func (a *Adapter) Positions(q domain.PositionsQuery) (*rpc.Request, error) {
	if err := validatePositions(q); err != nil {
		return a.reject(err)
	}
	params := rpc.Params{}
	params.SetString("currency", string(q.Currency))
	params.SetString("kind", string(q.Kind))
	return a.build(MethodGetPositions, params), nil
}

func (a *Adapter) OpenOrders(q domain.OpenOrdersQuery) (*rpc.Request, error) {
	if err := validateOpenOrders(q); err != nil {
		return a.reject(err)
	}
	params := rpc.Params{}
	params.SetString("kind", string(q.Kind))
	params.SetString("type", string(q.Type))
	return a.build(MethodGetOpenOrders, params), nil
}

func (a *Adapter) Buy(o *domain.OrderRequest) (*rpc.Request, error) {
	return a.newOrder("buy", MethodBuy, o)
}

func (a *Adapter) Sell(o *domain.OrderRequest) (*rpc.Request, error) {
	return a.newOrder("sell", MethodSell, o)
}

func (a *Adapter) newOrder(op, method string, o *domain.OrderRequest) (*rpc.Request, error) {
	if err := validateNewOrder(op, o); err != nil {
		return a.reject(err)
	}
	params := rpc.Params{"instrument_name": o.Instrument}
	params.SetDecimal("amount", o.Amount)
	params.SetDecimal("contracts", o.Contracts)
	params.SetString("type", string(o.Type))
	params.SetString("label", o.Label)
	params.SetDecimal("price", o.Price)
	params.SetString("time_in_force", string(o.TimeInForce))
	params.SetString("trigger", string(o.Trigger))
	params.SetDecimal("trigger_price", o.TriggerPrice)
	return a.build(method, params), nil
}

func (a *Adapter) Edit(o *domain.OrderRequest) (*rpc.Request, error) {
	if err := validateEdit(o); err != nil {
		return a.reject(err)
	}
	params := rpc.Params{"order_id": o.OrderID}
	params.SetDecimal("amount", o.Amount)
	params.SetDecimal("contracts", o.Contracts)
	params.SetDecimal("price", o.Price)
	params.SetDecimal("trigger_price", o.TriggerPrice)
	return a.build(MethodEdit, params), nil
}

func (a *Adapter) Cancel(o *domain.OrderRequest) (*rpc.Request, error) {
	if err := validateCancel(o); err != nil {
		return a.reject(err)
	}
	return a.build(MethodCancel, rpc.Params{"order_id": o.OrderID}), nil
}

func (a *Adapter) Subscribe(s domain.SubscriptionRequest) (*rpc.Request, error) {
	if err := validateSubscribe(s); err != nil {
		return a.reject(err)
	}
	channels := make([]string, len(s.Channels))
	copy(channels, s.Channels)
	return a.build(MethodSubscribe, rpc.Params{"channels": channels}), nil
}

func (a *Adapter) UnsubscribeAll() (*rpc.Request, error) {
	return a.build(MethodUnsubscribeAll, nil), nil
}
