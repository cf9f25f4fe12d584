package deribit

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/rpc"
	"github.com/betbot/dbtrader/pkg/ratelimit"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeParams(t *testing.T, req *rpc.Request) map[string]interface{} {
	t.Helper()
	text, err := req.Encode()
	require.NoError(t, err)
	var env struct {
		JSONRPC string                 `json:"jsonrpc"`
		Params  map[string]interface{} `json:"params"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &env))
	assert.Equal(t, "2.0", env.JSONRPC)
	return env.Params
}

func requireValidation(t *testing.T, req *rpc.Request, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.Nil(t, req, "校验失败时不应构造请求")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, field, ve.Field)
}

func limitOrder() *domain.OrderRequest {
	return &domain.OrderRequest{
		Instrument: "BTC-PERPETUAL",
		Amount:     domain.SomeFloat(10),
		Type:       domain.OrderTypeLimit,
		Price:      domain.SomeFloat(50000),
	}
}

func TestAdapter_BuyLimitOrder(t *testing.T) {
	a := NewAdapter(nil)
	req, err := a.Buy(limitOrder())
	require.NoError(t, err)
	assert.Equal(t, MethodBuy, req.Method)

	assert.Equal(t, map[string]interface{}{
		"instrument_name": "BTC-PERPETUAL",
		"amount":          float64(10),
		"type":            "limit",
		"price":           float64(50000),
	}, decodeParams(t, req))
}

func TestAdapter_SellUsesSellMethod(t *testing.T) {
	req, err := NewAdapter(nil).Sell(limitOrder())
	require.NoError(t, err)
	assert.Equal(t, MethodSell, req.Method)
}

func TestAdapter_NewOrderAllFields(t *testing.T) {
	o := limitOrder()
	o.Contracts = domain.SomeFloat(10)
	o.Label = "grid-1"
	o.TimeInForce = domain.TimeInForceIOC
	o.Type = domain.OrderTypeStopLimit
	o.Trigger = domain.TriggerMarkPrice
	o.TriggerPrice = domain.SomeFloat(49000)

	req, err := NewAdapter(nil).Buy(o)
	require.NoError(t, err)
	params := decodeParams(t, req)
	assert.Equal(t, float64(10), params["contracts"])
	assert.Equal(t, "grid-1", params["label"])
	assert.Equal(t, "immediate_or_cancel", params["time_in_force"])
	assert.Equal(t, "mark_price", params["trigger"])
	assert.Equal(t, float64(49000), params["trigger_price"])
}

func TestAdapter_NewOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *domain.OrderRequest)
		field  string
	}{
		{"缺少合约", func(o *domain.OrderRequest) { o.Instrument = "" }, "instrument_name"},
		{"缺少数量", func(o *domain.OrderRequest) { o.Amount = domain.OrderRequest{}.Amount }, "amount"},
		{"数量不一致", func(o *domain.OrderRequest) { o.Contracts = domain.SomeFloat(11) }, "contracts"},
		{"非法类型", func(o *domain.OrderRequest) { o.Type = "iceberg" }, "type"},
		{"标签过长", func(o *domain.OrderRequest) { o.Label = strings.Repeat("x", domain.MaxLabelLength+1) }, "label"},
		{"非法有效期", func(o *domain.OrderRequest) { o.TimeInForce = "forever" }, "time_in_force"},
		{"非法触发来源", func(o *domain.OrderRequest) { o.Trigger = "bid_price"; o.TriggerPrice = domain.SomeFloat(1) }, "trigger"},
		{"触发价缺失", func(o *domain.OrderRequest) { o.Trigger = domain.TriggerIndexPrice }, "trigger_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := limitOrder()
			tt.mutate(o)
			req, err := NewAdapter(nil).Buy(o)
			requireValidation(t, req, err, tt.field)
		})
	}

	req, err := NewAdapter(nil).Sell(nil)
	requireValidation(t, req, err, "order")
}

func TestAdapter_LabelLengthCountsCharacters(t *testing.T) {
	o := limitOrder()
	o.Label = strings.Repeat("标", domain.MaxLabelLength)
	_, err := NewAdapter(nil).Buy(o)
	assert.NoError(t, err, "64 个字符（非字节）应允许")
}

func TestAdapter_LabelTooLongFailsRegardlessOfOtherFields(t *testing.T) {
	long := strings.Repeat("a", 65)
	for _, o := range []*domain.OrderRequest{
		{Instrument: "ETH-PERPETUAL", Amount: domain.SomeFloat(1), Label: long},
		{Instrument: "BTC-PERPETUAL", Contracts: domain.SomeFloat(3), Type: domain.OrderTypeMarket, Label: long},
		{Instrument: "BTC-PERPETUAL", Amount: domain.SomeFloat(1), TimeInForce: domain.TimeInForceGTC, Label: long + long},
	} {
		req, err := NewAdapter(nil).Buy(o)
		requireValidation(t, req, err, "label")
	}
}

func TestAdapter_EqualAmountAndContractsAllowed(t *testing.T) {
	o := limitOrder()
	o.Contracts = domain.SomeFloat(10.0)
	_, err := NewAdapter(nil).Buy(o)
	assert.NoError(t, err)
}

func TestAdapter_Edit(t *testing.T) {
	a := NewAdapter(nil)
	req, err := a.Edit(&domain.OrderRequest{
		OrderID: "ETH-123",
		Amount:  domain.SomeFloat(5),
		Price:   domain.SomeFloat(1800.5),
		// 改单不校验 type/label
		Label: strings.Repeat("x", 100),
	})
	require.NoError(t, err)
	assert.Equal(t, MethodEdit, req.Method)
	assert.Equal(t, map[string]interface{}{
		"order_id": "ETH-123",
		"amount":   float64(5),
		"price":    1800.5,
	}, decodeParams(t, req))

	req, err = a.Edit(&domain.OrderRequest{Amount: domain.SomeFloat(1)})
	requireValidation(t, req, err, "order_id")

	req, err = a.Edit(&domain.OrderRequest{OrderID: "x", Amount: domain.SomeFloat(1), Contracts: domain.SomeFloat(2)})
	requireValidation(t, req, err, "contracts")

	req, err = a.Edit(&domain.OrderRequest{OrderID: "x"})
	requireValidation(t, req, err, "amount")
}

func TestAdapter_Cancel(t *testing.T) {
	a := NewAdapter(nil)
	req, err := a.Cancel(&domain.OrderRequest{OrderID: "BTC-1"})
	require.NoError(t, err)
	assert.Equal(t, MethodCancel, req.Method)
	assert.Equal(t, map[string]interface{}{"order_id": "BTC-1"}, decodeParams(t, req))

	req, err = a.Cancel(&domain.OrderRequest{})
	requireValidation(t, req, err, "order_id")
}

func TestAdapter_OrderBookDepth(t *testing.T) {
	a := NewAdapter(nil)

	req, err := a.OrderBook(domain.OrderBookQuery{Instrument: "BTC-PERPETUAL"})
	require.NoError(t, err)
	assert.Equal(t, MethodGetOrderBook, req.Method)
	assert.NotContains(t, decodeParams(t, req), "depth")

	for _, d := range []int{1, 5, 10, 20, 50, 100, 1000, 10000} {
		depth := d
		req, err := a.OrderBook(domain.OrderBookQuery{Instrument: "BTC-PERPETUAL", Depth: &depth})
		require.NoError(t, err, "depth=%d", d)
		assert.Equal(t, float64(d), decodeParams(t, req)["depth"])
	}

	for _, d := range []int{0, -1, 2, 25, 999, 10001} {
		depth := d
		req, err := a.OrderBook(domain.OrderBookQuery{Instrument: "BTC-PERPETUAL", Depth: &depth})
		requireValidation(t, req, err, "depth")
	}

	req, err = a.OrderBook(domain.OrderBookQuery{})
	requireValidation(t, req, err, "instrument_name")
}

func TestAdapter_Positions(t *testing.T) {
	a := NewAdapter(nil)

	req, err := a.Positions(domain.PositionsQuery{Currency: "JPY"})
	requireValidation(t, req, err, "currency")

	req, err = a.Positions(domain.PositionsQuery{Kind: "bond"})
	requireValidation(t, req, err, "kind")

	req, err = a.Positions(domain.PositionsQuery{})
	require.NoError(t, err)
	assert.Empty(t, decodeParams(t, req))

	req, err = a.Positions(domain.PositionsQuery{Currency: domain.CurrencyBTC, Kind: domain.KindFuture})
	require.NoError(t, err)
	assert.Equal(t, MethodGetPositions, req.Method)
	assert.Equal(t, map[string]interface{}{"currency": "BTC", "kind": "future"}, decodeParams(t, req))
}

func TestAdapter_OpenOrders(t *testing.T) {
	a := NewAdapter(nil)

	req, err := a.OpenOrders(domain.OpenOrdersQuery{Type: "fancy"})
	requireValidation(t, req, err, "type")

	req, err = a.OpenOrders(domain.OpenOrdersQuery{Kind: "bond"})
	requireValidation(t, req, err, "kind")

	req, err = a.OpenOrders(domain.OpenOrdersQuery{Kind: domain.KindOption, Type: domain.OpenOrderTypeTrailingAll})
	require.NoError(t, err)
	assert.Equal(t, MethodGetOpenOrders, req.Method)
	assert.Equal(t, map[string]interface{}{"kind": "option", "type": "trailing_all"}, decodeParams(t, req))
}

func TestAdapter_Subscribe(t *testing.T) {
	a := NewAdapter(nil)

	req, err := a.Subscribe(domain.SubscriptionRequest{})
	requireValidation(t, req, err, "channels")

	req, err = a.Subscribe(domain.SubscriptionRequest{Channels: []string{"book.BTC-PERPETUAL.100ms", ""}})
	requireValidation(t, req, err, "channels")

	channels := []string{"user.orders.BTC-PERPETUAL.raw"}
	req, err = a.Subscribe(domain.SubscriptionRequest{Channels: channels})
	require.NoError(t, err)
	channels[0] = "mutated"
	assert.Equal(t, []interface{}{"user.orders.BTC-PERPETUAL.raw"}, decodeParams(t, req)["channels"])
}

func TestAdapter_UnsubscribeAllIsStable(t *testing.T) {
	a := NewAdapter(nil)
	r1, err := a.UnsubscribeAll()
	require.NoError(t, err)
	r2, err := a.UnsubscribeAll()
	require.NoError(t, err)

	assert.Equal(t, r1.Method, r2.Method)
	assert.Equal(t, r1.Params, r2.Params)
	assert.Equal(t, MethodUnsubscribeAll, r1.Method)
	assert.NotEqual(t, r1.ID, r2.ID, "每个请求的 ID 唯一")
}

func TestAdapter_AuthAndLogout(t *testing.T) {
	a := NewAdapter(nil)

	req, err := a.Auth(domain.Credentials{ClientID: "id"})
	requireValidation(t, req, err, "client_secret")

	req, err = a.Auth(domain.Credentials{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, MethodAuth, req.Method)
	assert.Equal(t, map[string]interface{}{
		"grant_type":    "client_credentials",
		"client_id":     "id",
		"client_secret": "secret",
	}, decodeParams(t, req))
	assert.Equal(t, "access_token", a.TokenField())

	req, err = a.Logout(domain.NewLogoutRequest())
	require.NoError(t, err)
	assert.Equal(t, MethodLogout, req.Method)
	assert.Equal(t, true, decodeParams(t, req)["invalidate_token"])

	req, err = a.Logout(domain.LogoutRequest{InvalidateToken: false})
	require.NoError(t, err)
	assert.Equal(t, false, decodeParams(t, req)["invalidate_token"])

	req, err = a.Test()
	require.NoError(t, err)
	assert.Equal(t, MethodGetTime, req.Method)
}

func TestAdapter_SharedIDGenerator(t *testing.T) {
	ids := &rpc.IDGenerator{}
	a := NewAdapter(ids)
	b := NewAdapter(ids)

	r1, _ := a.Test()
	r2, _ := b.Test()
	r3, _ := a.UnsubscribeAll()
	assert.Equal(t, []int64{1, 2, 3}, []int64{r1.ID, r2.ID, r3.ID})

	// 校验失败不消耗 ID
	_, err := a.Cancel(&domain.OrderRequest{})
	require.Error(t, err)
	assert.Equal(t, int64(3), ids.Last())
}

func TestRateCategory(t *testing.T) {
	for _, m := range []string{MethodBuy, MethodSell, MethodEdit, MethodCancel} {
		assert.Equal(t, ratelimit.CategoryMatching, RateCategory(m), m)
	}
	for _, m := range []string{MethodAuth, MethodGetOrderBook, MethodSubscribe, MethodGetPositions} {
		assert.Equal(t, ratelimit.CategoryNonMatching, RateCategory(m), m)
	}
}
