package domain

// 订单簿深度允许取值
var allowedDepths = map[int]struct{}{
	1: {}, 5: {}, 10: {}, 20: {}, 50: {}, 100: {}, 1000: {}, 10000: {},
}

// IsAllowedDepth 检查订单簿深度是否合法
func IsAllowedDepth(depth int) bool {
	_, ok := allowedDepths[depth]
	return ok
}

// Currency 结算币种
type Currency string

const (
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyUSDC Currency = "USDC"
	CurrencyUSDT Currency = "USDT"
	CurrencyEURR Currency = "EURR"
	CurrencyAny  Currency = "any"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyBTC, CurrencyETH, CurrencyUSDC, CurrencyUSDT, CurrencyEURR, CurrencyAny:
		return true
	}
	return false
}

// Kind 合约品种
type Kind string

const (
	KindFuture      Kind = "future"
	KindOption      Kind = "option"
	KindSpot        Kind = "spot"
	KindFutureCombo Kind = "future_combo"
	KindOptionCombo Kind = "option_combo"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindFuture, KindOption, KindSpot, KindFutureCombo, KindOptionCombo:
		return true
	}
	return false
}

// OpenOrderType 查询挂单时的订单类型过滤
type OpenOrderType string

const (
	OpenOrderTypeAll          OpenOrderType = "all"
	OpenOrderTypeLimit        OpenOrderType = "limit"
	OpenOrderTypeTriggerAll   OpenOrderType = "trigger_all"
	OpenOrderTypeStopAll      OpenOrderType = "stop_all"
	OpenOrderTypeStopLimit    OpenOrderType = "stop_limit"
	OpenOrderTypeStopMarket   OpenOrderType = "stop_market"
	OpenOrderTypeTakeAll      OpenOrderType = "take_all"
	OpenOrderTypeTakeLimit    OpenOrderType = "take_limit"
	OpenOrderTypeTakeMarket   OpenOrderType = "take_market"
	OpenOrderTypeTrailingAll  OpenOrderType = "trailing_all"
	OpenOrderTypeTrailingStop OpenOrderType = "trailing_stop"
)

func (t OpenOrderType) IsValid() bool {
	switch t {
	case OpenOrderTypeAll, OpenOrderTypeLimit, OpenOrderTypeTriggerAll, OpenOrderTypeStopAll,
		OpenOrderTypeStopLimit, OpenOrderTypeStopMarket, OpenOrderTypeTakeAll, OpenOrderTypeTakeLimit,
		OpenOrderTypeTakeMarket, OpenOrderTypeTrailingAll, OpenOrderTypeTrailingStop:
		return true
	}
	return false
}

// OrderBookQuery 订单簿查询
type OrderBookQuery struct {
	Instrument string // 必填
	Depth      *int   // nil 表示使用交易所默认深度
}

// PositionsQuery 持仓查询，空值表示不过滤
type PositionsQuery struct {
	Currency Currency
	Kind     Kind
}

// OpenOrdersQuery 挂单查询，空值表示不过滤
type OpenOrdersQuery struct {
	Kind Kind
	Type OpenOrderType
}

// SubscriptionRequest 频道订阅请求
type SubscriptionRequest struct {
	Channels []string
}

// LogoutRequest 登出请求
type LogoutRequest struct {
	InvalidateToken bool
}

// NewLogoutRequest 默认使 token 失效
func NewLogoutRequest() LogoutRequest {
	return LogoutRequest{InvalidateToken: true}
}
