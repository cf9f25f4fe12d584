package domain

import (
	"github.com/shopspring/decimal"
)

// MaxLabelLength 订单自定义标签的最大长度（字符数）
const MaxLabelLength = 64

// OrderType 订单类型
type OrderType string

const (
	OrderTypeLimit        OrderType = "limit"
	OrderTypeStopLimit    OrderType = "stop_limit"
	OrderTypeTakeLimit    OrderType = "take_limit"
	OrderTypeMarket       OrderType = "market"
	OrderTypeStopMarket   OrderType = "stop_market"
	OrderTypeTakeMarket   OrderType = "take_market"
	OrderTypeMarketLimit  OrderType = "market_limit"
	OrderTypeTrailingStop OrderType = "trailing_stop"
)

// IsValid 检查订单类型是否为交易所支持的取值
func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeLimit, OrderTypeStopLimit, OrderTypeTakeLimit, OrderTypeMarket,
		OrderTypeStopMarket, OrderTypeTakeMarket, OrderTypeMarketLimit, OrderTypeTrailingStop:
		return true
	}
	return false
}

// TimeInForce 订单有效期
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "good_til_cancelled"
	TimeInForceGTD TimeInForce = "good_til_day"
	TimeInForceFOK TimeInForce = "fill_or_kill"
	TimeInForceIOC TimeInForce = "immediate_or_cancel"
)

func (t TimeInForce) IsValid() bool {
	switch t {
	case TimeInForceGTC, TimeInForceGTD, TimeInForceFOK, TimeInForceIOC:
		return true
	}
	return false
}

// Trigger 条件单触发价格来源
type Trigger string

const (
	TriggerIndexPrice Trigger = "index_price"
	TriggerMarkPrice  Trigger = "mark_price"
	TriggerLastPrice  Trigger = "last_price"
)

func (t Trigger) IsValid() bool {
	switch t {
	case TriggerIndexPrice, TriggerMarkPrice, TriggerLastPrice:
		return true
	}
	return false
}

// OrderRequest 下单/改单/撤单请求
//
// 数值字段使用 decimal.NullDecimal 表示“是否设置”，字符串字段空串即未设置
// （交易所的任何合法取值都不是空串）。
type OrderRequest struct {
	Instrument   string              // 合约名称，例如 BTC-PERPETUAL（新订单必填）
	OrderID      string              // 订单 ID（改单/撤单必填）
	Amount       decimal.NullDecimal // 数量（与 Contracts 至少设置一个）
	Contracts    decimal.NullDecimal // 合约张数
	Type         OrderType           // 订单类型（可选）
	Label        string              // 自定义标签（可选，最多 64 字符）
	Price        decimal.NullDecimal // 价格（可选）
	TimeInForce  TimeInForce         // 有效期（可选）
	Trigger      Trigger             // 触发价格来源（可选，设置时必须同时设置 TriggerPrice）
	TriggerPrice decimal.NullDecimal // 触发价格（可选）
}

// Some 构造一个已设置的可选数值
func Some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// SomeFloat 从 float64 构造一个已设置的可选数值
func SomeFloat(f float64) decimal.NullDecimal {
	return Some(decimal.NewFromFloat(f))
}

// SomeString 解析字符串形式的数值，空串返回未设置
func SomeString(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return Some(d), nil
}

// Side 买卖方向（仅用于日志与方法选择）
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)
