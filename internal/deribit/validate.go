package deribit

import (
	"fmt"
	"unicode/utf8"

	"github.com/betbot/dbtrader/internal/domain"
)

// 校验函数按交易所文档中的字段顺序检查，遇到第一个错误即返回

func validateSize(op string, o *domain.OrderRequest) error {
	if !o.Amount.Valid && !o.Contracts.Valid {
		return domain.NewValidationError(op, "amount", "amount 与 contracts 至少设置一个")
	}
	if o.Amount.Valid && o.Contracts.Valid && !o.Amount.Decimal.Equal(o.Contracts.Decimal) {
		return domain.NewValidationError(op, "contracts",
			fmt.Sprintf("同时设置时必须与 amount 相等 (amount=%s contracts=%s)", o.Amount.Decimal, o.Contracts.Decimal))
	}
	return nil
}

func validateNewOrder(op string, o *domain.OrderRequest) error {
	if o == nil {
		return domain.NewValidationError(op, "order", "请求为空")
	}
	if o.Instrument == "" {
		return domain.NewValidationError(op, "instrument_name", "必填")
	}
	if err := validateSize(op, o); err != nil {
		return err
	}
	if o.Type != "" && !o.Type.IsValid() {
		return domain.NewValidationError(op, "type", fmt.Sprintf("不支持的订单类型 %q", o.Type))
	}
	if utf8.RuneCountInString(o.Label) > domain.MaxLabelLength {
		return domain.NewValidationError(op, "label", fmt.Sprintf("长度不能超过 %d", domain.MaxLabelLength))
	}
	if o.TimeInForce != "" && !o.TimeInForce.IsValid() {
		return domain.NewValidationError(op, "time_in_force", fmt.Sprintf("不支持的取值 %q", o.TimeInForce))
	}
	if o.Trigger != "" {
		if !o.Trigger.IsValid() {
			return domain.NewValidationError(op, "trigger", fmt.Sprintf("不支持的取值 %q", o.Trigger))
		}
		if !o.TriggerPrice.Valid {
			return domain.NewValidationError(op, "trigger_price", "设置 trigger 时必填")
		}
	}
	return nil
}

func validateEdit(o *domain.OrderRequest) error {
	if o == nil {
		return domain.NewValidationError("edit", "order", "请求为空")
	}
	if o.OrderID == "" {
		return domain.NewValidationError("edit", "order_id", "必填")
	}
	return validateSize("edit", o)
}

func validateCancel(o *domain.OrderRequest) error {
	if o == nil || o.OrderID == "" {
		return domain.NewValidationError("cancel", "order_id", "必填")
	}
	return nil
}

func validateOrderBook(q domain.OrderBookQuery) error {
	if q.Instrument == "" {
		return domain.NewValidationError("get_order_book", "instrument_name", "必填")
	}
	if q.Depth != nil && !domain.IsAllowedDepth(*q.Depth) {
		return domain.NewValidationError("get_order_book", "depth", fmt.Sprintf("不支持的深度 %d", *q.Depth))
	}
	return nil
}

func validatePositions(q domain.PositionsQuery) error {
	if q.Currency != "" && !q.Currency.IsValid() {
		return domain.NewValidationError("get_positions", "currency", fmt.Sprintf("不支持的币种 %q", q.Currency))
	}
	if q.Kind != "" && !q.Kind.IsValid() {
		return domain.NewValidationError("get_positions", "kind", fmt.Sprintf("不支持的品种 %q", q.Kind))
	}
	return nil
}

func validateOpenOrders(q domain.OpenOrdersQuery) error {
	if q.Kind != "" && !q.Kind.IsValid() {
		return domain.NewValidationError("get_open_orders", "kind", fmt.Sprintf("不支持的品种 %q", q.Kind))
	}
	if q.Type != "" && !q.Type.IsValid() {
		return domain.NewValidationError("get_open_orders", "type", fmt.Sprintf("不支持的类型 %q", q.Type))
	}
	return nil
}

func validateSubscribe(s domain.SubscriptionRequest) error {
	if len(s.Channels) == 0 {
		return domain.NewValidationError("subscribe", "channels", "至少需要一个频道")
	}
	for _, ch := range s.Channels {
		if ch == "" {
			return domain.NewValidationError("subscribe", "channels", "频道名不能为空")
		}
	}
	return nil
}

func validateCredentials(c domain.Credentials) error {
	if c.ClientID == "" {
		return domain.NewValidationError("auth", "client_id", "必填")
	}
	if c.ClientSecret == "" {
		return domain.NewValidationError("auth", "client_secret", "必填")
	}
	return nil
}
