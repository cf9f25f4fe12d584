package main

import (
	"context"
	"strings"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// 交互式订单录入：空行表示不设置该字段，由适配器负责校验

func (r *repl) readNewOrder(ctx context.Context) (*domain.OrderRequest, error) {
	o := &domain.OrderRequest{}
	var err error
	if o.Instrument, err = r.ask(ctx, "instrument_name"); err != nil {
		return nil, err
	}
	if o.Amount, err = r.askNumber(ctx, "amount"); err != nil {
		return nil, err
	}
	if o.Contracts, err = r.askNumber(ctx, "contracts"); err != nil {
		return nil, err
	}
	typ, err := r.ask(ctx, "type (limit/market/stop_limit/...)")
	if err != nil {
		return nil, err
	}
	o.Type = domain.OrderType(typ)
	if o.Label, err = r.ask(ctx, "label"); err != nil {
		return nil, err
	}
	if o.Price, err = r.askNumber(ctx, "price"); err != nil {
		return nil, err
	}
	tif, err := r.ask(ctx, "time_in_force")
	if err != nil {
		return nil, err
	}
	o.TimeInForce = domain.TimeInForce(tif)
	trigger, err := r.ask(ctx, "trigger (index_price/mark_price/last_price)")
	if err != nil {
		return nil, err
	}
	o.Trigger = domain.Trigger(trigger)
	if o.Trigger != "" {
		if o.TriggerPrice, err = r.askNumber(ctx, "trigger_price"); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (r *repl) readEdit(ctx context.Context) (*domain.OrderRequest, error) {
	o := &domain.OrderRequest{}
	var err error
	if o.OrderID, err = r.ask(ctx, "order_id"); err != nil {
		return nil, err
	}
	if o.Amount, err = r.askNumber(ctx, "amount"); err != nil {
		return nil, err
	}
	if o.Contracts, err = r.askNumber(ctx, "contracts"); err != nil {
		return nil, err
	}
	if o.Price, err = r.askNumber(ctx, "price"); err != nil {
		return nil, err
	}
	if o.TriggerPrice, err = r.askNumber(ctx, "trigger_price"); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repl) askNumber(ctx context.Context, label string) (decimal.NullDecimal, error) {
	line, err := r.ask(ctx, label)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return parseOptionalNumber(label, line)
}

// parseOptionalNumber 解析可选数值字段，空串表示未设置
func parseOptionalNumber(field, raw string) (decimal.NullDecimal, error) {
	v, err := domain.SomeString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.NullDecimal{}, errors.Errorf("%s 不是合法数值: %q", field, raw)
	}
	return v, nil
}
