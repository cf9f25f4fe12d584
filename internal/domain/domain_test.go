package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerations(t *testing.T) {
	for _, v := range []OrderType{"limit", "stop_limit", "take_limit", "market", "stop_market", "take_market", "market_limit", "trailing_stop"} {
		assert.True(t, v.IsValid(), v)
	}
	assert.False(t, OrderType("iceberg").IsValid())
	assert.False(t, OrderType("").IsValid())

	for _, v := range []TimeInForce{"good_til_cancelled", "good_til_day", "fill_or_kill", "immediate_or_cancel"} {
		assert.True(t, v.IsValid(), v)
	}
	assert.False(t, TimeInForce("gtc").IsValid())

	for _, v := range []Trigger{"index_price", "mark_price", "last_price"} {
		assert.True(t, v.IsValid(), v)
	}
	assert.False(t, Trigger("bid").IsValid())

	for _, v := range []Currency{"BTC", "ETH", "USDC", "USDT", "EURR", "any"} {
		assert.True(t, v.IsValid(), v)
	}
	assert.False(t, Currency("JPY").IsValid())
	assert.False(t, Currency("btc").IsValid(), "币种区分大小写")

	for _, v := range []Kind{"future", "option", "spot", "future_combo", "option_combo"} {
		assert.True(t, v.IsValid(), v)
	}
	assert.False(t, Kind("perpetual").IsValid())

	for _, v := range []OpenOrderType{"all", "limit", "trigger_all", "stop_all", "stop_limit", "stop_market",
		"take_all", "take_limit", "take_market", "trailing_all", "trailing_stop"} {
		assert.True(t, v.IsValid(), v)
	}
	assert.False(t, OpenOrderType("market").IsValid())
}

func TestIsAllowedDepth(t *testing.T) {
	for _, d := range []int{1, 5, 10, 20, 50, 100, 1000, 10000} {
		assert.True(t, IsAllowedDepth(d), d)
	}
	for _, d := range []int{0, -5, 3, 200, 100000} {
		assert.False(t, IsAllowedDepth(d), d)
	}
}

func TestSomeString(t *testing.T) {
	v, err := SomeString("")
	require.NoError(t, err)
	assert.False(t, v.Valid)

	v, err = SomeString("50000.25")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "50000.25", v.Decimal.String())

	_, err = SomeString("abc")
	assert.Error(t, err)

	assert.True(t, SomeFloat(0).Valid, "0 也是已设置的值")
}

func TestErrors(t *testing.T) {
	var err error = NewValidationError("buy", "label", "too long")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrPrecondition))
	assert.Equal(t, "buy: label too long", err.Error())

	err = errors.Wrap(&PreconditionError{Op: "buy", State: "Connected", Required: "Authenticated"}, "facade")
	assert.True(t, errors.Is(err, ErrPrecondition))

	err = &RPCError{Code: 10009, Message: "not_enough_funds"}
	assert.True(t, errors.Is(err, ErrProtocol))
	assert.Contains(t, err.Error(), "10009")
}

func TestCredentials(t *testing.T) {
	c := Credentials{ClientID: "abc", ClientSecret: "topsecret"}
	assert.True(t, c.IsComplete())
	assert.NotContains(t, c.String(), "topsecret")
	assert.False(t, Credentials{ClientID: "abc"}.IsComplete())
	assert.True(t, NewLogoutRequest().InvalidateToken)
}
