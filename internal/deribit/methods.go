package deribit

import "github.com/betbot/dbtrader/pkg/ratelimit"

// JSON-RPC 方法名
const (
	MethodAuth           = "public/auth"
	MethodGetTime        = "public/get_time"
	MethodGetOrderBook   = "public/get_order_book"
	MethodLogout         = "private/logout"
	MethodSubscribe      = "private/subscribe"
	MethodUnsubscribeAll = "private/unsubscribe_all"
	MethodGetPositions   = "private/get_positions"
	MethodBuy            = "private/buy"
	MethodSell           = "private/sell"
	MethodEdit           = "private/edit"
	MethodCancel         = "private/cancel"
	MethodGetOpenOrders  = "private/get_open_orders"
)

const (
	// DefaultWSURL 测试网 WebSocket 地址
	DefaultWSURL = "wss://test.deribit.com/ws/api/v2"
	// DefaultRESTURL 测试网 REST 地址
	DefaultRESTURL = "https://test.deribit.com/api/v2"

	grantTypeClientCredentials = "client_credentials"
	tokenField                 = "access_token"
)

// RateCategory 方法对应的限流类别
func RateCategory(method string) ratelimit.Category {
	switch method {
	case MethodBuy, MethodSell, MethodEdit, MethodCancel:
		return ratelimit.CategoryMatching
	}
	return ratelimit.CategoryNonMatching
}
