package metrics

import "expvar"

var (
	RequestsSent         = expvar.NewInt("requests_sent")
	RequestsFailed       = expvar.NewInt("requests_failed")
	ValidationFailures   = expvar.NewInt("validation_failures")
	PreconditionFailures = expvar.NewInt("precondition_failures")
	AuthAttempts         = expvar.NewInt("auth_attempts")
	AuthTimeouts         = expvar.NewInt("auth_timeouts")
	MessagesReceived     = expvar.NewInt("messages_received")
	Notifications        = expvar.NewInt("notifications")
)

var counters = map[string]*expvar.Int{
	"requests_sent":         RequestsSent,
	"requests_failed":       RequestsFailed,
	"validation_failures":   ValidationFailures,
	"precondition_failures": PreconditionFailures,
	"auth_attempts":         AuthAttempts,
	"auth_timeouts":         AuthTimeouts,
	"messages_received":     MessagesReceived,
	"notifications":         Notifications,
}

// Snapshot 交易客户端计数器的当前值
func Snapshot() map[string]int64 {
	out := make(map[string]int64, len(counters))
	for name, v := range counters {
		out[name] = v.Value()
	}
	return out
}
