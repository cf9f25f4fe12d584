package services

import (
	"context"
	"sync"
	"time"

	"github.com/betbot/dbtrader/internal/benchmark"
	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/execution"
	"github.com/betbot/dbtrader/internal/journal"
	"github.com/betbot/dbtrader/internal/metrics"
	"github.com/betbot/dbtrader/internal/ports"
	"github.com/betbot/dbtrader/internal/rpc"
	"github.com/betbot/dbtrader/internal/session"
	"github.com/betbot/dbtrader/pkg/ratelimit"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "trading_service")

// CorrelationMode 响应关联方式
type CorrelationMode string

const (
	// CorrelateByID 按请求 ID 关联（需要传输层支持消息回调）
	CorrelateByID CorrelationMode = "id"
	// CorrelateByPolling 轮询最新消息槽
	CorrelateByPolling CorrelationMode = "poll"
)

// RequestJournal 请求审计日志
type RequestJournal interface {
	Record(ctx context.Context, e journal.Entry) error
	Recent(ctx context.Context, n int) ([]journal.Entry, error)
}

// Options TradingService 配置，零值字段使用默认值
type Options struct {
	URL          string
	Correlation  CorrelationMode
	PollInterval time.Duration
	Timeout      time.Duration
	// PrefixLen 传输层写入最新消息槽的方向前缀长度
	PrefixLen int

	Limits       *ratelimit.Manager
	RateCategory func(method string) ratelimit.Category
	Journal      RequestJournal
	// DedupeWindow 相同新订单的去重窗口，0 表示不去重
	DedupeWindow time.Duration
}

// TradingService 交易门面：检查会话前置条件，调用协议适配器构造请求并经传输层发送。
// 所有操作串行执行；认证会阻塞调用方直到成功、超时或 ctx 取消。
type TradingService struct {
	mu sync.Mutex

	exchange   ports.Exchange
	transport  ports.Transport
	session    *session.Session
	correlator rpc.Correlator
	dispatcher *rpc.Dispatcher // 仅 ID 模式

	limits       *ratelimit.Manager
	rateCategory func(string) ratelimit.Category
	journal      RequestJournal
	deduper      *execution.InFlightDeduper

	opts Options

	notifyMu sync.RWMutex
	onNotify rpc.NotificationHandler
}

// NewTradingService 创建交易门面
func NewTradingService(exchange ports.Exchange, transport ports.Transport, creds domain.Credentials, opts Options) *TradingService {
	if opts.Correlation == "" {
		opts.Correlation = CorrelateByID
	}
	if opts.Timeout <= 0 {
		opts.Timeout = rpc.DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = rpc.DefaultPollInterval
	}

	s := &TradingService{
		exchange:     exchange,
		transport:    transport,
		session:      session.New(creds),
		limits:       opts.Limits,
		rateCategory: opts.RateCategory,
		journal:      opts.Journal,
		deduper:      execution.NewInFlightDeduper(opts.DedupeWindow, 0),
		opts:         opts,
	}

	source, canPush := transport.(ports.MessageSource)
	if opts.Correlation == CorrelateByID && !canPush {
		log.Warnf("传输层不支持消息回调，改用轮询关联")
		s.opts.Correlation = CorrelateByPolling
	}

	if s.opts.Correlation == CorrelateByID {
		d := rpc.NewDispatcher(rpc.DispatcherConfig{PrefixLen: opts.PrefixLen, Timeout: opts.Timeout})
		d.OnNotification(s.handleNotification)
		source.SetMessageHandler(func(connID int, msg string) {
			metrics.MessagesReceived.Add(1)
			d.HandleMessage(connID, msg)
		})
		s.dispatcher = d
		s.correlator = d
	} else {
		s.correlator = rpc.NewSlotPoller(transport, opts.PrefixLen, opts.PollInterval, opts.Timeout)
	}

	log.Infof("交易门面已创建: exchange=%s correlation=%s", exchange.Name(), s.opts.Correlation)
	return s
}

// SetNotificationHandler 注册订阅推送回调（仅 ID 模式下可用）
func (s *TradingService) SetNotificationHandler(h rpc.NotificationHandler) {
	s.notifyMu.Lock()
	s.onNotify = h
	s.notifyMu.Unlock()
}

func (s *TradingService) handleNotification(connID int, msg *rpc.Response) {
	metrics.Notifications.Add(1)
	s.notifyMu.RLock()
	h := s.onNotify
	s.notifyMu.RUnlock()
	if h != nil {
		h(connID, msg)
		return
	}
	log.Debugf("📨 推送 conn=%d method=%s", connID, msg.Method)
}

// send 发送已构造的请求。调用方需持有 s.mu。
func (s *TradingService) send(ctx context.Context, op string, req *rpc.Request) (int64, error) {
	connID := s.session.ConnID()
	if connID == ports.NoConnection {
		return 0, s.fail(op, errors.Wrap(domain.ErrTransport, "未建立连接"))
	}

	if s.limits != nil {
		category := ratelimit.CategoryNonMatching
		if s.rateCategory != nil {
			category = s.rateCategory(req.Method)
		}
		if err := s.limits.Wait(ctx, category); err != nil {
			return 0, s.fail(op, errors.Wrap(err, "等待限流令牌"))
		}
	}

	text, err := req.Encode()
	if err != nil {
		return 0, s.fail(op, errors.Wrap(domain.ErrProtocol, err.Error()))
	}

	sendErr := s.transport.Send(connID, text)
	benchmark.FromContext(ctx).Mark(op + "_sent")
	s.record(ctx, connID, req, sendErr)

	if sendErr != nil {
		metrics.RequestsFailed.Add(1)
		return req.ID, s.fail(op, errors.Wrapf(domain.ErrTransport, "发送 %s 失败: %v", req.Method, sendErr))
	}
	metrics.RequestsSent.Add(1)
	log.WithField("session", s.session.ID()).Infof("📤 %s 已发送 id=%d method=%s", op, req.ID, req.Method)
	return req.ID, nil
}

func (s *TradingService) record(ctx context.Context, connID int, req *rpc.Request, sendErr error) {
	if s.journal == nil {
		return
	}
	e := journal.Entry{
		RequestID: req.ID,
		ConnID:    connID,
		SessionID: s.session.ID(),
		Method:    req.Method,
		Params:    req.Redacted(),
		SentAt:    time.Now(),
		OK:        sendErr == nil,
	}
	if sendErr != nil {
		e.Error = sendErr.Error()
	}
	if err := s.journal.Record(ctx, e); err != nil {
		log.Warnf("写入请求日志失败: %v", err)
	}
}

// fail 记录并返回错误
func (s *TradingService) fail(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		metrics.ValidationFailures.Add(1)
	case errors.Is(err, domain.ErrPrecondition):
		metrics.PreconditionFailures.Add(1)
	}
	log.WithField("session", s.session.ID()).Errorf("❌ %s 失败: %v", op, err)
	return err
}

// call 通用流程：检查前置状态 -> 构造 -> 发送
func (s *TradingService) call(ctx context.Context, op string, required []session.State, build func() (*rpc.Request, error)) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.Require(op, required...); err != nil {
		return 0, s.fail(op, err)
	}
	req, err := build()
	if err != nil {
		return 0, s.fail(op, err)
	}
	return s.send(ctx, op, req)
}

var (
	// live 公共请求只要求连接可用
	live          = []session.State{session.StateConnected, session.StateAuthenticated}
	authenticated = []session.State{session.StateAuthenticated}
)
