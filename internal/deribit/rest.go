package deribit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// RESTClient 公共 REST 接口客户端，只用于不需要会话的查询（时钟偏差检测）
type RESTClient struct {
	client *resty.Client
}

// ClockSkew 本地时钟与服务器时钟的比较结果
type ClockSkew struct {
	ServerTime time.Time
	LocalTime  time.Time
	RoundTrip  time.Duration
	// Skew 为正表示本地时钟快于服务器（已按往返时间的一半修正）
	Skew time.Duration
}

// NewRESTClient baseURL 为空时使用测试网地址
func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "dbtrader")

	return &RESTClient{client: client}
}

type restEnvelope struct {
	Result json.RawMessage  `json:"result"`
	Error  *domain.RPCError `json:"error"`
}

// ServerTime 调用 public/get_time 并计算时钟偏差
func (c *RESTClient) ServerTime(ctx context.Context) (*ClockSkew, error) {
	var env restEnvelope
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env).
		Get("/" + MethodGetTime)
	if err != nil {
		return nil, errors.Wrap(domain.ErrTransport, err.Error())
	}
	end := time.Now()

	if env.Error != nil {
		return nil, env.Error
	}
	if resp.IsError() {
		return nil, errors.Wrapf(domain.ErrProtocol, "HTTP %d", resp.StatusCode())
	}

	var ms int64
	if err := json.Unmarshal(env.Result, &ms); err != nil {
		return nil, errors.Wrapf(domain.ErrProtocol, "无法解析服务器时间: %s", string(env.Result))
	}

	rtt := end.Sub(start)
	server := time.UnixMilli(ms)
	local := start.Add(rtt / 2)
	return &ClockSkew{
		ServerTime: server,
		LocalTime:  local,
		RoundTrip:  rtt,
		Skew:       local.Sub(server),
	}, nil
}
