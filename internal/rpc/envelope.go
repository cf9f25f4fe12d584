package rpc

import (
	"encoding/json"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Version JSON-RPC 协议版本
const Version = "2.0"

// Params 请求参数，只包含已设置的字段
type Params map[string]interface{}

// SetString 非空时写入
func (p Params) SetString(key, value string) {
	if value != "" {
		p[key] = value
	}
}

// SetDecimal 已设置时写入（以精确的 JSON 数字输出）
func (p Params) SetDecimal(key string, value decimal.NullDecimal) {
	if value.Valid {
		p[key] = Number(value.Decimal)
	}
}

// Number 将 decimal 转换为 JSON 数字（不带引号）
func Number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Request JSON-RPC 请求信封
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  Params `json:"params"`
}

// NewRequest 创建请求，params 为 nil 时输出空对象
func NewRequest(id int64, method string, params Params) *Request {
	if params == nil {
		params = Params{}
	}
	return &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// Encode 序列化为文本帧
func (r *Request) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", errors.Wrapf(err, "序列化请求 %s 失败", r.Method)
	}
	return string(data), nil
}

// Redacted 返回用于日志/审计的参数副本，密钥字段被替换
func (r *Request) Redacted() Params {
	out := make(Params, len(r.Params))
	for k, v := range r.Params {
		if k == "client_secret" || k == "refresh_token" {
			out[k] = "***"
			continue
		}
		out[k] = v
	}
	return out
}

// IDGenerator 单调递增的请求 ID 生成器（并发安全，从 1 开始）
type IDGenerator struct {
	last atomic.Int64
}

// Next 返回下一个 ID
func (g *IDGenerator) Next() int64 {
	return g.last.Add(1)
}

// Last 返回最近一次分配的 ID（未分配时为 0）
func (g *IDGenerator) Last() int64 {
	return g.last.Load()
}
