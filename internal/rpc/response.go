package rpc

import (
	"encoding/json"
	"strings"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/pkg/errors"
)

// Response 服务端消息：既可能是请求的响应，也可能是订阅推送（method=subscription）
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *int64           `json:"id,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *domain.RPCError `json:"error,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`

	// Raw 去掉前缀后的原始文本
	Raw string `json:"-"`
}

// IsNotification 没有 id 的消息是服务端推送
func (r *Response) IsNotification() bool {
	return r.ID == nil
}

// ResultField 读取 result 对象中的字符串字段，值不是字符串时返回 false
func (r *Response) ResultField(name string) (string, bool) {
	if len(r.Result) == 0 {
		return "", false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.Result, &obj); err != nil {
		return "", false
	}
	raw, ok := obj[name]
	if !ok {
		return "", false
	}
	// 只接受 JSON 字符串，对象、数字、null 都视为不存在
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(string(raw)) == "null" {
		return "", false
	}
	return s, true
}

// ParseResponse 解析一条消息
func ParseResponse(text string) (*Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, errors.Wrap(domain.ErrProtocol, err.Error())
	}
	resp.Raw = text
	return &resp, nil
}

// StripPrefix 去掉传输层写入的定长方向前缀。
// 空消息或长度不超过前缀长度的消息视为无效。
func StripPrefix(msg string, prefixLen int) (string, bool) {
	if len(msg) <= prefixLen {
		return "", false
	}
	return msg[prefixLen:], true
}
