package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// 错误分类，调用方使用 errors.Is 判断
var (
	ErrValidation   = errors.New("参数校验失败")
	ErrPrecondition = errors.New("会话状态不满足")
	ErrTransport    = errors.New("传输层错误")
	ErrTimeout      = errors.New("等待响应超时")
	ErrProtocol     = errors.New("协议错误")
	ErrUnsupported  = errors.New("交易所不支持该操作")
)

// ValidationError 单个字段的校验失败
type ValidationError struct {
	Op    string // 操作名，例如 buy
	Field string // 字段名，使用线上字段名（instrument_name、amount ...）
	Rule  string // 违反的规则描述
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Op, e.Field, e.Rule)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError 创建校验错误
func NewValidationError(op, field, rule string) *ValidationError {
	return &ValidationError{Op: op, Field: field, Rule: rule}
}

// PreconditionError 在不允许的会话状态下调用操作
type PreconditionError struct {
	Op       string
	State    string
	Required string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: 当前状态 %s，需要 %s", e.Op, e.State, e.Required)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// RPCError 交易所返回的 JSON-RPC error 对象
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("交易所返回错误 code=%d: %s", e.Code, e.Message)
}

func (e *RPCError) Unwrap() error { return ErrProtocol }
