package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ProviderError 文本生成服务错误
// Retryable 标记决定重试组合子是否继续尝试
type ProviderError struct {
	Err       error
	Retryable bool
}

// Error 实现 error 接口
func (e *ProviderError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("provider error (%s): %v", kind, e.Err)
}

// Unwrap 支持 errors.Is/As
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// fatalMarkers 不可重试错误的特征串：鉴权失败、非法输入、限流
var fatalMarkers = []string{
	"api key",
	"unauthorized",
	"authentication",
	"permission",
	"forbidden",
	"invalid request",
	"invalid_request",
	"bad request",
	"context length",
	"rate limit",
	"rate_limit",
	"quota",
	"429",
	"401",
	"403",
	"400",
}

// Classify 将底层错误分类为可重试/不可重试
// 超时、连接问题、5xx 视为可重试；鉴权/非法输入/限流立即失败
func Classify(err error) *ProviderError {
	if err == nil {
		return nil
	}

	// 已分类过的直接返回
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	// 调用方取消不重试
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Err: err, Retryable: false}
	}
	// 单次调用超时重试
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Err: err, Retryable: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ProviderError{Err: err, Retryable: true}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return &ProviderError{Err: err, Retryable: false}
		}
	}

	// 其余（5xx、连接重置等）默认可重试
	return &ProviderError{Err: err, Retryable: true}
}
