package model

import (
	"errors"
	"fmt"
)

// 错误分类（见 handler 层的错误码映射）
var (
	// ErrValidation 调用方输入非法，直接拒绝
	ErrValidation = errors.New("validation error")
	// ErrNotFound 会话/日记不存在，直接拒绝
	ErrNotFound = errors.New("not found")
	// ErrGenerationFailed 重试耗尽或命中不可重试错误后对外暴露的统一错误
	ErrGenerationFailed = errors.New("generation failed")
)

// ValidationError 构造带说明的输入错误
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundError 构造带资源名的不存在错误
func NotFoundError(resource, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
}
