package ai

import (
	"context"
	"time"

	"zenly/internal/config"
)

// Outcome 单次尝试的标记结果
type Outcome int

const (
	OutcomeSuccess   Outcome = iota // 成功
	OutcomeRetryable                // 失败，可重试
	OutcomeFatal                    // 失败，立即放弃
)

// RetryPolicy 有界指数退避策略
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// PolicyFromConfig 从配置构造重试策略
func PolicyFromConfig(cfg *config.RetryConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// Delay 第 attempt 次失败后的等待时长（attempt 从 1 开始，逐次翻倍，封顶 MaxDelay）
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := p.InitialDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	return delay
}

// AttemptFunc 一次尝试；返回值 + 标记结果 + 原始错误
type AttemptFunc[T any] func(ctx context.Context) (T, Outcome, error)

// DoWithRetry 有界重试组合子
// 对 OutcomeRetryable 按策略退避后重试；OutcomeFatal 立即返回；
// ctx 取消时提前退出并返回 ctx.Err()
func DoWithRetry[T any](ctx context.Context, policy RetryPolicy, fn AttemptFunc[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, outcome, err := fn(ctx)
		switch outcome {
		case OutcomeSuccess:
			return result, nil
		case OutcomeFatal:
			return zero, err
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(policy.Delay(attempt)):
		}
	}

	return zero, lastErr
}
