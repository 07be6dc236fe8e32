package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"zenly/internal/config"
)

// TestRetryPolicy 测试有界指数退避
func TestRetryPolicy(t *testing.T) {
	Convey("重试策略测试", t, func() {
		policy := RetryPolicy{
			MaxAttempts:  4,
			InitialDelay: time.Second,
			MaxDelay:     5 * time.Second,
		}

		Convey("退避逐次翻倍并封顶", func() {
			So(policy.Delay(1), ShouldEqual, time.Second)
			So(policy.Delay(2), ShouldEqual, 2*time.Second)
			So(policy.Delay(3), ShouldEqual, 4*time.Second)
			So(policy.Delay(4), ShouldEqual, 5*time.Second)
			So(policy.Delay(10), ShouldEqual, 5*time.Second)
		})

		Convey("非法配置落到安全默认值", func() {
			p := PolicyFromConfig(&config.RetryConfig{MaxAttempts: 0, InitialDelay: -1, MaxDelay: 0})
			So(p.MaxAttempts, ShouldEqual, 1)
			So(p.InitialDelay, ShouldEqual, time.Second)
			So(p.MaxDelay, ShouldBeGreaterThanOrEqualTo, p.InitialDelay)
		})
	})
}

// TestDoWithRetry 测试重试组合子
func TestDoWithRetry(t *testing.T) {
	Convey("重试组合子测试", t, func() {
		policy := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

		Convey("首次成功不重试", func() {
			calls := 0
			result, err := DoWithRetry(context.Background(), policy, func(ctx context.Context) (string, Outcome, error) {
				calls++
				return "ok", OutcomeSuccess, nil
			})
			So(err, ShouldBeNil)
			So(result, ShouldEqual, "ok")
			So(calls, ShouldEqual, 1)
		})

		Convey("可重试错误在成功前持续重试", func() {
			calls := 0
			result, err := DoWithRetry(context.Background(), policy, func(ctx context.Context) (string, Outcome, error) {
				calls++
				if calls < 3 {
					return "", OutcomeRetryable, errors.New("transient")
				}
				return "ok", OutcomeSuccess, nil
			})
			So(err, ShouldBeNil)
			So(result, ShouldEqual, "ok")
			So(calls, ShouldEqual, 3)
		})

		Convey("耗尽重试次数后返回最后一个错误", func() {
			calls := 0
			lastErr := errors.New("still failing")
			_, err := DoWithRetry(context.Background(), policy, func(ctx context.Context) (string, Outcome, error) {
				calls++
				return "", OutcomeRetryable, lastErr
			})
			So(err, ShouldEqual, lastErr)
			So(calls, ShouldEqual, 3)
		})

		Convey("不可重试错误立即放弃", func() {
			calls := 0
			fatal := errors.New("bad api key")
			_, err := DoWithRetry(context.Background(), policy, func(ctx context.Context) (string, Outcome, error) {
				calls++
				return "", OutcomeFatal, fatal
			})
			So(err, ShouldEqual, fatal)
			So(calls, ShouldEqual, 1)
		})

		Convey("ctx 取消时提前退出", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			calls := 0
			_, err := DoWithRetry(ctx, policy, func(ctx context.Context) (string, Outcome, error) {
				calls++
				return "", OutcomeRetryable, errors.New("transient")
			})
			So(err, ShouldEqual, context.Canceled)
			So(calls, ShouldEqual, 1)
		})
	})
}

// TestClassify 测试错误分类
func TestClassify(t *testing.T) {
	Convey("错误分类测试", t, func() {
		Convey("nil 不分类", func() {
			So(Classify(nil), ShouldBeNil)
		})

		Convey("鉴权/非法输入/限流不可重试", func() {
			for _, msg := range []string{
				"invalid api key",
				"401 unauthorized",
				"rate limit exceeded",
				"invalid request: messages empty",
			} {
				pe := Classify(errors.New(msg))
				So(pe.Retryable, ShouldBeFalse)
			}
		})

		Convey("超时可重试，调用方取消不可重试", func() {
			So(Classify(context.DeadlineExceeded).Retryable, ShouldBeTrue)
			So(Classify(context.Canceled).Retryable, ShouldBeFalse)
		})

		Convey("未知错误默认可重试", func() {
			pe := Classify(errors.New("connection reset by peer"))
			So(pe.Retryable, ShouldBeTrue)
		})

		Convey("已分类过的错误保持原判", func() {
			orig := &ProviderError{Err: errors.New("x"), Retryable: false}
			So(Classify(orig), ShouldEqual, orig)
		})
	})
}
