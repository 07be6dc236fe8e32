package ai

import (
	"context"
	"errors"
	"io"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"zenly/internal/ai/component"
	"zenly/internal/config"
	"zenly/internal/model"
)

// Client 文本生成客户端
// 职责: 封装 eino ChatModel，提供带重试/超时/错误分类的统一生成接口
type Client struct {
	cfg       *config.AIConfig
	chatModel einomodel.ChatModel
	policy    RetryPolicy
}

// NewClient 创建文本生成客户端
func NewClient(ctx context.Context, cfg *config.AIConfig) (*Client, error) {
	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:       cfg,
		chatModel: chatModel,
		policy:    PolicyFromConfig(&cfg.Retry),
	}, nil
}

// GenerateRequest 生成请求
// Prompt 与 Messages 二选一：单段提示词或完整消息列表
type GenerateRequest struct {
	Prompt      string
	Messages    []*schema.Message
	System      string   // 可选的 system 角色内容
	Temperature *float64 // 覆盖配置默认值
	MaxTokens   int      // 覆盖配置默认值，0 表示用默认
}

// GenerateResult 生成结果
type GenerateResult struct {
	Content   string
	Usage     *model.TokenUsage
	LatencyMs int64
}

// Chunk 流式生成片段
type Chunk struct {
	Content string
	Done    bool
	Err     error // 流中途失败时携带（已分类）
	Usage   *model.TokenUsage
}

// Generate 同步生成
// 每次尝试独立计超时；可重试错误按指数退避重试，重试耗尽后返回最后一个错误
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	messages, err := c.buildMessages(req)
	if err != nil {
		return nil, err
	}
	opts := c.buildOptions(req)

	start := time.Now()
	resp, err := DoWithRetry(ctx, c.policy, func(ctx context.Context) (*schema.Message, Outcome, error) {
		attemptCtx, cancel := c.attemptContext(ctx)
		defer cancel()

		msg, genErr := c.chatModel.Generate(attemptCtx, messages, opts...)
		if genErr != nil {
			pe := Classify(genErr)
			log.Warn().Err(genErr).Bool("retryable", pe.Retryable).Msg("generation attempt failed")
			if pe.Retryable {
				return nil, OutcomeRetryable, pe
			}
			return nil, OutcomeFatal, pe
		}
		return msg, OutcomeSuccess, nil
	})
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{
		Content:   resp.Content,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		result.Usage = &model.TokenUsage{
			PromptTokens:     resp.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: resp.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      resp.ResponseMeta.Usage.TotalTokens,
		}
	}
	return result, nil
}

// GenerateStream 流式生成
// 建立流带重试；流一旦建立，中途错误不再重试，通过 Chunk.Err 上报
func (c *Client) GenerateStream(ctx context.Context, req *GenerateRequest) (<-chan *Chunk, error) {
	messages, err := c.buildMessages(req)
	if err != nil {
		return nil, err
	}
	opts := c.buildOptions(req)

	reader, err := DoWithRetry(ctx, c.policy, func(ctx context.Context) (*schema.StreamReader[*schema.Message], Outcome, error) {
		sr, streamErr := c.chatModel.Stream(ctx, messages, opts...)
		if streamErr != nil {
			pe := Classify(streamErr)
			if pe.Retryable {
				return nil, OutcomeRetryable, pe
			}
			return nil, OutcomeFatal, pe
		}
		return sr, OutcomeSuccess, nil
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan *Chunk, 16)
	go func() {
		defer close(ch)
		defer reader.Close()

		var usage *model.TokenUsage
		for {
			msg, recvErr := reader.Recv()
			if recvErr != nil {
				if errors.Is(recvErr, io.EOF) {
					break
				}
				select {
				case ch <- &Chunk{Err: Classify(recvErr)}:
				case <-ctx.Done():
				}
				return
			}

			if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
				usage = &model.TokenUsage{
					PromptTokens:     msg.ResponseMeta.Usage.PromptTokens,
					CompletionTokens: msg.ResponseMeta.Usage.CompletionTokens,
					TotalTokens:      msg.ResponseMeta.Usage.TotalTokens,
				}
			}
			if msg.Content == "" {
				continue
			}

			select {
			case ch <- &Chunk{Content: msg.Content}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case ch <- &Chunk{Done: true, Usage: usage}:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}

// Model 当前使用的模型名
func (c *Client) Model() string {
	return c.cfg.Model
}

// buildMessages 组装消息列表
func (c *Client) buildMessages(req *GenerateRequest) ([]*schema.Message, error) {
	if req.Prompt == "" && len(req.Messages) == 0 {
		return nil, model.ValidationError("empty generation request")
	}

	var messages []*schema.Message
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}
	if len(req.Messages) > 0 {
		messages = append(messages, req.Messages...)
	} else {
		messages = append(messages, schema.UserMessage(req.Prompt))
	}
	return messages, nil
}

// buildOptions 组装每次调用的模型参数
func (c *Client) buildOptions(req *GenerateRequest) []einomodel.Option {
	var opts []einomodel.Option
	if req.Temperature != nil {
		opts = append(opts, einomodel.WithTemperature(float32(*req.Temperature)))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(req.MaxTokens))
	}
	return opts
}

// attemptContext 单次尝试的超时上下文
func (c *Client) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
