package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Crisis  CrisisConfig  `mapstructure:"crisis"`
	Context ContextConfig `mapstructure:"context"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Log     LogConfig     `mapstructure:"log"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig AI 服务配置
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Timeout  time.Duration   `mapstructure:"timeout"`
	Options  AIOptionsConfig `mapstructure:"options"`
	Retry    RetryConfig     `mapstructure:"retry"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// RetryConfig 重试策略配置
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// CrisisConfig 危机检测配置
type CrisisConfig struct {
	AIRefinement   bool `mapstructure:"ai_refinement"`   // 是否启用 AI 二次分级
	PreviewLength  int  `mapstructure:"preview_length"`  // 告警中的原文预览长度（字符）
	RescanInterval int  `mapstructure:"rescan_interval"` // 流式响应每 N 个 chunk 复扫一次
}

// ContextConfig 上下文构建配置
type ContextConfig struct {
	MaxTokens     int           `mapstructure:"max_tokens"`      // 上下文 token 预算
	CharsPerToken int           `mapstructure:"chars_per_token"` // token 估算比例
	JournalLimit  int           `mapstructure:"journal_limit"`   // 最近日记条数
	JournalWindow time.Duration `mapstructure:"journal_window"`  // 日记时间窗口
	JournalChars  int           `mapstructure:"journal_chars"`   // 单条日记截断长度
	HistoryLimit  int           `mapstructure:"history_limit"`   // 会话历史条数
	HistoryChars  int           `mapstructure:"history_chars"`   // 单条历史截断长度
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`       // Redis 上下文缓存 TTL
}

// StreamConfig 流式会话配置
type StreamConfig struct {
	CheckpointEvery int           `mapstructure:"checkpoint_every"` // 每 K 个 chunk 做一次持久化
	StaleAfter      time.Duration `mapstructure:"stale_after"`      // 会话过期时间
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`   // 过期清扫周期
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`          // JWT密钥
	AccessTokenExpiry time.Duration `mapstructure:"access_token_expiry"` // Access Token过期时间
}

// Validate 验证配置有效性
// 启动时做一次全量校验，避免运行到一半才发现配置非法
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	validProviders := map[string]bool{"openai": true, "azure": true, "ark": true}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("invalid ai provider: %s, must be openai/azure/ark", c.AI.Provider)
	}

	if c.AI.Options.Temperature < 0 || c.AI.Options.Temperature > 2 {
		return errors.New("ai.options.temperature must be in [0, 2]")
	}
	if c.AI.Options.MaxTokens < 0 {
		return errors.New("ai.options.max_tokens must be >= 0")
	}
	if c.AI.Retry.MaxAttempts < 1 {
		return errors.New("ai.retry.max_attempts must be >= 1")
	}
	if c.AI.Retry.InitialDelay < 0 || c.AI.Retry.MaxDelay < c.AI.Retry.InitialDelay {
		return errors.New("invalid ai.retry delays")
	}

	if c.Crisis.RescanInterval < 1 {
		return errors.New("crisis.rescan_interval must be >= 1")
	}
	if c.Crisis.PreviewLength < 0 {
		return errors.New("crisis.preview_length must be >= 0")
	}

	if c.Context.MaxTokens < 1 {
		return errors.New("context.max_tokens must be >= 1")
	}
	if c.Context.CharsPerToken < 1 {
		return errors.New("context.chars_per_token must be >= 1")
	}
	if c.Context.JournalLimit < 0 || c.Context.HistoryLimit < 0 {
		return errors.New("context limits must be >= 0")
	}

	if c.Stream.CheckpointEvery < 1 {
		return errors.New("stream.checkpoint_every must be >= 1")
	}
	if c.Stream.StaleAfter <= 0 || c.Stream.SweepInterval <= 0 {
		return errors.New("stream.stale_after and stream.sweep_interval must be > 0")
	}

	return nil
}
