package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"zenly/internal/ai"
	"zenly/internal/model"
)

// 服务层对协作方的最小依赖面。mongo 仓库和 ai.Client 是默认实现，
// 接口化是为了让测试能注入失败/降级行为。

// timeNow 便于测试替换时钟
var timeNow = time.Now

// TextGenerator 文本生成能力（ai.Client 实现）
type TextGenerator interface {
	Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResult, error)
	GenerateStream(ctx context.Context, req *ai.GenerateRequest) (<-chan *ai.Chunk, error)
	Model() string
}

// ConversationStore 会话存取
type ConversationStore interface {
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	Create(ctx context.Context, conv *model.Conversation) error
	ListByUserID(ctx context.Context, userID string, limit, offset int64) ([]*model.Conversation, error)
	IncrementMessageCount(ctx context.Context, id string, delta int) error
	MarkCrisis(ctx context.Context, id string, level model.RiskLevel) error
	Update(ctx context.Context, id string, update bson.M) error
}

// MessageStore 消息存取
type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error)
	ListRecent(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error)
	UpdateContent(ctx context.Context, id, content string, chunksReceived int) error
	MarkDelivered(ctx context.Context, id, content string, meta *model.MessageMetadata, chunkCount int) error
	MarkErrored(ctx context.Context, id string) error
}

// JournalStore 日记存取
type JournalStore interface {
	FindByID(ctx context.Context, id string) (*model.JournalEntry, error)
	ListRecent(ctx context.Context, userID string, since time.Time, limit int64) ([]*model.JournalEntry, error)
	SaveAnalysis(ctx context.Context, id string, analysis *model.JournalAnalysis) error
}

// UserStore 用户存取
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	ListAdmins(ctx context.Context) ([]*model.User, error)
}

// AlertSink 告警投递（投递失败不影响调用方，由 CrisisService 吞掉）
type AlertSink interface {
	CreateMany(ctx context.Context, alerts []*model.CrisisAlert) error
}

// ContextCache 上下文缓存（可选，nil 表示不缓存）
type ContextCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
