package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"zenly/internal/model"
)

// MessageRepo 消息仓库
type MessageRepo struct {
	collection *mongo.Collection
}

// NewMessageRepo 创建消息仓库
func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{
		collection: db.Collection("messages"),
	}
}

// Create 创建消息
func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Status == "" {
		msg.Status = model.MessageDelivered
	}

	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

// FindByID 根据 ID 查询
func (r *MessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.NotFoundError("message", id)
		}
		return nil, err
	}
	return &msg, nil
}

// ListByConversation 查询会话消息（created_at 正序）
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []*model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListRecent 查询最近 N 条消息（created_at 倒序返回）
// 调用方负责再反转为时间正序
func (r *MessageRepo) ListRecent(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []*model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// UpdateContent 更新消息内容（流式 checkpoint 持久化）
func (r *MessageRepo) UpdateContent(ctx context.Context, id, content string, chunksReceived int) error {
	update := bson.M{
		"$set": bson.M{
			"content":                  content,
			"streaming.chunks_received": chunksReceived,
			"updated_at":               time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// MarkDelivered 标记消息投递完成
func (r *MessageRepo) MarkDelivered(ctx context.Context, id, content string, meta *model.MessageMetadata, chunkCount int) error {
	update := bson.M{
		"$set": bson.M{
			"content":                  content,
			"status":                   model.MessageDelivered,
			"metadata":                 meta,
			"streaming.chunks_received": chunkCount,
			"streaming.complete":        true,
			"updated_at":               time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// MarkErrored 标记消息投递失败
func (r *MessageRepo) MarkErrored(ctx context.Context, id string) error {
	update := bson.M{
		"$set": bson.M{
			"status":     model.MessageErrored,
			"updated_at": time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
