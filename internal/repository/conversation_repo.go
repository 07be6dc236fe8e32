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

// ConversationRepo 会话仓库
// 使用UUID作为ID，无需ObjectID转换
type ConversationRepo struct {
	collection *mongo.Collection
}

// NewConversationRepo 创建会话仓库
func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		collection: db.Collection("conversations"),
	}
}

// Create 创建会话
func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if conv.Status == "" {
		conv.Status = model.ConversationActive
	}

	_, err := r.collection.InsertOne(ctx, conv)
	return err
}

// FindByID 根据 ID 查询
func (r *ConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.NotFoundError("conversation", id)
		}
		return nil, err
	}
	return &conv, nil
}

// ListByUserID 查询用户会话列表
func (r *ConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int64) ([]*model.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "updated_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var convs []*model.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// IncrementMessageCount 原子自增消息计数并刷新最后消息时间
func (r *ConversationRepo) IncrementMessageCount(ctx context.Context, id string, delta int) error {
	now := time.Now()
	update := bson.M{
		"$inc": bson.M{"message_count": delta},
		"$set": bson.M{
			"last_message_at": now,
			"updated_at":      now,
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// MarkCrisis 将会话置为危机状态
// 状态迁移是单向的：archived 的会话也会被标记，但不会回到 active
func (r *ConversationRepo) MarkCrisis(ctx context.Context, id string, level model.RiskLevel) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":          model.ConversationCrisis,
			"crisis_detected": true,
			"crisis_level":    level,
			"crisis_at":       now,
			"updated_at":      now,
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// Update 更新会话
func (r *ConversationRepo) Update(ctx context.Context, id string, update bson.M) error {
	if setDoc, ok := update["$set"].(bson.M); ok {
		setDoc["updated_at"] = time.Now()
	} else {
		update["$set"] = bson.M{"updated_at": time.Now()}
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// Delete 删除会话
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
