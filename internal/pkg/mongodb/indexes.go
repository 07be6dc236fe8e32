package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes 创建各集合的索引
// 启动时调用，幂等
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// users: username/email 唯一
	_, err := db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{bson.E{Key: "role", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	// conversations: 按用户 + 最近更新排序
	_, err = db.Collection("conversations").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				bson.E{Key: "user_id", Value: 1},
				bson.E{Key: "updated_at", Value: -1},
			},
		},
		{
			Keys: bson.D{bson.E{Key: "status", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	// messages: 会话内按创建时间正序
	_, err = db.Collection("messages").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				bson.E{Key: "conversation_id", Value: 1},
				bson.E{Key: "created_at", Value: 1},
			},
		},
	})
	if err != nil {
		return err
	}

	// journals: 按用户 + 创建时间倒序（最近日记窗口查询）
	_, err = db.Collection("journals").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				bson.E{Key: "user_id", Value: 1},
				bson.E{Key: "created_at", Value: -1},
			},
		},
	})
	if err != nil {
		return err
	}

	// crisis_alerts: 按接收人 + 未读
	_, err = db.Collection("crisis_alerts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				bson.E{Key: "recipient_id", Value: 1},
				bson.E{Key: "read", Value: 1},
				bson.E{Key: "created_at", Value: -1},
			},
		},
	})
	return err
}
