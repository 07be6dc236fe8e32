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

// JournalRepo 日记仓库
type JournalRepo struct {
	collection *mongo.Collection
}

// NewJournalRepo 创建日记仓库
func NewJournalRepo(db *mongo.Database) *JournalRepo {
	return &JournalRepo{
		collection: db.Collection("journals"),
	}
}

// Create 创建日记
func (r *JournalRepo) Create(ctx context.Context, entry *model.JournalEntry) error {
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// FindByID 根据 ID 查询
func (r *JournalRepo) FindByID(ctx context.Context, id string) (*model.JournalEntry, error) {
	var entry model.JournalEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.NotFoundError("journal", id)
		}
		return nil, err
	}
	return &entry, nil
}

// ListRecent 查询窗口内最近的日记（created_at 倒序）
func (r *JournalRepo) ListRecent(ctx context.Context, userID string, since time.Time, limit int64) ([]*model.JournalEntry, error) {
	filter := bson.M{
		"user_id":    userID,
		"created_at": bson.M{"$gte": since},
	}
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.JournalEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveAnalysis 将分析结果写回日记
func (r *JournalRepo) SaveAnalysis(ctx context.Context, id string, analysis *model.JournalAnalysis) error {
	update := bson.M{
		"$set": bson.M{
			"analysis":   analysis,
			"updated_at": time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
