package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"zenly/internal/model"
)

// AlertRepo 危机告警仓库（通知落地为 crisis_alerts 集合）
type AlertRepo struct {
	collection *mongo.Collection
}

// NewAlertRepo 创建告警仓库
func NewAlertRepo(db *mongo.Database) *AlertRepo {
	return &AlertRepo{
		collection: db.Collection("crisis_alerts"),
	}
}

// CreateMany 批量写入告警（每个接收人一条）
func (r *AlertRepo) CreateMany(ctx context.Context, alerts []*model.CrisisAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]any, 0, len(alerts))
	for _, alert := range alerts {
		alert.CreatedAt = now
		docs = append(docs, alert)
	}

	_, err := r.collection.InsertMany(ctx, docs)
	return err
}
