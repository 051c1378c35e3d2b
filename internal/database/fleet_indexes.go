// Package database - Index cho các collection fleet (unique key thống kê, quét session theo heartbeat).
package database

import (
	"context"
	"strings"

	"fleet_platform/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateFleetIndexes tạo các index cho các collection fleet.
// Gọi một lần khi khởi động server, sau khi đã đăng ký collections vào registry.
func CreateFleetIndexes(ctx context.Context, db *mongo.Database) error {
	// nodes: nodeId unique — mỗi node đăng ký đúng một document
	nodes := db.Collection(global.MongoDB_ColNames.Nodes)
	if _, err := nodes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "nodeId", Value: 1}},
		Options: options.Index().SetName("node_node_id").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// nodes: createdAt — bound quét grouped metrics theo năm gần nhất
	if _, err := nodes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("node_created_at"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// node_sessions: lastHeartbeatAt — quét session hết hạn
	sessions := db.Collection(global.MongoDB_ColNames.NodeSessions)
	if _, err := sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "lastHeartbeatAt", Value: 1}},
		Options: options.Index().SetName("node_session_heartbeat"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// node_sessions: nodeId — đếm session còn sống của một node
	if _, err := sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "nodeId", Value: 1}},
		Options: options.Index().SetName("node_session_node_id"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// node_stats: (category, date, key) unique — bất biến cốt lõi của thống kê
	stats := db.Collection(global.MongoDB_ColNames.NodeStats)
	if _, err := stats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "category", Value: 1},
			{Key: "date", Value: 1},
			{Key: "key", Value: 1},
		},
		Options: options.Index().SetName("node_stat_category_date_key").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// node_histories: (nodeId, createdAt desc) — truy vấn lịch sử gần nhất của node
	histories := db.Collection(global.MongoDB_ColNames.NodeHistories)
	if _, err := histories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "nodeId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("node_history_node_created"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// areas: areaId unique — batch resolve city id -> path
	areas := db.Collection(global.MongoDB_ColNames.Areas)
	if _, err := areas.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "areaId", Value: 1}},
		Options: options.Index().SetName("area_area_id").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	return nil
}

// isIndexExistsError kiểm tra lỗi index đã tồn tại (IndexOptionsConflict / IndexKeySpecsConflict)
func isIndexExistsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "IndexOptionsConflict") ||
		strings.Contains(msg, "IndexKeySpecsConflict") ||
		strings.Contains(msg, "already exists")
}
