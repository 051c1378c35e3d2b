package nodesvc

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "fleet_platform/internal/api/base/service"
	nodemodels "fleet_platform/internal/api/node/models"
	"fleet_platform/internal/global"
)

// NodeStatService xử lý logic cho thống kê node theo dimension và ngày
type NodeStatService struct {
	*basesvc.BaseServiceMongoImpl[nodemodels.NodeStat]
}

// NewNodeStatService tạo mới NodeStatService
func NewNodeStatService() (*NodeStatService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.NodeStats)
	if !exist {
		return nil, fmt.Errorf("failed to get node_stats collection")
	}
	return &NodeStatService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[nodemodels.NodeStat](collection),
	}, nil
}

// FindAllByCategoryDate trả về toàn bộ dòng thống kê của một dimension trong một ngày
func (s *NodeStatService) FindAllByCategoryDate(ctx context.Context, category string, date string) ([]nodemodels.NodeStat, error) {
	filter := bson.M{"category": category, "date": date}
	return s.BaseServiceMongoImpl.Find(ctx, filter, nil)
}

// FindByDate trả về toàn bộ dòng thống kê của một ngày, mọi dimension.
// Sắp xếp theo (category, key) để output ổn định cho API.
func (s *NodeStatService) FindByDate(ctx context.Context, date string) ([]nodemodels.NodeStat, error) {
	filter := bson.M{"date": date}
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "key", Value: 1}})
	return s.BaseServiceMongoImpl.Find(ctx, filter, opts)
}

// UpsertMetrics ghi đè các chỉ số của một dòng thống kê (category, date, key),
// tạo mới nếu chưa tồn tại. createdAt chỉ gán khi insert.
func (s *NodeStatService) UpsertMetrics(ctx context.Context, category string, date string, key string, m nodemodels.NodeMetricsGroup) error {
	now := time.Now().Unix()
	filter := bson.M{"category": category, "date": date, "key": key}
	update := bson.M{
		"$set": bson.M{
			"total":      m.Total,
			"actives":    m.ActivesT1,
			"activesT7":  m.ActivesT7,
			"activesT30": m.ActivesT30,
			"news":       m.NewsT1,
			"newsT7":     m.NewsT7,
			"newsT30":    m.NewsT30,
			"updatedAt":  now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"category":  category,
			"date":      date,
			"key":       key,
			"createdAt": now,
		},
	}
	return s.BaseServiceMongoImpl.Upsert(ctx, filter, update)
}

// DeleteByIDs xóa các dòng thống kê theo danh sách _id, trả về số dòng đã xóa
func (s *NodeStatService) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}}
	return s.BaseServiceMongoImpl.DeleteMany(ctx, filter)
}
