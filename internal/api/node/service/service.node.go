// Package nodesvc xử lý logic nghiệp vụ cho domain Node: đăng ký, heartbeat,
// tích lũy thời gian online và truy vấn thống kê theo nhóm.
package nodesvc

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "fleet_platform/internal/api/base/service"
	nodemodels "fleet_platform/internal/api/node/models"
	"fleet_platform/internal/common"
	"fleet_platform/internal/global"
)

// NodeService xử lý logic cho node
type NodeService struct {
	*basesvc.BaseServiceMongoImpl[nodemodels.Node]
}

// NewNodeService tạo mới NodeService
func NewNodeService() (*NodeService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Nodes)
	if !exist {
		return nil, fmt.Errorf("failed to get nodes collection")
	}
	return &NodeService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[nodemodels.Node](collection),
	}, nil
}

// FindByNodeID tìm node theo nodeId nghiệp vụ (không phải _id)
func (s *NodeService) FindByNodeID(ctx context.Context, nodeId string) (*nodemodels.Node, error) {
	filter := bson.M{"nodeId": nodeId}
	node, err := s.BaseServiceMongoImpl.FindOne(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// UpsertByNodeID cập nhật thông tin node theo nodeId, tạo mới nếu chưa tồn tại.
// Dùng cho luồng đăng ký: node gửi lại thông tin môi trường mỗi lần khởi động.
// Trả về document sau khi cập nhật trong cùng một round-trip.
func (s *NodeService) UpsertByNodeID(ctx context.Context, nodeId string, data map[string]interface{}) (*nodemodels.Node, error) {
	now := time.Now().Unix()
	setData := bson.M{"updatedAt": now}
	for k, v := range data {
		setData[k] = v
	}
	update := bson.M{
		"$set": setData,
		"$setOnInsert": bson.M{
			"nodeId":            nodeId,
			"onlineTimeSeconds": int64(0),
			"createdAt":         now,
		},
	}
	filter := bson.M{"nodeId": nodeId}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	node, err := s.BaseServiceMongoImpl.FindOneAndUpdate(ctx, filter, update, opts)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// AddOnlineTime cộng dồn thời gian online (giây) cho node bằng $inc.
// $inc là atomic phía MongoDB nên nhiều writer cộng đồng thời không mất dữ liệu.
func (s *NodeService) AddOnlineTime(ctx context.Context, nodeId string, seconds int64) error {
	if seconds <= 0 {
		return nil
	}
	filter := bson.M{"nodeId": nodeId}
	update := bson.M{
		"$inc": bson.M{"onlineTimeSeconds": seconds},
		"$set": bson.M{"updatedAt": time.Now().Unix()},
	}
	return s.BaseServiceMongoImpl.UpdateOne(ctx, filter, update, nil)
}

// TouchUpdatedAt cập nhật mốc hoạt động gần nhất của node
func (s *NodeService) TouchUpdatedAt(ctx context.Context, nodeId string) error {
	filter := bson.M{"nodeId": nodeId}
	update := bson.M{"$set": bson.M{"updatedAt": time.Now().Unix()}}
	return s.BaseServiceMongoImpl.UpdateOne(ctx, filter, update, nil)
}

// nodeMetricsRow là kết quả thô từ pipeline $group trước khi ép key về string
type nodeMetricsRow struct {
	Key        interface{} `bson:"_id"`
	Total      int64       `bson:"total"`
	ActivesT1  int64       `bson:"activesT1"`
	ActivesT7  int64       `bson:"activesT7"`
	ActivesT30 int64       `bson:"activesT30"`
	NewsT1     int64       `bson:"newsT1"`
	NewsT7     int64       `bson:"newsT7"`
	NewsT30    int64       `bson:"newsT30"`
}

// GroupMetricsByField gom nhóm node theo một trường phân loại và đếm các cửa sổ hoạt động.
//
// Với mỗi giá trị của field, pipeline trả về:
//   - total: tổng số node trong nhóm
//   - activesT1/T7/T30: số node có updatedAt >= mốc 1/7/30 ngày
//   - newsT1/T7/T30: số node có createdAt >= mốc 1/7/30 ngày
//
// Chỉ xét các node có createdAt >= createdAfter để loại node quá cũ khỏi thống kê.
// Các mốc t1 > t7 > t30 nên số đếm cửa sổ luôn không giảm khi cửa sổ rộng ra.
func (s *NodeService) GroupMetricsByField(ctx context.Context, field string, t1, t7, t30, createdAfter int64) ([]nodemodels.NodeMetricsGroup, error) {
	fieldRef := "$" + field
	pipeline := []bson.M{
		{"$match": bson.M{"createdAt": bson.M{"$gte": createdAfter}}},
		{"$group": bson.M{
			"_id":   fieldRef,
			"total": bson.M{"$sum": 1},
			"activesT1": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$updatedAt", t1}}, 1, 0,
			}}},
			"activesT7": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$updatedAt", t7}}, 1, 0,
			}}},
			"activesT30": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$updatedAt", t30}}, 1, 0,
			}}},
			"newsT1": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$createdAt", t1}}, 1, 0,
			}}},
			"newsT7": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$createdAt", t7}}, 1, 0,
			}}},
			"newsT30": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$createdAt", t30}}, 1, 0,
			}}},
		}},
	}

	var rows []nodeMetricsRow
	if err := s.BaseServiceMongoImpl.Aggregate(ctx, pipeline, &rows); err != nil {
		return nil, common.ConvertMongoError(err)
	}

	groups := make([]nodemodels.NodeMetricsGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, nodemodels.NodeMetricsGroup{
			Key:        KeyToString(row.Key),
			Total:      row.Total,
			ActivesT1:  row.ActivesT1,
			ActivesT7:  row.ActivesT7,
			ActivesT30: row.ActivesT30,
			NewsT1:     row.NewsT1,
			NewsT7:     row.NewsT7,
			NewsT30:    row.NewsT30,
		})
	}
	return groups, nil
}

// KeyToString ép giá trị _id từ $group về string ổn định.
// Giá trị null (trường thiếu) trả về chuỗi rỗng, số trả về dạng thập phân.
func KeyToString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatInt(int64(val), 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}
