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

// NodeSessionService xử lý logic cho session heartbeat của node
type NodeSessionService struct {
	*basesvc.BaseServiceMongoImpl[nodemodels.NodeSession]
}

// NewNodeSessionService tạo mới NodeSessionService
func NewNodeSessionService() (*NodeSessionService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.NodeSessions)
	if !exist {
		return nil, fmt.Errorf("failed to get node_sessions collection")
	}
	return &NodeSessionService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[nodemodels.NodeSession](collection),
	}, nil
}

// Create tạo session mới cho node vừa đăng ký
func (s *NodeSessionService) Create(ctx context.Context, nodeId string, clientIP string) (*nodemodels.NodeSession, error) {
	now := time.Now().Unix()
	session := nodemodels.NodeSession{
		ID:              primitive.NewObjectID(),
		NodeID:          nodeId,
		ClientIP:        clientIP,
		CreatedAt:       now,
		LastHeartbeatAt: now,
	}
	created, err := s.BaseServiceMongoImpl.InsertOne(ctx, session)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Touch cập nhật mốc heartbeat gần nhất của session
func (s *NodeSessionService) Touch(ctx context.Context, sessionId primitive.ObjectID) error {
	filter := bson.M{"_id": sessionId}
	update := bson.M{"$set": bson.M{"lastHeartbeatAt": time.Now().Unix()}}
	return s.BaseServiceMongoImpl.UpdateOne(ctx, filter, update, nil)
}

// FindExpired trả về các session có heartbeat cuối trước mốc deadline.
// Kết quả sắp xếp theo lastHeartbeatAt tăng dần để xử lý session cũ nhất trước.
func (s *NodeSessionService) FindExpired(ctx context.Context, deadline int64) ([]nodemodels.NodeSession, error) {
	filter := bson.M{"lastHeartbeatAt": bson.M{"$lt": deadline}}
	opts := options.Find().SetSort(bson.D{{Key: "lastHeartbeatAt", Value: 1}})
	return s.BaseServiceMongoImpl.Find(ctx, filter, opts)
}

// DeleteByID xóa session theo _id. Idempotent nếu session đã bị xóa trước đó.
func (s *NodeSessionService) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	return s.BaseServiceMongoImpl.DeleteOne(ctx, bson.M{"_id": id})
}

// CountByNodeID đếm số session còn sống của một node
func (s *NodeSessionService) CountByNodeID(ctx context.Context, nodeId string) (int64, error) {
	return s.BaseServiceMongoImpl.CountDocuments(ctx, bson.M{"nodeId": nodeId})
}
