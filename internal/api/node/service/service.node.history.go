package nodesvc

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "fleet_platform/internal/api/base/service"
	nodemodels "fleet_platform/internal/api/node/models"
	"fleet_platform/internal/global"
	"fleet_platform/internal/logger"
)

// Các action chuẩn ghi vào lịch sử node
const (
	HistoryActionRegister       = "register"        // Node đăng ký / khởi động lại
	HistoryActionLogout         = "logout"          // Node chủ động đăng xuất
	HistoryActionSessionTimeout = "session timeout" // Session hết hạn do mất heartbeat
)

// NodeHistoryService xử lý logic cho lịch sử online/offline của node
type NodeHistoryService struct {
	*basesvc.BaseServiceMongoImpl[nodemodels.NodeHistory]
}

// NewNodeHistoryService tạo mới NodeHistoryService
func NewNodeHistoryService() (*NodeHistoryService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.NodeHistories)
	if !exist {
		return nil, fmt.Errorf("failed to get node_histories collection")
	}
	return &NodeHistoryService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[nodemodels.NodeHistory](collection),
	}, nil
}

// Record ghi một dòng lịch sử cho node
func (s *NodeHistoryService) Record(ctx context.Context, nodeId string, action string, success bool, message string, clientIP string) error {
	history := nodemodels.NodeHistory{
		ID:        primitive.NewObjectID(),
		NodeID:    nodeId,
		Action:    action,
		Success:   success,
		Message:   message,
		ClientIP:  clientIP,
		CreatedAt: time.Now().Unix(),
	}
	if _, err := s.BaseServiceMongoImpl.InsertOne(ctx, history); err != nil {
		return err
	}

	// Lịch sử online/offline là audit trail, ghi song song vào audit log
	logger.GetAuditLogger().WithFields(logrus.Fields{
		"nodeId":  nodeId,
		"action":  action,
		"success": success,
	}).Info("📝 [NODE_HISTORY] Ghi lịch sử node")
	return nil
}

// FindRecentByNodeID trả về lịch sử gần nhất của một node, mới nhất trước
func (s *NodeHistoryService) FindRecentByNodeID(ctx context.Context, nodeId string, limit int64) ([]nodemodels.NodeHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	filter := bson.M{"nodeId": nodeId}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	histories, err := s.BaseServiceMongoImpl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find histories of node %s: %w", nodeId, err)
	}
	return histories, nil
}
