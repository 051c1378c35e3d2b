package nodesvc

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	nodemodels "fleet_platform/internal/api/node/models"
	"fleet_platform/internal/logger"
)

// AlarmPolicy quyết định có được phép bắn cảnh báo cho một đích webhook hay không
type AlarmPolicy interface {
	CanAlarm(category string, webhook string) bool
}

// AlarmDispatcher gửi cảnh báo tới webhook đích
type AlarmDispatcher interface {
	Send(ctx context.Context, webhook string, category string, title string, content string) error
}

// SessionCounter đếm số session còn sống của một node
type SessionCounter interface {
	CountByNodeID(ctx context.Context, nodeId string) (int64, error)
}

// NodeOfflineNotifier xử lý cảnh báo khi node chuyển sang offline.
// Dùng chung cho cả luồng quét session hết hạn lẫn luồng node chủ động logout.
type NodeOfflineNotifier struct {
	sessions   SessionCounter
	policy     AlarmPolicy
	dispatcher AlarmDispatcher
	log        *logrus.Logger
}

// NewNodeOfflineNotifier tạo mới NodeOfflineNotifier
func NewNodeOfflineNotifier(sessions SessionCounter, policy AlarmPolicy, dispatcher AlarmDispatcher) *NodeOfflineNotifier {
	return &NodeOfflineNotifier{
		sessions:   sessions,
		policy:     policy,
		dispatcher: dispatcher,
		log:        logger.GetAppLogger(),
	}
}

// OnNodeOffline xử lý một node vừa mất session.
//
// Chỉ bắn cảnh báo khi đủ cả ba điều kiện, theo thứ tự:
//  1. Node có bật AlarmOnOffline
//  2. Node không còn session nào khác đang sống (mất session cuối cùng mới tính là offline)
//  3. Policy cho phép (webhook hợp lệ và chưa vượt ngưỡng throttle)
//
// Lỗi khi gửi cảnh báo chỉ ghi log, không chặn luồng xử lý session.
func (n *NodeOfflineNotifier) OnNodeOffline(ctx context.Context, node *nodemodels.Node, reason string, clientIP string) {
	if node == nil || !node.AlarmOnOffline {
		return
	}

	remaining, err := n.sessions.CountByNodeID(ctx, node.NodeID)
	if err != nil {
		n.log.WithFields(logrus.Fields{
			"node_id": node.NodeID,
			"error":   err.Error(),
		}).Error("🚨 [NODE_OFFLINE] Không đếm được session còn lại của node")
		return
	}
	if remaining > 0 {
		// Node còn session khác đang sống, chưa offline thật sự
		return
	}

	if !n.policy.CanAlarm(node.Category, node.WebHook) {
		return
	}

	title := "Cảnh báo node offline"
	content := fmt.Sprintf("Node [%s] đã offline! %s IP=%s", node.Name, reason, clientIP)
	if err := n.dispatcher.Send(ctx, node.WebHook, node.Category, title, content); err != nil {
		n.log.WithFields(logrus.Fields{
			"node_id": node.NodeID,
			"webhook": node.WebHook,
			"error":   err.Error(),
		}).Error("🚨 [NODE_OFFLINE] Gửi cảnh báo offline thất bại")
		return
	}

	// Cảnh báo đã gửi đi là sự kiện audit, ghi vào audit log
	logger.GetAuditLogger().WithFields(logrus.Fields{
		"node_id":  node.NodeID,
		"category": node.Category,
		"webhook":  node.WebHook,
	}).Info("🚨 [NODE_OFFLINE] Đã gửi cảnh báo node offline")
}
