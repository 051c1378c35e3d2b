package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NodeSession lưu một phiên kết nối heartbeat của node.
// Một node có thể có nhiều session đồng thời (multi-instance agents).
// Session được tạo khi node đăng ký, cập nhật lastHeartbeatAt mỗi lần ping,
// và bị NodeOnlineWorker xóa khi quá hạn heartbeat.
// Collection: node_sessions
type NodeSession struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	NodeID          string             `json:"nodeId" bson:"nodeId"` // Reference to nodes.nodeId
	CreatedAt       int64              `json:"createdAt" bson:"createdAt"`             // Thời điểm node đăng nhập (Unix seconds)
	LastHeartbeatAt int64              `json:"lastHeartbeatAt" bson:"lastHeartbeatAt"` // Heartbeat lần cuối (Unix seconds)
	ClientIP        string             `json:"clientIp,omitempty" bson:"clientIp,omitempty"`
}
