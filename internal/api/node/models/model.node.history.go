package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NodeHistory lưu một dòng lịch sử online/offline của node (audit trail).
// Collection: node_histories
type NodeHistory struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	NodeID    string             `json:"nodeId" bson:"nodeId"` // Reference to nodes.nodeId
	Action    string             `json:"action" bson:"action"` // Vd: "session timeout", "logout", "register"
	Success   bool               `json:"success" bson:"success"`
	Message   string             `json:"message,omitempty" bson:"message,omitempty"`
	ClientIP  string             `json:"clientIp,omitempty" bson:"clientIp,omitempty"`
	CreatedAt int64              `json:"createdAt" bson:"createdAt"` // Unix seconds
}
