package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Node lưu thông tin một node đã đăng ký vào fleet
// Collection: nodes
type Node struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	NodeID            string             `json:"nodeId" bson:"nodeId"` // Định danh ổn định của node - id chung giữa các collection
	Name              string             `json:"name" bson:"name"`
	Category          string             `json:"category" bson:"category"`                 // Nhóm node (dùng làm key suppression alarm cùng webHook)
	WebHook           string             `json:"webHook,omitempty" bson:"webHook,omitempty"` // URL nhận cảnh báo offline
	AlarmOnOffline    bool               `json:"alarmOnOffline" bson:"alarmOnOffline"`     // Bật cảnh báo khi node offline
	OnlineTimeSeconds int64              `json:"onlineTimeSeconds" bson:"onlineTimeSeconds"` // Tổng thời gian online tích lũy (giây)

	// Các thuộc tính dimension dùng cho thống kê
	OSKind       string `json:"osKind,omitempty" bson:"osKind,omitempty"`
	ProductCode  string `json:"productCode,omitempty" bson:"productCode,omitempty"`
	Version      string `json:"version,omitempty" bson:"version,omitempty"`
	Runtime      string `json:"runtime,omitempty" bson:"runtime,omitempty"` // Phiên bản runtime đầy đủ (vd: "3.1.5")
	Framework    string `json:"framework,omitempty" bson:"framework,omitempty"`
	CityID       int32  `json:"cityId,omitempty" bson:"cityId,omitempty"` // Id thành phố, resolve sang path qua collection areas
	Architecture string `json:"architecture,omitempty" bson:"architecture,omitempty"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt"` // Unix seconds
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"` // Unix seconds, cập nhật mỗi heartbeat
}
