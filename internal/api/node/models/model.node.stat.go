package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NodeStat lưu một dòng thống kê theo (category, date, key).
// Bất biến: không có 2 dòng trùng (category, date, key) — đảm bảo bằng unique index.
// Collection: node_stats
type NodeStat struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Category   string             `json:"category" bson:"category"` // Tên dimension (vd: "OS", "Product")
	Date       string             `json:"date" bson:"date"`         // Ngày thống kê, định dạng "2006-01-02"
	Key        string             `json:"key" bson:"key"`           // Giá trị dimension (có thể rỗng)
	Total      int64              `json:"total" bson:"total"`
	Actives    int64              `json:"actives" bson:"actives"`       // Node hoạt động trong 1 ngày
	ActivesT7  int64              `json:"activesT7" bson:"activesT7"`   // Node hoạt động trong 7 ngày
	ActivesT30 int64              `json:"activesT30" bson:"activesT30"` // Node hoạt động trong 30 ngày
	News       int64              `json:"news" bson:"news"`             // Node mới trong 1 ngày
	NewsT7     int64              `json:"newsT7" bson:"newsT7"`         // Node mới trong 7 ngày
	NewsT30    int64              `json:"newsT30" bson:"newsT30"`       // Node mới trong 30 ngày
	CreatedAt  int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt  int64              `json:"updatedAt" bson:"updatedAt"`
}

// NodeMetricsGroup là kết quả một nhóm trong grouped query metrics theo dimension.
// Key đã được coerce sang string ("" cho null/empty).
type NodeMetricsGroup struct {
	Key        string
	Total      int64
	ActivesT1  int64
	ActivesT7  int64
	ActivesT30 int64
	NewsT1     int64
	NewsT7     int64
	NewsT30    int64
}
