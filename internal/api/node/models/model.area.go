package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Area lưu một khu vực địa lý dùng để resolve cityId của node sang tên phân cấp.
// Collection: areas
type Area struct {
	ID     primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AreaID int32              `json:"areaId" bson:"areaId"` // Id số của khu vực (cityId trên node)
	Name   string             `json:"name" bson:"name"`
	Path   string             `json:"path" bson:"path"` // Đường dẫn phân cấp (vd: "Vietnam/Hà Nội")
}
