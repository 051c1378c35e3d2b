package global

import (
	"fleet_platform/config"
	"fleet_platform/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_Fleet_CollectionName chứa tên các collection trong MongoDB
type MongoDB_Fleet_CollectionName struct {
	Nodes         string // Tên collection cho node đã đăng ký
	NodeSessions  string // Tên collection cho session heartbeat của node
	NodeStats     string // Tên collection cho thống kê node theo dimension
	NodeHistories string // Tên collection cho lịch sử online/offline của node
	Areas         string // Tên collection cho khu vực (city id -> path)
}

// Các biến toàn cục
var Validate *validator.Validate                                                          // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client                                                         // Phiên kết nối tới MongoDB
var ServerConfig *config.Configuration                                                    // Cấu hình của server
var MongoDB_ColNames MongoDB_Fleet_CollectionName = *new(MongoDB_Fleet_CollectionName) // Tên các collection

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()      // Registry chứa các databases
