package nodesvc

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	basesvc "fleet_platform/internal/api/base/service"
	nodemodels "fleet_platform/internal/api/node/models"
	"fleet_platform/internal/global"
)

// AreaService xử lý tra cứu khu vực hành chính theo areaId
type AreaService struct {
	*basesvc.BaseServiceMongoImpl[nodemodels.Area]
}

// NewAreaService tạo mới AreaService
func NewAreaService() (*AreaService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Areas)
	if !exist {
		return nil, fmt.Errorf("failed to get areas collection")
	}
	return &AreaService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[nodemodels.Area](collection),
	}, nil
}

// BatchResolve tra cứu một lượt nhiều areaId, trả về map areaId -> path đầy đủ.
// areaId không tồn tại thì vắng mặt trong map, caller tự quyết định giá trị thay thế.
func (s *AreaService) BatchResolve(ctx context.Context, ids []int32) (map[int32]string, error) {
	result := make(map[int32]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	filter := bson.M{"areaId": bson.M{"$in": ids}}
	areas, err := s.BaseServiceMongoImpl.Find(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	for _, area := range areas {
		result[area.AreaID] = area.Path
	}
	return result, nil
}
