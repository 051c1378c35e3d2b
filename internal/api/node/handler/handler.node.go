// Package nodehdl xử lý các route cho domain Node: đăng ký, heartbeat, logout,
// thống kê và lịch sử.
package nodehdl

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basehdl "fleet_platform/internal/api/base/handler"
	nodedto "fleet_platform/internal/api/node/dto"
	nodesvc "fleet_platform/internal/api/node/service"
	"fleet_platform/internal/common"
	"fleet_platform/internal/global"
	"fleet_platform/internal/logger"
)

// NodeHandler xử lý các route của domain Node
type NodeHandler struct {
	nodeService    *nodesvc.NodeService
	sessionService *nodesvc.NodeSessionService
	historyService *nodesvc.NodeHistoryService
	statService    *nodesvc.NodeStatService
	tokenService   *nodesvc.NodeTokenService
	notifier       *nodesvc.NodeOfflineNotifier
}

// NewNodeHandler tạo mới NodeHandler
func NewNodeHandler(tokenService *nodesvc.NodeTokenService, notifier *nodesvc.NodeOfflineNotifier) (*NodeHandler, error) {
	nodeService, err := nodesvc.NewNodeService()
	if err != nil {
		return nil, fmt.Errorf("failed to create node service: %w", err)
	}
	sessionService, err := nodesvc.NewNodeSessionService()
	if err != nil {
		return nil, fmt.Errorf("failed to create node session service: %w", err)
	}
	historyService, err := nodesvc.NewNodeHistoryService()
	if err != nil {
		return nil, fmt.Errorf("failed to create node history service: %w", err)
	}
	statService, err := nodesvc.NewNodeStatService()
	if err != nil {
		return nil, fmt.Errorf("failed to create node stat service: %w", err)
	}
	return &NodeHandler{
		nodeService:    nodeService,
		sessionService: sessionService,
		historyService: historyService,
		statService:    statService,
		tokenService:   tokenService,
		notifier:       notifier,
	}, nil
}

// HandleRegister xử lý node đăng ký / khởi động lại: cập nhật thông tin môi
// trường, mở session mới và phát hành token phiên.
func (h *NodeHandler) HandleRegister(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var input nodedto.NodeRegisterInput
		if err := c.Bind().Body(&input); err != nil {
			return basehdl.HandleError(c, common.NewError(
				common.ErrCodeValidationFormat,
				"Dữ liệu gửi lên không đúng định dạng JSON",
				common.StatusBadRequest,
				nil,
			))
		}
		if err := global.Validate.Struct(&input); err != nil {
			return basehdl.HandleError(c, common.NewError(
				common.ErrCodeValidationInput,
				"Dữ liệu đăng ký không hợp lệ",
				common.StatusBadRequest,
				err.Error(),
			))
		}

		ctx := c.Context()
		updateData := map[string]interface{}{
			"name":           input.Name,
			"category":       input.Category,
			"webHook":        input.WebHook,
			"alarmOnOffline": input.AlarmOnOffline,
			"osKind":         input.OSKind,
			"productCode":    input.ProductCode,
			"version":        input.Version,
			"runtime":        input.Runtime,
			"framework":      input.Framework,
			"cityId":         input.CityID,
			"architecture":   input.Architecture,
		}
		node, err := h.nodeService.UpsertByNodeID(ctx, input.NodeID, updateData)
		if err != nil {
			return basehdl.HandleError(c, err)
		}

		session, err := h.sessionService.Create(ctx, node.NodeID, c.IP())
		if err != nil {
			return basehdl.HandleError(c, err)
		}

		token, err := h.tokenService.Generate(node.NodeID, session.ID.Hex())
		if err != nil {
			return basehdl.HandleError(c, common.NewError(
				common.ErrCodeAuthToken,
				"Không phát hành được token phiên",
				common.StatusInternalServerError,
				nil,
			))
		}

		if err := h.historyService.Record(ctx, node.NodeID, nodesvc.HistoryActionRegister, true, "Node đăng ký thành công", c.IP()); err != nil {
			logger.GetAppLogger().WithError(err).WithField("nodeId", node.NodeID).
				Warn("🖥️ [NODE] Ghi lịch sử đăng ký thất bại")
		}

		logger.GetAppLogger().WithFields(map[string]interface{}{
			"nodeId":    node.NodeID,
			"sessionId": session.ID.Hex(),
		}).Info("🖥️ [NODE] Node đăng ký thành công")

		return basehdl.HandleSuccess(c, nodedto.NodeRegisterResponse{
			NodeID:    node.NodeID,
			SessionID: session.ID.Hex(),
			Token:     token,
		})
	})
}

// HandlePing xử lý heartbeat từ node: gia hạn session và mốc hoạt động của node
func (h *NodeHandler) HandlePing(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		nodeId, sessionId, err := sessionFromLocals(c)
		if err != nil {
			return basehdl.HandleError(c, err)
		}

		ctx := c.Context()
		if err := h.sessionService.Touch(ctx, sessionId); err != nil {
			return basehdl.HandleError(c, err)
		}
		if err := h.nodeService.TouchUpdatedAt(ctx, nodeId); err != nil {
			return basehdl.HandleError(c, err)
		}

		return basehdl.HandleSuccess(c, nodedto.NodePingResponse{
			NodeID:     nodeId,
			ServerTime: time.Now().Unix(),
		})
	})
}

// HandleLogout xử lý node chủ động đăng xuất: đóng session, ghi lịch sử
// và báo offline nếu đây là session cuối cùng của node.
func (h *NodeHandler) HandleLogout(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		nodeId, sessionId, err := sessionFromLocals(c)
		if err != nil {
			return basehdl.HandleError(c, err)
		}

		ctx := c.Context()
		if err := h.sessionService.DeleteByID(ctx, sessionId); err != nil {
			return basehdl.HandleError(c, err)
		}

		if err := h.historyService.Record(ctx, nodeId, nodesvc.HistoryActionLogout, true, "Node chủ động đăng xuất", c.IP()); err != nil {
			logger.GetAppLogger().WithError(err).WithField("nodeId", nodeId).
				Warn("🖥️ [NODE] Ghi lịch sử logout thất bại")
		}

		node, err := h.nodeService.FindByNodeID(ctx, nodeId)
		if err == nil {
			h.notifier.OnNodeOffline(ctx, node, "Node chủ động đăng xuất.", c.IP())
		}

		return basehdl.HandleSuccess(c, nil)
	})
}

// HandleStats trả về thống kê node theo ngày, mặc định là hôm nay
func (h *NodeHandler) HandleStats(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var query nodedto.NodeStatsQuery
		if err := c.Bind().Query(&query); err != nil {
			return basehdl.HandleError(c, common.ErrInvalidInput)
		}
		if err := global.Validate.Struct(&query); err != nil {
			return basehdl.HandleError(c, common.NewError(
				common.ErrCodeValidationInput,
				"Tham số date phải có dạng YYYY-MM-DD",
				common.StatusBadRequest,
				nil,
			))
		}
		date := query.Date
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}

		stats, err := h.statService.FindByDate(c.Context(), date)
		if err != nil {
			return basehdl.HandleError(c, err)
		}
		return basehdl.HandleSuccess(c, stats)
	})
}

// HandleHistory trả về lịch sử online/offline gần nhất của một node
func (h *NodeHandler) HandleHistory(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		nodeId := c.Params("nodeId")
		if nodeId == "" {
			return basehdl.HandleError(c, common.ErrRequiredField)
		}

		limit, err := strconv.ParseInt(c.Query("limit", "100"), 10, 64)
		if err != nil || limit <= 0 {
			limit = 100
		}

		histories, findErr := h.historyService.FindRecentByNodeID(c.Context(), nodeId, limit)
		if findErr != nil {
			return basehdl.HandleError(c, findErr)
		}
		return basehdl.HandleSuccess(c, histories)
	})
}

// sessionFromLocals đọc (nodeId, sessionId) do middleware xác thực đặt vào Locals
func sessionFromLocals(c fiber.Ctx) (string, primitive.ObjectID, error) {
	nodeId, _ := c.Locals("nodeId").(string)
	sessionHex, _ := c.Locals("sessionId").(string)
	if nodeId == "" || sessionHex == "" {
		return "", primitive.NilObjectID, common.ErrTokenMissing
	}
	sessionId, err := primitive.ObjectIDFromHex(sessionHex)
	if err != nil {
		return "", primitive.NilObjectID, common.ErrTokenInvalid
	}
	return nodeId, sessionId, nil
}
