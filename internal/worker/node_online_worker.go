package worker

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	nodemodels "fleet_platform/internal/api/node/models"
	"fleet_platform/internal/logger"
)

// SessionStore là phần kho session mà worker quét cần dùng
type SessionStore interface {
	FindExpired(ctx context.Context, deadline int64) ([]nodemodels.NodeSession, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
}

// NodeStore là phần kho node mà worker quét cần dùng
type NodeStore interface {
	FindByNodeID(ctx context.Context, nodeId string) (*nodemodels.Node, error)
	AddOnlineTime(ctx context.Context, nodeId string, seconds int64) error
}

// HistoryRecorder ghi lịch sử online/offline của node
type HistoryRecorder interface {
	Record(ctx context.Context, nodeId string, action string, success bool, message string, clientIP string) error
}

// OfflineNotifier xử lý cảnh báo khi node mất session
type OfflineNotifier interface {
	OnNodeOffline(ctx context.Context, node *nodemodels.Node, reason string, clientIP string)
}

// Các session tạo trước mốc này coi như dữ liệu hỏng, không cộng thời gian online
var onlineTimeFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

// NodeOnlineWorker quét session hết hạn theo chu kỳ: xóa session mất heartbeat,
// ghi lịch sử timeout, cộng dồn thời gian online và bắn cảnh báo offline.
//
// Worker này phải là writer duy nhất của việc xóa session hết hạn: chạy nhiều
// instance đồng thời sẽ gây ghi trùng lịch sử và cộng trùng thời gian online.
type NodeOnlineWorker struct {
	sessions SessionStore
	nodes    NodeStore
	history  HistoryRecorder
	notifier OfflineNotifier

	sessionTimeout time.Duration // <= 0 nghĩa là tắt quét
	interval       time.Duration // Khoảng thời gian giữa các lần quét
	initialDelay   time.Duration // Độ trễ trước lần quét đầu tiên

	errSink func(error) // Nhận lỗi từ các thao tác ghi fire-and-forget
}

// NewNodeOnlineWorker tạo mới NodeOnlineWorker.
// Tham số:
//   - sessionTimeout: Session không heartbeat quá khoảng này coi là hết hạn (<= 0: tắt quét)
//   - interval: Khoảng thời gian giữa các lần quét (mặc định: 30 giây)
//   - initialDelay: Độ trễ trước lần quét đầu tiên (mặc định: 5 giây)
func NewNodeOnlineWorker(sessions SessionStore, nodes NodeStore, history HistoryRecorder, notifier OfflineNotifier, sessionTimeout, interval, initialDelay time.Duration) *NodeOnlineWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if initialDelay < 0 {
		initialDelay = 5 * time.Second
	}
	w := &NodeOnlineWorker{
		sessions:       sessions,
		nodes:          nodes,
		history:        history,
		notifier:       notifier,
		sessionTimeout: sessionTimeout,
		interval:       interval,
		initialDelay:   initialDelay,
	}
	w.errSink = func(err error) {
		logger.GetErrorLogger().WithError(err).Error("🧹 [NODE_ONLINE] Lỗi ghi nền khi cộng thời gian online")
	}
	return w
}

// SetErrSink thay nơi nhận lỗi của các thao tác ghi nền (phục vụ test và giám sát)
func (w *NodeOnlineWorker) SetErrSink(sink func(error)) {
	if sink != nil {
		w.errSink = sink
	}
}

// Start chạy worker trong vòng lặp cho tới khi ctx bị hủy
func (w *NodeOnlineWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	if w.sessionTimeout <= 0 {
		log.Info("🧹 [NODE_ONLINE] sessionTimeout <= 0, tắt quét session hết hạn")
		return
	}

	log.WithFields(map[string]interface{}{
		"sessionTimeout": w.sessionTimeout.String(),
		"interval":       w.interval.String(),
		"initialDelay":   w.initialDelay.String(),
	}).Info("🧹 [NODE_ONLINE] Starting Node Online Worker...")

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.initialDelay):
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			log.Info("🧹 [NODE_ONLINE] Node Online Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// runOnce chạy một lượt quét, nuốt panic để không giết vòng lặp
func (w *NodeOnlineWorker) runOnce(ctx context.Context) {
	log := logger.GetAppLogger()

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"panic": r,
			}).Error("🧹 [NODE_ONLINE] Panic khi quét session, sẽ tiếp tục ở lần chạy tiếp theo")
		}
	}()

	// ctx của vòng lặp chỉ dùng để dừng lịch chạy. Lượt quét đã bắt đầu
	// phải chạy trọn vẹn, không bị bỏ dở giữa chừng khi shutdown.
	swept, err := w.Sweep(context.WithoutCancel(ctx), time.Now())
	if err != nil {
		log.WithError(err).Error("🧹 [NODE_ONLINE] Lỗi quét session hết hạn")
		return
	}
	if swept > 0 {
		log.WithFields(map[string]interface{}{
			"swept": swept,
		}).Info("🧹 [NODE_ONLINE] Đã dọn session hết hạn")
	}
}

// Sweep quét và xử lý toàn bộ session hết hạn tính tại thời điểm now.
// Trả về số session đã xử lý. Lỗi của từng session chỉ bỏ qua session đó.
func (w *NodeOnlineWorker) Sweep(ctx context.Context, now time.Time) (int, error) {
	deadline := now.Add(-w.sessionTimeout).Unix()
	expired, err := w.sessions.FindExpired(ctx, deadline)
	if err != nil {
		return 0, fmt.Errorf("find expired sessions: %w", err)
	}

	swept := 0
	for _, session := range expired {
		if err := w.sessions.DeleteByID(ctx, session.ID); err != nil {
			logger.GetAppLogger().WithError(err).WithFields(map[string]interface{}{
				"sessionId": session.ID.Hex(),
				"nodeId":    session.NodeID,
			}).Warn("🧹 [NODE_ONLINE] Xóa session thất bại, bỏ qua và sẽ thử lại lần sau")
			continue
		}

		w.handleExpired(ctx, session)
		swept++
	}
	return swept, nil
}

// handleExpired xử lý hậu kỳ cho một session vừa bị xóa:
// ghi lịch sử, cộng thời gian online và báo offline.
func (w *NodeOnlineWorker) handleExpired(ctx context.Context, session nodemodels.NodeSession) {
	log := logger.GetAppLogger()
	timeoutSeconds := int64(w.sessionTimeout / time.Second)

	node, err := w.nodes.FindByNodeID(ctx, session.NodeID)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"nodeId": session.NodeID,
		}).Warn("🧹 [NODE_ONLINE] Không tìm thấy node của session hết hạn")
		node = nil
	}

	// Lịch sử timeout luôn được ghi, kể cả khi node không còn tồn tại.
	// success = true: dòng này ghi nhận việc phát hiện offline thành công.
	identity := session.NodeID
	if node != nil && node.Name != "" {
		identity = node.Name
	}
	message := fmt.Sprintf(
		"Node [%s] đăng nhập lúc %s, hoạt động lần cuối lúc %s, quá %d giây không nhận được heartbeat",
		identity,
		time.Unix(session.CreatedAt, 0).UTC().Format(time.RFC3339),
		time.Unix(session.LastHeartbeatAt, 0).UTC().Format(time.RFC3339),
		timeoutSeconds,
	)
	if err := w.history.Record(ctx, session.NodeID, "session timeout", true, message, session.ClientIP); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"nodeId": session.NodeID,
		}).Warn("🧹 [NODE_ONLINE] Ghi lịch sử timeout thất bại")
	}

	// Cộng dồn thời gian online của session. Ghi nền để không chặn vòng quét,
	// lỗi đẩy qua errSink.
	duration := session.LastHeartbeatAt - session.CreatedAt
	if session.CreatedAt > onlineTimeFloor && duration > 0 {
		nodeId := session.NodeID
		go func() {
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.nodes.AddOnlineTime(saveCtx, nodeId, duration); err != nil {
				w.errSink(fmt.Errorf("add online time for node %s: %w", nodeId, err))
			}
		}()
	}

	reason := fmt.Sprintf("Quá %d giây không nhận được heartbeat.", timeoutSeconds)
	w.notifier.OnNodeOffline(ctx, node, reason, session.ClientIP)
}
