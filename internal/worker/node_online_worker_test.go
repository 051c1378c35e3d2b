// Package worker - Test vòng quét session hết hạn: xóa session, ghi lịch sử,
// cộng thời gian online và báo offline.
package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	nodemodels "fleet_platform/internal/api/node/models"
)

type fakeSessionStore struct {
	expired   []nodemodels.NodeSession
	deleted   []primitive.ObjectID
	failOnIDs map[primitive.ObjectID]bool
}

func (f *fakeSessionStore) FindExpired(_ context.Context, _ int64) ([]nodemodels.NodeSession, error) {
	return f.expired, nil
}

func (f *fakeSessionStore) DeleteByID(_ context.Context, id primitive.ObjectID) error {
	if f.failOnIDs[id] {
		return context.DeadlineExceeded
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeNodeStore struct {
	nodes   map[string]*nodemodels.Node
	addedCh chan int64
}

func (f *fakeNodeStore) FindByNodeID(_ context.Context, nodeId string) (*nodemodels.Node, error) {
	node, ok := f.nodes[nodeId]
	if !ok {
		return nil, context.Canceled
	}
	return node, nil
}

func (f *fakeNodeStore) AddOnlineTime(_ context.Context, _ string, seconds int64) error {
	f.addedCh <- seconds
	return nil
}

type historyRecord struct {
	nodeId  string
	action  string
	success bool
	message string
}

type fakeHistoryRecorder struct {
	records []historyRecord
}

func (f *fakeHistoryRecorder) Record(_ context.Context, nodeId string, action string, success bool, message string, _ string) error {
	f.records = append(f.records, historyRecord{nodeId: nodeId, action: action, success: success, message: message})
	return nil
}

type offlineCall struct {
	node   *nodemodels.Node
	reason string
}

type fakeOfflineNotifier struct {
	calls []offlineCall
}

func (f *fakeOfflineNotifier) OnNodeOffline(_ context.Context, node *nodemodels.Node, reason string, _ string) {
	f.calls = append(f.calls, offlineCall{node: node, reason: reason})
}

func newTestWorker(sessions SessionStore, nodes NodeStore, history *fakeHistoryRecorder, notifier *fakeOfflineNotifier) *NodeOnlineWorker {
	return NewNodeOnlineWorker(sessions, nodes, history, notifier, 600*time.Second, 30*time.Second, 0)
}

func expiredSession(nodeId string, createdAt, lastHeartbeatAt int64) nodemodels.NodeSession {
	return nodemodels.NodeSession{
		ID:              primitive.NewObjectID(),
		NodeID:          nodeId,
		CreatedAt:       createdAt,
		LastHeartbeatAt: lastHeartbeatAt,
		ClientIP:        "10.0.0.1",
	}
}

func TestSweep_CongDonThoiGianOnline(t *testing.T) {
	now := time.Now()
	session := expiredSession("node-1", now.Unix()-1000, now.Unix()-400)

	sessions := &fakeSessionStore{expired: []nodemodels.NodeSession{session}}
	nodes := &fakeNodeStore{
		nodes:   map[string]*nodemodels.Node{"node-1": {NodeID: "node-1", Name: "Node 1"}},
		addedCh: make(chan int64, 1),
	}
	history := &fakeHistoryRecorder{}
	notifier := &fakeOfflineNotifier{}

	w := newTestWorker(sessions, nodes, history, notifier)
	swept, err := w.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep trả về lỗi: %v", err)
	}
	if swept != 1 {
		t.Fatalf("Sweep phải xử lý 1 session, nhận được %d", swept)
	}

	select {
	case added := <-nodes.addedCh:
		if added != 600 {
			t.Errorf("Thời gian online phải là 600 giây (heartbeat cuối - lúc tạo), nhận được %d", added)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AddOnlineTime không được gọi trong 2 giây")
	}

	if len(history.records) != 1 {
		t.Fatalf("Phải ghi đúng 1 dòng lịch sử, nhận được %d", len(history.records))
	}
	if history.records[0].action != "session timeout" {
		t.Errorf("Action lịch sử phải là 'session timeout', nhận được %q", history.records[0].action)
	}
	if !history.records[0].success {
		t.Error("Dòng lịch sử timeout ghi nhận việc phát hiện offline thành công, phải có success = true")
	}
	if !strings.Contains(history.records[0].message, "Node 1") {
		t.Errorf("Message lịch sử phải mở đầu bằng định danh node, nhận được %q", history.records[0].message)
	}
}

func TestSweep_KhongCongThoiGianKhiSessionHong(t *testing.T) {
	now := time.Now()
	// Session có createdAt trước năm 2000 coi như dữ liệu hỏng
	session := expiredSession("node-1", time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC).Unix(), now.Unix()-400)

	sessions := &fakeSessionStore{expired: []nodemodels.NodeSession{session}}
	nodes := &fakeNodeStore{
		nodes:   map[string]*nodemodels.Node{"node-1": {NodeID: "node-1"}},
		addedCh: make(chan int64, 1),
	}
	history := &fakeHistoryRecorder{}
	notifier := &fakeOfflineNotifier{}

	w := newTestWorker(sessions, nodes, history, notifier)
	if _, err := w.Sweep(context.Background(), now); err != nil {
		t.Fatalf("Sweep trả về lỗi: %v", err)
	}

	select {
	case added := <-nodes.addedCh:
		t.Errorf("Không được cộng thời gian online cho session hỏng, nhận được %d", added)
	case <-time.After(200 * time.Millisecond):
	}

	// Lịch sử và thông báo offline vẫn phải chạy bình thường
	if len(history.records) != 1 {
		t.Errorf("Vẫn phải ghi lịch sử timeout, nhận được %d dòng", len(history.records))
	}
	if len(notifier.calls) != 1 {
		t.Errorf("Vẫn phải gọi thông báo offline, nhận được %d lần", len(notifier.calls))
	}
}

func TestSweep_GhiLichSuKhiNodeKhongTonTai(t *testing.T) {
	now := time.Now()
	session := expiredSession("node-bi-xoa", now.Unix()-1000, now.Unix()-700)

	sessions := &fakeSessionStore{expired: []nodemodels.NodeSession{session}}
	nodes := &fakeNodeStore{nodes: map[string]*nodemodels.Node{}, addedCh: make(chan int64, 1)}
	history := &fakeHistoryRecorder{}
	notifier := &fakeOfflineNotifier{}

	w := newTestWorker(sessions, nodes, history, notifier)
	swept, err := w.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep trả về lỗi: %v", err)
	}
	if swept != 1 {
		t.Fatalf("Session vẫn phải được dọn dù node không còn, swept = %d", swept)
	}

	if len(history.records) != 1 {
		t.Fatalf("Lịch sử timeout phải được ghi kể cả khi node không tồn tại, nhận được %d dòng", len(history.records))
	}
	if history.records[0].nodeId != "node-bi-xoa" {
		t.Errorf("Lịch sử phải ghi theo nodeId của session, nhận được %q", history.records[0].nodeId)
	}
	if !strings.Contains(history.records[0].message, "node-bi-xoa") {
		t.Errorf("Không tra được node thì message phải dùng nodeId của session làm định danh, nhận được %q", history.records[0].message)
	}

	// Notifier nhận node nil, tự quyết định bỏ qua
	if len(notifier.calls) != 1 || notifier.calls[0].node != nil {
		t.Errorf("Notifier phải được gọi với node nil, calls = %+v", notifier.calls)
	}
}

func TestSweep_BoQuaSessionKhiXoaThatBai(t *testing.T) {
	now := time.Now()
	failing := expiredSession("node-1", now.Unix()-1000, now.Unix()-700)
	ok := expiredSession("node-2", now.Unix()-1000, now.Unix()-700)

	sessions := &fakeSessionStore{
		expired:   []nodemodels.NodeSession{failing, ok},
		failOnIDs: map[primitive.ObjectID]bool{failing.ID: true},
	}
	nodes := &fakeNodeStore{
		nodes:   map[string]*nodemodels.Node{"node-1": {NodeID: "node-1"}, "node-2": {NodeID: "node-2"}},
		addedCh: make(chan int64, 2),
	}
	history := &fakeHistoryRecorder{}
	notifier := &fakeOfflineNotifier{}

	w := newTestWorker(sessions, nodes, history, notifier)
	swept, err := w.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep trả về lỗi: %v", err)
	}
	if swept != 1 {
		t.Fatalf("Chỉ session xóa thành công mới được xử lý tiếp, swept = %d", swept)
	}
	if len(history.records) != 1 || history.records[0].nodeId != "node-2" {
		t.Errorf("Chỉ node-2 được ghi lịch sử, records = %+v", history.records)
	}
}

func TestSweep_ErrSinkNhanLoiGhiNen(t *testing.T) {
	now := time.Now()
	session := expiredSession("node-1", now.Unix()-1000, now.Unix()-400)

	sessions := &fakeSessionStore{expired: []nodemodels.NodeSession{session}}
	nodes := &failingNodeStore{
		inner: &fakeNodeStore{
			nodes:   map[string]*nodemodels.Node{"node-1": {NodeID: "node-1"}},
			addedCh: make(chan int64, 1),
		},
	}
	history := &fakeHistoryRecorder{}
	notifier := &fakeOfflineNotifier{}

	errCh := make(chan error, 1)
	w := NewNodeOnlineWorker(sessions, nodes, history, notifier, 600*time.Second, 30*time.Second, 0)
	w.SetErrSink(func(err error) { errCh <- err })

	if _, err := w.Sweep(context.Background(), now); err != nil {
		t.Fatalf("Sweep trả về lỗi: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("errSink phải nhận lỗi khác nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("errSink không nhận được lỗi ghi nền trong 2 giây")
	}
}

// cancellingSessionStore hủy context của vòng lặp ngay sau session đầu tiên
// và từ chối mọi thao tác trên context đã chết, giống hành vi của mongo driver.
type cancellingSessionStore struct {
	expired []nodemodels.NodeSession
	cancel  context.CancelFunc
	deleted int
}

func (f *cancellingSessionStore) FindExpired(ctx context.Context, _ int64) ([]nodemodels.NodeSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.expired, nil
}

func (f *cancellingSessionStore) DeleteByID(ctx context.Context, _ primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.deleted++
	if f.deleted == 1 {
		f.cancel()
	}
	return nil
}

func TestRunOnce_LuotQuetChayTronVenKhiShutdown(t *testing.T) {
	now := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := &cancellingSessionStore{
		expired: []nodemodels.NodeSession{
			expiredSession("node-1", now.Unix()-1000, now.Unix()-700),
			expiredSession("node-2", now.Unix()-1000, now.Unix()-700),
		},
		cancel: cancel,
	}
	nodes := &fakeNodeStore{
		nodes:   map[string]*nodemodels.Node{"node-1": {NodeID: "node-1"}, "node-2": {NodeID: "node-2"}},
		addedCh: make(chan int64, 2),
	}
	history := &fakeHistoryRecorder{}
	notifier := &fakeOfflineNotifier{}

	w := newTestWorker(sessions, nodes, history, notifier)
	w.runOnce(ctx)

	if sessions.deleted != 2 {
		t.Errorf("Hủy context giữa lượt quét không được bỏ dở session còn lại, đã xóa %d/2", sessions.deleted)
	}
	if len(history.records) != 2 {
		t.Errorf("Cả 2 session phải được ghi lịch sử dù context bị hủy giữa chừng, nhận được %d dòng", len(history.records))
	}
	if len(notifier.calls) != 2 {
		t.Errorf("Cả 2 node phải được báo offline, nhận được %d lần", len(notifier.calls))
	}
}

// failingNodeStore luôn thất bại khi cộng thời gian online
type failingNodeStore struct {
	inner *fakeNodeStore
}

func (f *failingNodeStore) FindByNodeID(ctx context.Context, nodeId string) (*nodemodels.Node, error) {
	return f.inner.FindByNodeID(ctx, nodeId)
}

func (f *failingNodeStore) AddOnlineTime(_ context.Context, _ string, _ int64) error {
	return context.DeadlineExceeded
}
