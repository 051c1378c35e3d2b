// Package nodesvc - Test điều kiện bắn cảnh báo offline và ép kiểu key thống kê.
package nodesvc

import (
	"context"
	"strings"
	"testing"

	nodemodels "fleet_platform/internal/api/node/models"
)

type fakeSessionCounter struct {
	count int64
}

func (f *fakeSessionCounter) CountByNodeID(_ context.Context, _ string) (int64, error) {
	return f.count, nil
}

type fakePolicy struct {
	allow bool
	calls int
}

func (f *fakePolicy) CanAlarm(_ string, _ string) bool {
	f.calls++
	return f.allow
}

type sentAlarm struct {
	webhook string
	title   string
	content string
}

type fakeDispatcher struct {
	sent []sentAlarm
}

func (f *fakeDispatcher) Send(_ context.Context, webhook string, _ string, title string, content string) error {
	f.sent = append(f.sent, sentAlarm{webhook: webhook, title: title, content: content})
	return nil
}

func testNode() *nodemodels.Node {
	return &nodemodels.Node{
		NodeID:         "node-1",
		Name:           "edge-01",
		Category:       "windows",
		WebHook:        "https://hook.example.com/a",
		AlarmOnOffline: true,
	}
}

func TestOnNodeOffline_GuiCanhBaoKhiDuDieuKien(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	n := NewNodeOfflineNotifier(&fakeSessionCounter{count: 0}, &fakePolicy{allow: true}, dispatcher)

	n.OnNodeOffline(context.Background(), testNode(), "Quá 600 giây không nhận được heartbeat.", "10.0.0.1")

	if len(dispatcher.sent) != 1 {
		t.Fatalf("Phải gửi đúng 1 cảnh báo, nhận được %d", len(dispatcher.sent))
	}
	if !strings.Contains(dispatcher.sent[0].content, "edge-01") {
		t.Errorf("Nội dung cảnh báo phải chứa tên node, nhận được %q", dispatcher.sent[0].content)
	}
	if !strings.Contains(dispatcher.sent[0].content, "10.0.0.1") {
		t.Errorf("Nội dung cảnh báo phải chứa IP, nhận được %q", dispatcher.sent[0].content)
	}
}

func TestOnNodeOffline_BoQuaKhiTatAlarm(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	policy := &fakePolicy{allow: true}
	n := NewNodeOfflineNotifier(&fakeSessionCounter{count: 0}, policy, dispatcher)

	node := testNode()
	node.AlarmOnOffline = false
	n.OnNodeOffline(context.Background(), node, "lý do", "10.0.0.1")

	if len(dispatcher.sent) != 0 {
		t.Error("Node tắt AlarmOnOffline không được gửi cảnh báo")
	}
	if policy.calls != 0 {
		t.Error("Không được hỏi policy khi node tắt AlarmOnOffline")
	}
}

func TestOnNodeOffline_BoQuaKhiConSessionKhac(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	policy := &fakePolicy{allow: true}
	n := NewNodeOfflineNotifier(&fakeSessionCounter{count: 2}, policy, dispatcher)

	n.OnNodeOffline(context.Background(), testNode(), "lý do", "10.0.0.1")

	if len(dispatcher.sent) != 0 {
		t.Error("Node còn session khác đang sống không được coi là offline")
	}
	if policy.calls != 0 {
		t.Error("Phải kiểm tra session còn lại trước khi hỏi policy")
	}
}

func TestOnNodeOffline_BoQuaKhiPolicyChan(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	n := NewNodeOfflineNotifier(&fakeSessionCounter{count: 0}, &fakePolicy{allow: false}, dispatcher)

	n.OnNodeOffline(context.Background(), testNode(), "lý do", "10.0.0.1")

	if len(dispatcher.sent) != 0 {
		t.Error("Policy chặn thì không được gửi cảnh báo")
	}
}

func TestOnNodeOffline_BoQuaNodeNil(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	n := NewNodeOfflineNotifier(&fakeSessionCounter{count: 0}, &fakePolicy{allow: true}, dispatcher)

	n.OnNodeOffline(context.Background(), nil, "lý do", "10.0.0.1")

	if len(dispatcher.sent) != 0 {
		t.Error("Node nil không được gửi cảnh báo")
	}
}

func TestKeyToString(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil_thanh_rong", nil, ""},
		{"giu_nguyen_string", "Linux", "Linux"},
		{"int32_thanh_thap_phan", int32(10), "10"},
		{"int64_thanh_thap_phan", int64(42), "42"},
		{"float64_cat_phan_le", float64(7), "7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KeyToString(tc.in); got != tc.want {
				t.Errorf("KeyToString(%v) = %q, muốn %q", tc.in, got, tc.want)
			}
		})
	}
}
