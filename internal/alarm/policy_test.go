// Package alarm - Test policy throttle cảnh báo theo (category, webhook).
package alarm

import (
	"testing"
	"time"
)

func TestCanAlarm_WebhookRongLuonTuChoi(t *testing.T) {
	p := NewThrottlePolicy(5 * time.Minute)
	if p.CanAlarm("windows", "") {
		t.Error("Webhook rỗng phải luôn bị từ chối")
	}
}

func TestCanAlarm_ThrottleTrongCuaSo(t *testing.T) {
	p := NewThrottlePolicy(5 * time.Minute)
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }

	if !p.CanAlarm("windows", "https://hook.example.com/a") {
		t.Fatal("Lần gửi đầu tiên phải được phép")
	}
	p.now = func() time.Time { return base.Add(1 * time.Minute) }
	if p.CanAlarm("windows", "https://hook.example.com/a") {
		t.Error("Lần gửi thứ hai trong cửa sổ 5 phút phải bị chặn")
	}
	p.now = func() time.Time { return base.Add(6 * time.Minute) }
	if !p.CanAlarm("windows", "https://hook.example.com/a") {
		t.Error("Hết cửa sổ throttle phải được gửi lại")
	}
}

func TestCanAlarm_WebhookKhacNhauDocLap(t *testing.T) {
	p := NewThrottlePolicy(5 * time.Minute)
	if !p.CanAlarm("windows", "https://hook.example.com/a") {
		t.Fatal("Lần gửi đầu tiên của webhook A phải được phép")
	}
	if !p.CanAlarm("windows", "https://hook.example.com/b") {
		t.Error("Webhook B phải được throttle độc lập với webhook A")
	}
	if !p.CanAlarm("linux", "https://hook.example.com/a") {
		t.Error("Category khác phải được throttle độc lập")
	}
}

func TestCanAlarm_KhongThrottleKhiCuaSoBangKhong(t *testing.T) {
	p := NewThrottlePolicy(0)
	for i := 0; i < 3; i++ {
		if !p.CanAlarm("windows", "https://hook.example.com/a") {
			t.Fatalf("Cửa sổ 0 không được throttle, lần %d bị chặn", i+1)
		}
	}
}
