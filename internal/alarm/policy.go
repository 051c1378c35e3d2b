// Package alarm cung cấp policy throttle và dispatcher gửi cảnh báo webhook.
package alarm

import (
	"sync"
	"time"
)

// ThrottlePolicy giới hạn tần suất cảnh báo theo cặp (category, webhook).
// Hai node cùng category nhưng khác webhook được throttle độc lập.
type ThrottlePolicy struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	window   time.Duration
	now      func() time.Time
}

// NewThrottlePolicy tạo policy với cửa sổ throttle cho trước.
// window <= 0 nghĩa là không throttle.
func NewThrottlePolicy(window time.Duration) *ThrottlePolicy {
	return &ThrottlePolicy{
		lastSent: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// CanAlarm kiểm tra có được phép gửi cảnh báo hay không.
// Webhook rỗng luôn trả về false. Khi được phép, mốc gửi được ghi lại ngay
// nên hai lần gọi liên tiếp trong cùng cửa sổ chỉ lần đầu trả về true.
func (p *ThrottlePolicy) CanAlarm(category string, webhook string) bool {
	if webhook == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := category + "|" + webhook
	now := p.now()
	if last, ok := p.lastSent[key]; ok && p.window > 0 {
		if now.Sub(last) < p.window {
			return false
		}
	}
	p.lastSent[key] = now
	return true
}
