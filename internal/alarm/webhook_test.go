package alarm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend_GuiDungPayload(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Webhook phải nhận POST, nhận được %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type phải là application/json, nhận được %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Không decode được payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewWebhookDispatcher()
	err := d.Send(context.Background(), server.URL, "windows", "Cảnh báo node offline", "Node [edge-01] đã offline!")
	if err != nil {
		t.Fatalf("Send trả về lỗi: %v", err)
	}

	if received["category"] != "windows" {
		t.Errorf("Payload thiếu category, nhận được %v", received["category"])
	}
	if received["title"] != "Cảnh báo node offline" {
		t.Errorf("Payload sai title, nhận được %v", received["title"])
	}
	if _, ok := received["timestamp"]; !ok {
		t.Error("Payload phải có timestamp")
	}
}

func TestSend_LoiKhiStatusKhong2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewWebhookDispatcher()
	if err := d.Send(context.Background(), server.URL, "windows", "t", "c"); err == nil {
		t.Fatal("Status 500 phải trả về lỗi")
	}
}
