package alarm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookDispatcher gửi cảnh báo dạng JSON POST tới webhook đích
type WebhookDispatcher struct {
	client *http.Client
}

// NewWebhookDispatcher tạo dispatcher với timeout mặc định 10 giây
func NewWebhookDispatcher() *WebhookDispatcher {
	return &WebhookDispatcher{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send gửi cảnh báo tới webhookURL
func (d *WebhookDispatcher) Send(ctx context.Context, webhookURL string, category string, title string, content string) error {
	payload := map[string]interface{}{
		"category":  category,
		"title":     title,
		"content":   content,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
