package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSender 通过 HTTP webhook 投递文本消息，
// 同时满足 DingTalkSender 与 SlackSender 的发送需求。
type WebhookSender struct {
	URL    string
	Client *http.Client
}

// NewWebhookSender 创建 webhook 发送器。
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send 实现 DingTalkSender：钉钉机器人的 text 消息格式。
func (s *WebhookSender) Send(ctx context.Context, content string) error {
	payload := map[string]any{
		"msgtype": "text",
		"text":    map[string]string{"content": content},
	}
	return s.post(ctx, payload)
}

// SlackWebhookSender 通过 Slack incoming webhook 投递消息。
type SlackWebhookSender struct {
	sender *WebhookSender
}

// NewSlackWebhookSender 创建 Slack webhook 发送器。
func NewSlackWebhookSender(url string) *SlackWebhookSender {
	return &SlackWebhookSender{sender: NewWebhookSender(url)}
}

// Send 实现 SlackSender。
func (s *SlackWebhookSender) Send(ctx context.Context, channel, content string) error {
	payload := map[string]any{
		"channel": channel,
		"text":    content,
	}
	return s.sender.post(ctx, payload)
}

func (s *WebhookSender) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("编码 webhook 消息失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook 返回错误状态: %s", resp.Status)
	}
	return nil
}

var (
	_ DingTalkSender = (*WebhookSender)(nil)
	_ SlackSender    = (*SlackWebhookSender)(nil)
)
