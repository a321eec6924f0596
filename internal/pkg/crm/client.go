package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qpay/quote_pay_server/config"
)

// SyncRequest 一次 CRM 同步：按邮箱查找或创建联系人，追加备注并打标签
// 调用方（reconciler/worker）把失败当作非致命事件，只记日志
type SyncRequest struct {
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Note        string   `json:"note"`
	Tags        []string `json:"tags,omitempty"`
	QuoteNumber int64    `json:"quote_number,omitempty"`
}

type contactResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client CRM HTTP 客户端
type Client struct {
	baseURL    string
	apiKey     string
	tags       []string
	httpClient *http.Client
}

func NewClient(cfg *config.CRMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		tags:    cfg.Tags,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Sync 执行一次联系人同步
// 联系人 find-or-create 与备注/标签写入合并为两次调用，任何一步失败都返回错误
func (c *Client) Sync(ctx context.Context, req *SyncRequest) error {
	if req.Email == "" {
		return fmt.Errorf("crm sync requires an email")
	}

	contact, err := c.findOrCreateContact(ctx, req)
	if err != nil {
		return err
	}

	tags := req.Tags
	if len(tags) == 0 {
		tags = c.tags
	}

	body := map[string]interface{}{
		"note": req.Note,
		"tags": tags,
	}
	if err := c.post(ctx, fmt.Sprintf("/contacts/%s/notes", contact.ID), body, nil); err != nil {
		return fmt.Errorf("failed to append note: %w", err)
	}
	return nil
}

func (c *Client) findOrCreateContact(ctx context.Context, req *SyncRequest) (*contactResponse, error) {
	body := map[string]interface{}{
		"email": req.Email,
		"name":  req.Name,
		"phone": req.Phone,
	}

	var contact contactResponse
	if err := c.post(ctx, "/contacts/find-or-create", body, &contact); err != nil {
		return nil, fmt.Errorf("failed to find or create contact: %w", err)
	}
	if contact.ID == "" {
		return nil, fmt.Errorf("crm returned contact without id")
	}
	return &contact, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("crm responded %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode crm response: %w", err)
		}
	}
	return nil
}
