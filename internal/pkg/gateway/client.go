package gateway

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qpay/quote_pay_server/config"
)

// 网关对明细行的长度硬限制（超出会被整单拒绝）
const (
	maxLineItemNameLen = 31
	maxLineItemDescLen = 255
)

// 扣款是阻塞网络调用，不设置比网关自身更短的超时；
// 超时的扣款可能已经成功，调用方不得盲目重试（用 refId 对账）
const requestTimeout = 120 * time.Second

// ChargeRequest 一次性扣款请求
type ChargeRequest struct {
	RefID         string // 调用方提供的稳定关联号，超时对账用
	Amount        float64
	CardNumber    string
	CardExpiry    string // YYYY-MM
	CardCVV       string
	InvoiceNumber string
	LineItems     []LineItem
	BillTo        BillingAddress
}

// LineItem 明细行（提交前按网关限制截断）
type LineItem struct {
	ID          string
	Name        string
	Description string
	Quantity    int
	UnitPrice   float64
}

// BillingAddress 账单地址
type BillingAddress struct {
	FirstName string
	LastName  string
	Address   string
	City      string
	State     string
	Zip       string
	Country   string
}

// ChargeResult 扣款结果
// 业务拒绝（卡被拒等）是正常结果不是错误，Approved=false 并带拒绝原因
type ChargeResult struct {
	Approved      bool
	TransactionID string
	AuthCode      string
	ReasonCode    string
	ReasonText    string
}

// SubscriptionRequest 循环扣款订阅请求
type SubscriptionRequest struct {
	RefID            string
	Name             string
	Amount           float64 // 每期金额
	IntervalLength   int
	IntervalUnit     string // days, months
	StartDate        time.Time
	TotalOccurrences int
	CardNumber       string
	CardExpiry       string
	CardCVV          string
	InvoiceNumber    string
	BillTo           BillingAddress
}

// SubscriptionResult 订阅创建结果
type SubscriptionResult struct {
	Accepted       bool
	SubscriptionID string
	ReasonCode     string
	ReasonText     string
}

// TransactionDetails 交易详情（webhook 载荷缺失身份信息时的二次查询）
type TransactionDetails struct {
	TransactionID      string
	InvoiceNumber      string
	CustomerEmail      string
	Amount             float64
	SubscriptionID     string
	SubscriptionPayNum int
}

// Client 支付网关客户端
// 只负责出站请求与响应归一化，不写任何持久化状态（落库是调用方的事）
type Client struct {
	endpoint       string
	apiLogin       string
	transactionKey string
	live           bool
	httpClient     *http.Client
}

func NewClient(cfg *config.GatewayConfig) *Client {
	env := cfg.Env()
	return &Client{
		endpoint:       env.Endpoint,
		apiLogin:       env.APILogin,
		transactionKey: env.TransactionKey,
		live:           cfg.IsLive(),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Charge 提交一次性扣款
// 返回 error 仅代表传输层失败或响应无法解析；业务拒绝在 ChargeResult 中表达
func (c *Client) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	// live 环境提交前校验；test 环境故意跳过以允许合成测试卡号
	if c.live {
		if err := ValidateCard(req.CardNumber, req.CardExpiry, req.CardCVV); err != nil {
			return nil, err
		}
	}

	payload := &createTransactionRequest{
		MerchantAuth: c.auth(),
		RefID:        req.RefID,
		TransactionRequest: transactionRequestXML{
			TransactionType: "authCaptureTransaction",
			Amount:          formatAmount(req.Amount),
			Payment: paymentXML{
				CreditCard: creditCardXML{
					CardNumber:     req.CardNumber,
					ExpirationDate: req.CardExpiry,
					CardCode:       req.CardCVV,
				},
			},
			Order:     orderXML{InvoiceNumber: req.InvoiceNumber},
			LineItems: buildLineItems(req.LineItems),
			BillTo:    billToXML(req.BillTo),
		},
	}

	var resp createTransactionResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return nil, err
	}

	return classifyChargeResponse(&resp), nil
}

// CreateSubscription 创建循环扣款订阅
func (c *Client) CreateSubscription(ctx context.Context, req *SubscriptionRequest) (*SubscriptionResult, error) {
	if c.live {
		if err := ValidateCard(req.CardNumber, req.CardExpiry, req.CardCVV); err != nil {
			return nil, err
		}
	}

	payload := &createSubscriptionRequest{
		MerchantAuth: c.auth(),
		RefID:        req.RefID,
		Subscription: subscriptionXML{
			Name: req.Name,
			PaymentSchedule: paymentScheduleXML{
				IntervalLength:   req.IntervalLength,
				IntervalUnit:     req.IntervalUnit,
				StartDate:        req.StartDate.Format("2006-01-02"),
				TotalOccurrences: req.TotalOccurrences,
			},
			Amount: formatAmount(req.Amount),
			Payment: paymentXML{
				CreditCard: creditCardXML{
					CardNumber:     req.CardNumber,
					ExpirationDate: req.CardExpiry,
					CardCode:       req.CardCVV,
				},
			},
			Order:  orderXML{InvoiceNumber: req.InvoiceNumber},
			BillTo: billToXML(req.BillTo),
		},
	}

	var resp createSubscriptionResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return nil, err
	}

	result := &SubscriptionResult{
		SubscriptionID: resp.SubscriptionID,
	}
	if resp.Messages.ResultCode == "Ok" && resp.SubscriptionID != "" {
		result.Accepted = true
		return result, nil
	}

	result.ReasonCode, result.ReasonText = firstMessage(&resp.Messages)
	return result, nil
}

// CancelSubscription 取消网关侧订阅
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	payload := &cancelSubscriptionRequest{
		MerchantAuth:   c.auth(),
		SubscriptionID: subscriptionID,
	}

	var resp cancelSubscriptionResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return err
	}

	if resp.Messages.ResultCode != "Ok" {
		_, text := firstMessage(&resp.Messages)
		return fmt.Errorf("gateway rejected cancellation: %s", text)
	}
	return nil
}

// GetTransactionDetails 按交易号查询交易详情
func (c *Client) GetTransactionDetails(ctx context.Context, transactionID string) (*TransactionDetails, error) {
	payload := &getTransactionDetailsRequest{
		MerchantAuth: c.auth(),
		TransID:      transactionID,
	}

	var resp getTransactionDetailsResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return nil, err
	}

	if resp.Messages.ResultCode != "Ok" {
		_, text := firstMessage(&resp.Messages)
		return nil, fmt.Errorf("transaction details lookup failed: %s", text)
	}

	amount, _ := decimal.NewFromString(resp.Transaction.AuthAmount)
	amountF, _ := amount.Float64()

	return &TransactionDetails{
		TransactionID:      resp.Transaction.TransID,
		InvoiceNumber:      resp.Transaction.Order.InvoiceNumber,
		CustomerEmail:      resp.Transaction.CustomerEmail,
		Amount:             amountF,
		SubscriptionID:     resp.Transaction.SubscriptionID,
		SubscriptionPayNum: resp.Transaction.SubscriptionPayNum,
	}, nil
}

func (c *Client) auth() merchantAuthentication {
	return merchantAuthentication{
		Name:           c.apiLogin,
		TransactionKey: c.transactionKey,
	}
}

func (c *Client) post(ctx context.Context, payload interface{}, out interface{}) error {
	body, err := xml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}
	body = append([]byte(xml.Header), body...)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if err := xml.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}
	return nil
}

// classifyChargeResponse 归一化网关的非一致响应
// 成功信号有三种弱形式，命中任意一种即视为批准：
//  1. resultCode 与 responseCode 同时表示成功
//  2. 存在交易号且没有错误块（交易号字面值 "0" 也算存在，表示测试交易）
//  3. 错误文本里包含 "successful"（网关已知怪癖，脆弱但必须兼容）
func classifyChargeResponse(resp *createTransactionResponse) *ChargeResult {
	tx := &resp.TransactionResponse

	approved := resp.Messages.ResultCode == "Ok" && tx.ResponseCode == "1"
	if !approved && tx.TransID != "" && len(tx.Errors) == 0 {
		approved = true
	}
	if !approved {
		for _, e := range tx.Errors {
			if strings.Contains(strings.ToLower(e.ErrorText), "successful") {
				approved = true
				break
			}
		}
	}

	result := &ChargeResult{
		Approved:      approved,
		TransactionID: tx.TransID,
		AuthCode:      tx.AuthCode,
	}

	if !approved {
		if len(tx.Errors) > 0 {
			result.ReasonCode = tx.Errors[0].ErrorCode
			result.ReasonText = tx.Errors[0].ErrorText
		} else {
			result.ReasonCode, result.ReasonText = firstMessage(&resp.Messages)
		}
		if result.ReasonText == "" {
			result.ReasonText = "transaction declined"
		}
	}

	return result
}

func firstMessage(m *messagesXML) (code, text string) {
	if len(m.Messages) > 0 {
		return m.Messages[0].Code, m.Messages[0].Text
	}
	return "", ""
}

func buildLineItems(items []LineItem) []lineItemXML {
	out := make([]lineItemXML, 0, len(items))
	for i, item := range items {
		id := item.ID
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}
		out = append(out, lineItemXML{
			ItemID:      id,
			Name:        truncate(item.Name, maxLineItemNameLen),
			Description: truncate(item.Description, maxLineItemDescLen),
			Quantity:    item.Quantity,
			UnitPrice:   formatAmount(item.UnitPrice),
		})
	}
	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func formatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
