package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	MailerSendEndpoint = "https://api.mailersend.com/v1/email"
	BrevoEndpoint      = "https://api.brevo.com/v3/smtp/email"
	SendGridEndpoint   = "https://api.sendgrid.com/v3/mail/send"

	defaultSendTimeout = 10 * time.Second
	maxErrorBodyBytes  = 4 << 10
)

type httpOptions struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

// HTTPOption HTTP 类服务商的配置项
type HTTPOption func(*httpOptions)

// WithEndpoint 覆盖官方接口地址，空值忽略
func WithEndpoint(endpoint string) HTTPOption {
	return func(o *httpOptions) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithHTTPClient 使用自定义 http.Client
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(o *httpOptions) {
		if client != nil {
			o.client = client
		}
	}
}

// WithTimeout 单次请求超时
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(o *httpOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

func newHTTPOptions(defaultEndpoint string, opts []HTTPOption) httpOptions {
	o := httpOptions{endpoint: defaultEndpoint, timeout: defaultSendTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}
	return o
}

// postJSON 发送 JSON 请求，非 2xx 时从响应体中提取错误信息
func postJSON(ctx context.Context, o httpOptions, headers map[string]string, payload any) (http.Header, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if resp.StatusCode/100 != 2 {
		return resp.Header, raw, fmt.Errorf("status %d: %s", resp.StatusCode, apiErrorMessage(raw))
	}
	return resp.Header, raw, nil
}

// apiErrorMessage 兼容 {"message": ...} 和 {"errors": [{"message": ...}]} 两种格式
func apiErrorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if len(body.Errors) > 0 && body.Errors[0].Message != "" {
			return body.Errors[0].Message
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return "unknown error"
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// MailerSendTransport MailerSend API
type MailerSendTransport struct {
	apiKey string
	opts   httpOptions
}

// NewMailerSendTransport 创建 MailerSend 发送器
func NewMailerSendTransport(apiKey string, opts ...HTTPOption) *MailerSendTransport {
	return &MailerSendTransport{apiKey: apiKey, opts: newHTTPOptions(MailerSendEndpoint, opts)}
}

func (t *MailerSendTransport) Name() string { return "MailerSend" }

// Deliver 实现 Transport
func (t *MailerSendTransport) Deliver(ctx context.Context, msg *Message) (*SendResult, error) {
	payload := struct {
		From    emailAddress   `json:"from"`
		To      []emailAddress `json:"to"`
		Subject string         `json:"subject"`
		Text    string         `json:"text"`
		HTML    string         `json:"html"`
	}{
		From:    emailAddress{Email: msg.From, Name: msg.FromName},
		To:      []emailAddress{{Email: msg.To}},
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	}
	headers, _, err := postJSON(ctx, t.opts, map[string]string{"Authorization": "Bearer " + t.apiKey}, payload)
	if err != nil {
		return nil, &DeliveryError{Provider: t.Name(), BaseErr: err}
	}
	return &SendResult{Success: true, MessageID: headerOr(headers, "X-Message-Id", "mailersend-sent"), Provider: t.Name()}, nil
}

// BrevoTransport Brevo 事务邮件 API
type BrevoTransport struct {
	apiKey string
	opts   httpOptions
}

// NewBrevoTransport 创建 Brevo 发送器
func NewBrevoTransport(apiKey string, opts ...HTTPOption) *BrevoTransport {
	return &BrevoTransport{apiKey: apiKey, opts: newHTTPOptions(BrevoEndpoint, opts)}
}

func (t *BrevoTransport) Name() string { return "Brevo" }

// Deliver 实现 Transport
func (t *BrevoTransport) Deliver(ctx context.Context, msg *Message) (*SendResult, error) {
	payload := struct {
		Sender      emailAddress   `json:"sender"`
		To          []emailAddress `json:"to"`
		Subject     string         `json:"subject"`
		TextContent string         `json:"textContent"`
		HTMLContent string         `json:"htmlContent"`
	}{
		Sender:      emailAddress{Email: msg.From, Name: msg.FromName},
		To:          []emailAddress{{Email: msg.To}},
		Subject:     msg.Subject,
		TextContent: msg.Text,
		HTMLContent: msg.HTML,
	}
	_, raw, err := postJSON(ctx, t.opts, map[string]string{"api-key": t.apiKey}, payload)
	if err != nil {
		return nil, &DeliveryError{Provider: t.Name(), BaseErr: err}
	}

	messageID := "brevo-sent"
	var body struct {
		MessageID string `json:"messageId"`
	}
	if json.Unmarshal(raw, &body) == nil && body.MessageID != "" {
		messageID = body.MessageID
	}
	return &SendResult{Success: true, MessageID: messageID, Provider: t.Name()}, nil
}

// SendGridTransport SendGrid v3 API
type SendGridTransport struct {
	apiKey string
	opts   httpOptions
}

// NewSendGridTransport 创建 SendGrid 发送器
func NewSendGridTransport(apiKey string, opts ...HTTPOption) *SendGridTransport {
	return &SendGridTransport{apiKey: apiKey, opts: newHTTPOptions(SendGridEndpoint, opts)}
}

func (t *SendGridTransport) Name() string { return "SendGrid" }

// Deliver 实现 Transport
func (t *SendGridTransport) Deliver(ctx context.Context, msg *Message) (*SendResult, error) {
	type content struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	type personalization struct {
		To []emailAddress `json:"to"`
	}
	payload := struct {
		Personalizations []personalization `json:"personalizations"`
		From             emailAddress      `json:"from"`
		Subject          string            `json:"subject"`
		Content          []content         `json:"content"`
	}{
		Personalizations: []personalization{{To: []emailAddress{{Email: msg.To}}}},
		From:             emailAddress{Email: msg.From, Name: msg.FromName},
		Subject:          msg.Subject,
		Content: []content{
			{Type: "text/plain", Value: msg.Text},
			{Type: "text/html", Value: msg.HTML},
		},
	}
	headers, _, err := postJSON(ctx, t.opts, map[string]string{"Authorization": "Bearer " + t.apiKey}, payload)
	if err != nil {
		return nil, &DeliveryError{Provider: t.Name(), BaseErr: err}
	}
	return &SendResult{Success: true, MessageID: headerOr(headers, "X-Message-Id", "sendgrid-sent"), Provider: t.Name()}, nil
}

func headerOr(h http.Header, key, fallback string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return fallback
}
