package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cv-assistant-go/internal/config"
	"cv-assistant-go/internal/logger"
	"cv-assistant-go/internal/tracing"
)

// DefaultFromName 未配置发件人名称时使用
const DefaultFromName = "MCP CV Assistant"

var (
	// ErrNoProvider 没有配置任何邮件服务
	ErrNoProvider = errors.New("no email service configured: set MailerSend, Brevo, SendGrid or SMTP credentials")
	// ErrInvalidRecipient 收件人格式不正确
	ErrInvalidRecipient = errors.New("invalid email address")
	// ErrMissingFields 主题或正文为空
	ErrMissingFields = errors.New("missing required email fields: to, subject and body")
)

var recipientRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Message 待发送邮件
type Message struct {
	From     string
	FromName string
	To       string
	Subject  string
	Text     string
	HTML     string
}

// SendResult 发送结果
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Provider  string `json:"provider"`
}

// EmailSender 发送纯文本邮件
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (*SendResult, error)
}

// Transport 单个邮件服务商
type Transport interface {
	Name() string
	Deliver(ctx context.Context, msg *Message) (*SendResult, error)
}

// DeliveryError 某个服务商发送失败
type DeliveryError struct {
	Provider string
	BaseErr  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Provider, e.BaseErr)
}

func (e *DeliveryError) Unwrap() error {
	return e.BaseErr
}

// Mailer 按顺序尝试已配置的服务商，第一个成功即返回
type Mailer struct {
	from       string
	fromName   string
	transports []Transport
}

var _ EmailSender = (*Mailer)(nil)

// NewMailer fromName 为空时使用 DefaultFromName
func NewMailer(from, fromName string, transports ...Transport) *Mailer {
	if fromName == "" {
		fromName = DefaultFromName
	}
	var ts []Transport
	for _, t := range transports {
		if t != nil {
			ts = append(ts, t)
		}
	}
	return &Mailer{from: from, fromName: fromName, transports: ts}
}

// NewMailerFromConfig 按 MailerSend -> Brevo -> SendGrid -> SMTP 顺序组装，只包含配置了凭据的服务商
func NewMailerFromConfig(cfg config.EmailConfig) *Mailer {
	timeout := cfg.Timeout()
	var transports []Transport
	if cfg.MailerSend.APIKey != "" {
		transports = append(transports, NewMailerSendTransport(cfg.MailerSend.APIKey,
			WithEndpoint(cfg.MailerSend.Endpoint), WithTimeout(timeout)))
	}
	if cfg.Brevo.APIKey != "" {
		transports = append(transports, NewBrevoTransport(cfg.Brevo.APIKey,
			WithEndpoint(cfg.Brevo.Endpoint), WithTimeout(timeout)))
	}
	if cfg.SendGrid.APIKey != "" {
		transports = append(transports, NewSendGridTransport(cfg.SendGrid.APIKey,
			WithEndpoint(cfg.SendGrid.Endpoint), WithTimeout(timeout)))
	}
	if cfg.SMTP.Host != "" {
		transports = append(transports, NewSMTPTransport(cfg.SMTP, timeout))
	}
	return NewMailer(cfg.From, cfg.FromName, transports...)
}

// Configured 是否至少配置了一个服务商
func (m *Mailer) Configured() bool {
	return len(m.transports) > 0
}

// Providers 按尝试顺序返回服务商名称
func (m *Mailer) Providers() []string {
	names := make([]string, 0, len(m.transports))
	for _, t := range m.transports {
		names = append(names, t.Name())
	}
	return names
}

// Send 实现 EmailSender，HTML 正文由纯文本换行转 <br> 得到
func (m *Mailer) Send(ctx context.Context, to, subject, body string) (*SendResult, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.TrimSpace(subject) == "" || body == "" {
		return nil, ErrMissingFields
	}
	if !recipientRegex.MatchString(to) {
		return nil, ErrInvalidRecipient
	}
	if !m.Configured() {
		return nil, ErrNoProvider
	}

	ctx, span := otel.Tracer("cv-assistant-go/notify").Start(ctx, "notify.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("email.recipient", tracing.MaskPII(to)),
		attribute.Int("email.providers", len(m.transports)),
	)

	msg := &Message{
		From:     m.from,
		FromName: m.fromName,
		To:       to,
		Subject:  subject,
		Text:     body,
		HTML:     TextToHTML(body),
	}

	var errs []error
	for _, t := range m.transports {
		result, err := t.Deliver(ctx, msg)
		if err == nil {
			span.SetAttributes(attribute.String("email.provider", result.Provider))
			logger.Info().Str("provider", result.Provider).Str("to", tracing.MaskPII(to)).Msg("邮件发送成功")
			return result, nil
		}
		logger.Warn().Err(err).Str("provider", t.Name()).Msg("邮件发送失败，尝试下一个服务商")
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	err := fmt.Errorf("all email providers failed: %w", errors.Join(errs...))
	tracing.RecordError(span, err, tracing.ErrorTypeEmail)
	return nil, err
}

// TextToHTML 转义后把换行转为 <br>
func TextToHTML(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}
