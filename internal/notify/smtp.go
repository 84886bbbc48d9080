package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"cv-assistant-go/internal/config"
)

// SMTPTransport 通过 SMTP 发送
// Secure 为 true 时直接建立 TLS 连接（通常是 465 端口），否则服务器支持时升级 STARTTLS
type SMTPTransport struct {
	cfg     config.SMTPConfig
	timeout time.Duration
	now     func() time.Time
}

// NewSMTPTransport 创建 SMTP 发送器
func NewSMTPTransport(cfg config.SMTPConfig, timeout time.Duration) *SMTPTransport {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPTransport{cfg: cfg, timeout: timeout, now: time.Now}
}

func (t *SMTPTransport) Name() string { return "SMTP" }

// Deliver 实现 Transport
func (t *SMTPTransport) Deliver(ctx context.Context, msg *Message) (*SendResult, error) {
	id := uuid.NewString() + "@" + t.cfg.Host
	m, err := newMailMsg(msg, id, t.now())
	if err != nil {
		return nil, &DeliveryError{Provider: t.Name(), BaseErr: err}
	}

	client, err := mail.NewClient(t.cfg.Host, t.clientOptions()...)
	if err != nil {
		return nil, &DeliveryError{Provider: t.Name(), BaseErr: fmt.Errorf("create smtp client: %w", err)}
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return nil, &DeliveryError{Provider: t.Name(), BaseErr: err}
	}
	return &SendResult{Success: true, MessageID: "<" + id + ">", Provider: t.Name()}, nil
}

func (t *SMTPTransport) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithTimeout(t.timeout),
	}
	if t.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	// 端口最后设置，避免被 TLS 相关选项改写
	opts = append(opts, mail.WithPort(t.cfg.Port))
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}
	return opts
}

// newMailMsg multipart/alternative，纯文本在前 HTML 在后
func newMailMsg(msg *Message, messageID string, now time.Time) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(msg.FromName, msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetMessageIDWithValue(messageID)
	m.SetDateWithValue(now)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
