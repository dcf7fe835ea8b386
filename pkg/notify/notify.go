package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Config 通知通道配置
type Config struct {
	SMTP    SMTPConfig    `yaml:"smtp"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SMTPConfig 邮件配置，Host 为空时邮件通知被禁用
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" default:"587"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from" default:"backup@localhost"`
}

// WebhookConfig webhook 配置
type WebhookConfig struct {
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

// ErrEmailDisabled is returned by SendEmail when no SMTP host is configured
var ErrEmailDisabled = errors.New("smtp host is not configured")

// Dialer sends prepared messages, gomail.Dialer satisfies it
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Dispatcher delivers email through SMTP and webhooks through HTTP POST
// Dispatcher 通过 SMTP 发送邮件，通过 HTTP POST 调用 webhook
type Dispatcher struct {
	from   string
	dialer Dialer
	client *http.Client
	logger *zap.Logger
}

// Option 配置 Dispatcher
type Option func(*Dispatcher)

// WithDialer replaces the SMTP dialer
func WithDialer(d Dialer) Option {
	return func(n *Dispatcher) { n.dialer = d }
}

// WithHTTPClient replaces the webhook HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(n *Dispatcher) { n.client = c }
}

// NewDispatcher 创建通知分发器
func NewDispatcher(cfg Config, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Webhook.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Dispatcher{
		from:   cfg.SMTP.From,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	if cfg.SMTP.Host != "" {
		d.dialer = gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendEmail 发送纯文本邮件
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, body string) error {
	if d.dialer == nil {
		return ErrEmailDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := d.dialer.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "send email to %s", to)
	}
	d.logger.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// SendWebhook posts payload as JSON, any non 2xx status is an error
// SendWebhook 以 JSON 发送 webhook，非 2xx 状态视为失败
func (d *Dispatcher) SendWebhook(ctx context.Context, url string, payload any) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "post webhook %s", url)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(body))
	}
	d.logger.Debug("webhook delivered", zap.String("url", url), zap.Int("status", resp.StatusCode))
	return nil
}
