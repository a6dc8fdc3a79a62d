package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/logistics-alert/internal/cache"
	"github.com/deusflow/logistics-alert/internal/logger"
)

const (
	DefaultBaseURL = "https://open.feishu.cn"
	defaultTimeout = 10 * time.Second

	tokenPath   = "/open-apis/auth/v3/tenant_access_token/internal"
	messagePath = "/open-apis/im/v1/messages?receive_id_type=chat_id"
	tokenKey    = "tenant_access_token"
)

// ErrNotConfigured is returned when neither webhook nor bot credentials are set.
var ErrNotConfigured = errors.New("feishu: no webhook or bot credentials configured")

// Config selects the delivery mode. A webhook URL wins over bot credentials.
type Config struct {
	WebhookURL string
	AppID      string
	AppSecret  string
	ChatID     string
}

type Mode string

const (
	ModeWebhook Mode = "webhook"
	ModeBot     Mode = "bot"
	ModeNone    Mode = "none"
)

// Mode reports which delivery path Send will use.
func (c Config) Mode() Mode {
	if c.WebhookURL != "" {
		return ModeWebhook
	}
	if c.AppID != "" && c.AppSecret != "" && c.ChatID != "" {
		return ModeBot
	}
	return ModeNone
}

// Sender pushes markdown cards to a Feishu chat. Calls are never retried.
type Sender struct {
	cfg     Config
	baseURL string
	client  *http.Client
	tokens  *cache.Cache[string]
	limiter *rate.Limiter
	log     *slog.Logger
}

type Option func(*Sender)

// WithBaseURL points the bot flow at another open-platform host.
func WithBaseURL(u string) Option {
	return func(s *Sender) { s.baseURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) { s.client = c }
}

func NewSender(cfg Config, opts ...Option) *Sender {
	s := &Sender{
		cfg:     cfg,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		tokens:  cache.New[string](),
		// bot API allows 5 requests per second per app
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		log:     logger.Component("feishu"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) Mode() Mode {
	return s.cfg.Mode()
}

type card struct {
	Header   cardHeader    `json:"header"`
	Elements []cardElement `json:"elements"`
}

type cardHeader struct {
	Title cardText `json:"title"`
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardElement struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

func newCard(title, content string) card {
	return card{
		Header:   cardHeader{Title: cardText{Tag: "plain_text", Content: title}},
		Elements: []cardElement{{Tag: "markdown", Content: content}},
	}
}

// apiResponse covers both webhook ({"StatusCode":0}) and open-API ({"code":0}) replies.
type apiResponse struct {
	Code       *int   `json:"code"`
	StatusCode *int   `json:"StatusCode"`
	Msg        string `json:"msg"`
	StatusMsg  string `json:"StatusMessage"`
}

func (r apiResponse) ok() bool {
	return (r.StatusCode != nil && *r.StatusCode == 0) || (r.Code != nil && *r.Code == 0)
}

func (r apiResponse) message() string {
	if r.Msg != "" {
		return r.Msg
	}
	return r.StatusMsg
}

// Send delivers one card titled title with a markdown body.
// A nil error means Feishu acknowledged the message.
func (s *Sender) Send(ctx context.Context, title, content string) error {
	mode := s.Mode()
	if mode == ModeNone {
		return ErrNotConfigured
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("feishu: %w", err)
	}

	var err error
	switch mode {
	case ModeWebhook:
		err = s.sendWebhook(ctx, title, content)
	case ModeBot:
		err = s.sendBot(ctx, title, content)
	}
	if err != nil {
		s.log.Error("push failed", "mode", mode, "title", title, "error", err)
		return err
	}
	s.log.Info("push delivered", "mode", mode, "title", title)
	return nil
}

func (s *Sender) sendWebhook(ctx context.Context, title, content string) error {
	payload := map[string]interface{}{
		"msg_type": "interactive",
		"card":     newCard(title, content),
	}

	resp, err := s.postJSON(ctx, s.cfg.WebhookURL, "", payload)
	if err != nil {
		return fmt.Errorf("feishu webhook: %w", err)
	}
	if !resp.ok() {
		return fmt.Errorf("feishu webhook rejected message: %s", resp.message())
	}
	return nil
}

func (s *Sender) sendBot(ctx context.Context, title, content string) error {
	token, err := s.tenantToken(ctx)
	if err != nil {
		return err
	}

	cardJSON, err := json.Marshal(newCard(title, content))
	if err != nil {
		return fmt.Errorf("feishu bot: marshal card: %w", err)
	}

	payload := map[string]string{
		"receive_id": s.cfg.ChatID,
		"msg_type":   "interactive",
		"content":    string(cardJSON),
	}

	resp, err := s.postJSON(ctx, s.baseURL+messagePath, token, payload)
	if err != nil {
		return fmt.Errorf("feishu bot: %w", err)
	}
	if !(resp.Code != nil && *resp.Code == 0) {
		// a stale token is the usual cause; fetch a fresh one next time
		s.tokens.Delete(tokenKey)
		return fmt.Errorf("feishu bot rejected message: %s", resp.message())
	}
	return nil
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

// tenantToken returns a cached tenant_access_token or fetches a new one.
func (s *Sender) tenantToken(ctx context.Context) (string, error) {
	if tok, ok := s.tokens.Get(tokenKey); ok {
		return tok, nil
	}

	body, err := json.Marshal(map[string]string{
		"app_id":     s.cfg.AppID,
		"app_secret": s.cfg.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("feishu token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("feishu token: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("feishu token: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("feishu token: decode response (status %d): %w", resp.StatusCode, err)
	}
	if tr.Code != 0 || tr.TenantAccessToken == "" {
		return "", fmt.Errorf("feishu token: code %d: %s", tr.Code, tr.Msg)
	}

	ttl := time.Duration(tr.Expire)*time.Second - time.Minute
	if ttl > 0 {
		s.tokens.Set(tokenKey, tr.TenantAccessToken, ttl)
	}
	s.log.Debug("obtained tenant access token", "expire_seconds", tr.Expire)
	return tr.TenantAccessToken, nil
}

func (s *Sender) postJSON(ctx context.Context, url, bearer string, payload interface{}) (apiResponse, error) {
	var out apiResponse

	body, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("error make JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return out, fmt.Errorf("error HTTP request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			s.log.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("status %d: unexpected response %q", resp.StatusCode, truncate(string(raw), 200))
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
