package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/logistics-alert/internal/logger"
	"github.com/deusflow/logistics-alert/internal/news"
	"github.com/deusflow/logistics-alert/internal/ratelimit"
	"github.com/deusflow/logistics-alert/internal/scraper"
)

const (
	DefaultModel   = "gemini-1.5-flash"
	defaultTimeout = 30 * time.Second
	maxPromptItems = 10
)

// Client writes short bilingual briefs of logistics incidents.
type Client struct {
	client   *genai.Client
	model    string
	quota    *ratelimit.DailyQuota
	generate func(ctx context.Context, prompt string) (string, error)
	log      *slog.Logger
}

// Brief is the parsed model answer.
type Brief struct {
	Chinese string
	English string
}

// Markdown renders the brief for the news report.
func (b Brief) Markdown() string {
	return "**中文：** " + b.Chinese + "\n\n**English:** " + b.English
}

// NewClient connects to Gemini. maxDailyCalls <= 0 disables the daily cap.
func NewClient(ctx context.Context, apiKey, model string, maxDailyCalls int) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}

	c := &Client{
		client: client,
		model:  model,
		quota:  ratelimit.NewDailyQuota("gemini", maxDailyCalls),
		log:    logger.Component("gemini"),
	}
	c.generate = c.generateContent
	return c, nil
}

// QuotaStats reports the daily call quota usage.
func (c *Client) QuotaStats() map[string]interface{} {
	return c.quota.GetStats()
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Client) generateContent(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.3)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

// Brief summarizes items in Chinese and English and returns report markdown.
func (c *Client) Brief(ctx context.Context, items []news.Item) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	if err := c.quota.Use(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	response, err := c.generate(ctx, buildPrompt(items))
	if err != nil {
		return "", err
	}

	brief, err := parseBrief(SanitizeAIText(response))
	if err != nil {
		c.log.Warn("unparseable brief", "error", err)
		return "", err
	}
	c.log.Debug("brief generated", "items", len(items))
	return brief.Markdown(), nil
}

func buildPrompt(items []news.Item) string {
	var b strings.Builder
	b.WriteString(`You are a logistics risk analyst for European road, rail and port freight.
Summarize the incidents below in at most 3 sentences: what happened, where, and the likely impact on freight.
Write the summary twice, first in Simplified Chinese, then in English.
Do not add disclaimers or notes.

Answer strictly in this format:

中文: <Chinese summary>

ENGLISH: <English summary>

INCIDENTS:
`)
	for i, it := range items {
		if i == maxPromptItems {
			break
		}
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, it.Title))
		if content := scraper.Truncate(scraper.CleanSnippet(it.Content), 400); content != "" {
			b.WriteString("   " + content + "\n")
		}
	}
	return b.String()
}

var labelPatterns = []struct {
	name  string
	regex *regexp.Regexp
}{
	{"chinese", regexp.MustCompile(`(?i)^\**\s*(中文|CHINESE)\s*\**\s*[:：]\s*\**\s*`)},
	{"english", regexp.MustCompile(`(?i)^\**\s*(ENGLISH|英文)\s*\**\s*[:：]\s*\**\s*`)},
}

func parseBrief(response string) (*Brief, error) {
	var chinese, english strings.Builder
	current := ""

	appendText := func(section, text string) {
		if text == "" {
			return
		}
		target := &chinese
		if section == "english" {
			target = &english
		}
		if target.Len() > 0 {
			target.WriteString(" ")
		}
		target.WriteString(text)
	}

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		matched := false
		for _, lp := range labelPatterns {
			if lp.regex.MatchString(line) {
				current = lp.name
				appendText(current, strings.TrimSpace(lp.regex.ReplaceAllString(line, "")))
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		// Continuation line for current section
		if current != "" {
			appendText(current, line)
		}
	}

	zh := strings.TrimSpace(chinese.String())
	en := strings.TrimSpace(english.String())
	if zh == "" || en == "" {
		return nil, fmt.Errorf("could not parse Gemini response: missing required fields (chinese=%t english=%t)", zh != "", en != "")
	}
	return &Brief{Chinese: zh, English: en}, nil
}
