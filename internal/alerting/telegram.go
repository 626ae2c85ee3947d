package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken  string
	chatID    string
	baseURL   string
	parseMode string
	client    *http.Client
	logger    zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL, parseMode string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if parseMode == "" {
		parseMode = "HTML"
	}

	return &TelegramNotifier{
		botToken:  botToken,
		chatID:    chatID,
		baseURL:   strings.TrimRight(baseURL, "/"),
		parseMode: parseMode,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送表格。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id":    n.chatID,
		"text":       RenderTable(note),
		"parse_mode": n.parseMode,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("exchange", note.Exchange).
		Str("date", note.Date).
		Int("rows", len(note.Rows)).
		Msg("告警已发送 (Telegram)")
	return nil
}

// RenderTable formats the rising contracts as an HTML preformatted table.
func RenderTable(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("<b>🔥 %s Morning Rising Options</b>\n", html.EscapeString(note.Exchange)))
	builder.WriteString("<pre>\n")
	builder.WriteString(fmt.Sprintf("%-15s%-10s%-10s%-8s\n", "Symbol", "Yest", "Now", "%"))
	builder.WriteString(strings.Repeat("-", 43) + "\n")
	for _, row := range note.Rows {
		label := row.Label
		if label == "" {
			label = row.Symbol
		}
		builder.WriteString(fmt.Sprintf("%-15s%-10s%-10s%-8s\n",
			html.EscapeString(label),
			row.Prior.StringFixed(1),
			row.Current.StringFixed(1),
			row.ChangePct.StringFixed(2),
		))
	}
	builder.WriteString("</pre>")
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
