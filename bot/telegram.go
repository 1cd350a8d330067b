package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Update is the inbound Telegram Bot API payload. Only the fields the bot
// reads are declared; everything else in the update is ignored.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// Sender delivers a reply to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// TelegramSender posts replies through the Bot API sendMessage method.
type TelegramSender struct {
	token   string
	baseURL string
	http    *http.Client
}

func NewTelegramSender(token string) *TelegramSender {
	return &TelegramSender{
		token:   token,
		baseURL: defaultTelegramBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	payload, err := sonic.ConfigStd.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}
	addr := s.baseURL + "/bot" + s.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendMessage: status %d", resp.StatusCode)
	}
	return nil
}

var _ Sender = (*TelegramSender)(nil)
