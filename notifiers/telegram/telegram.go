// Package telegram implements the Telegram bot notifier via the sendMessage
// API.
package telegram

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/notifier"
	"github.com/loonghao/notify-bridge-go/schema"
)

// Name is the platform name this notifier registers under.
const Name = "telegram"

// maxMessageLength is Telegram's per-message size limit.
const maxMessageLength = 4096

// Request is the Telegram notification schema.
type Request struct {
	schema.Base `mapstructure:",squash"`

	ChatID string `mapstructure:"chat_id" json:"chat_id,omitempty"`
	Token  string `mapstructure:"token" json:"token,omitempty"`
}

// Validate requires the bot token, chat ID, and message content.
func (r *Request) Validate() error {
	if err := r.Base.Validate(); err != nil {
		return err
	}
	if err := schema.RequireString("token", r.Token); err != nil {
		return err
	}
	if err := schema.RequireString("chat_id", r.ChatID); err != nil {
		return err
	}
	return schema.RequireString("content", r.Content)
}

// New constructs the Telegram notifier.
func New(cfg *httpclient.Config) (notifier.Notifier, error) {
	return notifier.New(notifier.Options{
		Name:          Name,
		Types:         []schema.MessageType{schema.TypeText, schema.TypeMarkdown},
		NewRequest:    func() schema.Request { return &Request{} },
		Assemble:      assemble,
		CheckResponse: checkResponse,
		Config:        cfg,
	})
}

func assemble(req schema.Request) (*notifier.Payload, error) {
	r := req.(*Request)

	text := r.Content
	if len(text) > maxMessageLength {
		cut := maxMessageLength - 3
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}

	body := map[string]any{
		"chat_id": r.ChatID,
		"text":    text,
	}
	if r.Type() == schema.TypeMarkdown {
		body["parse_mode"] = "Markdown"
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	// An explicit URL overrides the derived endpoint, for test servers and
	// API proxies.
	url := r.Target()
	if url == "" {
		url = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", r.Token)
	}

	return &notifier.Payload{URL: url, Body: data}, nil
}

// checkResponse catches API failures reported in the reply body
// ({"ok": false, "description": "..."}).
func checkResponse(_ int, body []byte) error {
	var reply struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil
	}
	if !reply.OK {
		return errors.Newf("telegram API error: %s", reply.Description).Build()
	}
	return nil
}
