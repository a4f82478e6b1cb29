// Package feishu implements the Feishu (Lark) group bot notifier.
//
// Supported message types map to the bot webhook API: text, post (rich text),
// and interactive (card). Image and file messages require the separate upload
// API and are not handled here.
package feishu

import (
	"encoding/json"

	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/notifier"
	"github.com/loonghao/notify-bridge-go/schema"
)

// Name is the platform name this notifier registers under.
const Name = "feishu"

// CardConfig controls interactive card rendering.
type CardConfig struct {
	WideScreenMode bool `mapstructure:"wide_screen_mode" json:"wide_screen_mode"`
}

// CardHeader is the interactive card title block.
type CardHeader struct {
	Title    string `mapstructure:"title" json:"title"`
	Template string `mapstructure:"template" json:"template,omitempty"`
}

// Request is the Feishu notification schema.
type Request struct {
	schema.Base `mapstructure:",squash"`

	// PostContent is the rich-text body for post messages, keyed by locale.
	PostContent map[string][][]map[string]any `mapstructure:"post_content" json:"post_content,omitempty"`

	// Interactive card fields.
	CardConfig   *CardConfig      `mapstructure:"card_config" json:"card_config,omitempty"`
	CardHeader   *CardHeader      `mapstructure:"card_header" json:"card_header,omitempty"`
	CardElements []map[string]any `mapstructure:"card_elements" json:"card_elements,omitempty"`
}

// Validate requires the webhook URL plus the per-type body field.
func (r *Request) Validate() error {
	if err := r.Base.Validate(); err != nil {
		return err
	}
	if err := schema.ValidateURL("webhook_url", r.Target()); err != nil {
		return err
	}
	switch r.Type() {
	case schema.TypeText:
		return schema.RequireString("content", r.Content)
	case schema.TypePost:
		if len(r.PostContent) == 0 {
			return requireField("post_content")
		}
	case schema.TypeInteractive:
		if r.CardHeader == nil {
			return requireField("card_header")
		}
		if len(r.CardElements) == 0 {
			return requireField("card_elements")
		}
	}
	return nil
}

func requireField(field string) error {
	return errors.Newf("%s is required for %s messages", field, "feishu").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

// New constructs the Feishu notifier.
func New(cfg *httpclient.Config) (notifier.Notifier, error) {
	return notifier.New(notifier.Options{
		Name:          Name,
		Types:         []schema.MessageType{schema.TypeText, schema.TypePost, schema.TypeInteractive},
		NewRequest:    func() schema.Request { return &Request{} },
		Assemble:      assemble,
		CheckResponse: checkResponse,
		Config:        cfg,
	})
}

func assemble(req schema.Request) (*notifier.Payload, error) {
	r := req.(*Request)

	var body map[string]any
	switch r.Type() {
	case schema.TypeText:
		body = map[string]any{
			"msg_type": "text",
			"content":  map[string]any{"text": r.Content},
		}
	case schema.TypePost:
		body = map[string]any{
			"msg_type": "post",
			"content":  map[string]any{"post": r.PostContent},
		}
	case schema.TypeInteractive:
		template := r.CardHeader.Template
		if template == "" {
			template = "blue"
		}
		wideScreen := true
		if r.CardConfig != nil {
			wideScreen = r.CardConfig.WideScreenMode
		}
		body = map[string]any{
			"msg_type": "interactive",
			"card": map[string]any{
				"header": map[string]any{
					"title": map[string]any{
						"tag":      "plain_text",
						"content":  r.CardHeader.Title,
						"template": template,
					},
				},
				"elements": r.CardElements,
				"config":   map[string]any{"wide_screen_mode": wideScreen},
			},
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &notifier.Payload{URL: r.Target(), Body: data}, nil
}

// checkResponse catches application errors the bot API reports inside an
// HTTP 200 ({"code": n, "msg": "..."}).
func checkResponse(_ int, body []byte) error {
	var reply struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil
	}
	if reply.Code != 0 {
		return errors.Newf("feishu API error %d: %s", reply.Code, reply.Msg).Build()
	}
	return nil
}
