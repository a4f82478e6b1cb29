// Package wecom implements the WeChat Work (WeCom) group bot notifier.
//
// Supported message types: text (with member mentions), markdown, and news
// (article cards). Image and file messages require the media upload API and
// are not handled here.
package wecom

import (
	"encoding/json"

	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/notifier"
	"github.com/loonghao/notify-bridge-go/schema"
)

// Name is the platform name this notifier registers under.
const Name = "wecom"

// Article is one news card entry.
type Article struct {
	Title       string `mapstructure:"title" json:"title"`
	Description string `mapstructure:"description" json:"description,omitempty"`
	URL         string `mapstructure:"url" json:"url"`
	PicURL      string `mapstructure:"picurl" json:"picurl,omitempty"`
}

// Request is the WeCom notification schema.
type Request struct {
	schema.Base `mapstructure:",squash"`

	// MentionedList and MentionedMobileList @-mention group members in
	// text messages.
	MentionedList       []string `mapstructure:"mentioned_list" json:"mentioned_list,omitempty"`
	MentionedMobileList []string `mapstructure:"mentioned_mobile_list" json:"mentioned_mobile_list,omitempty"`

	// Articles carries the cards for news messages.
	Articles []Article `mapstructure:"articles" json:"articles,omitempty"`
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
	case schema.TypeText, schema.TypeMarkdown:
		return schema.RequireString("content", r.Content)
	case schema.TypeNews:
		if len(r.Articles) == 0 {
			return errors.Newf("articles are required for news messages").
				Category(errors.CategoryValidation).
				Context("field", "articles").
				Build()
		}
	}
	return nil
}

// New constructs the WeCom notifier.
func New(cfg *httpclient.Config) (notifier.Notifier, error) {
	return notifier.New(notifier.Options{
		Name:          Name,
		Types:         []schema.MessageType{schema.TypeText, schema.TypeMarkdown, schema.TypeNews},
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
		text := map[string]any{"content": r.Content}
		if len(r.MentionedList) > 0 {
			text["mentioned_list"] = r.MentionedList
		}
		if len(r.MentionedMobileList) > 0 {
			text["mentioned_mobile_list"] = r.MentionedMobileList
		}
		body = map[string]any{"msgtype": "text", "text": text}
	case schema.TypeMarkdown:
		body = map[string]any{
			"msgtype":  "markdown",
			"markdown": map[string]any{"content": r.Content},
		}
	case schema.TypeNews:
		body = map[string]any{
			"msgtype": "news",
			"news":    map[string]any{"articles": r.Articles},
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &notifier.Payload{URL: r.Target(), Body: data}, nil
}

// checkResponse catches application errors reported inside an HTTP 200
// ({"errcode": n, "errmsg": "..."}).
func checkResponse(_ int, body []byte) error {
	var reply struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil
	}
	if reply.ErrCode != 0 {
		return errors.Newf("wecom API error %d: %s", reply.ErrCode, reply.ErrMsg).Build()
	}
	return nil
}
