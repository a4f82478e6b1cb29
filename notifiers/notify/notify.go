// Package notify implements the notifier for ntfy-style generic push
// services: a JSON message posted to a base URL with optional bearer auth,
// tags, and an icon.
package notify

import (
	"encoding/json"
	"net/http"

	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/notifier"
	"github.com/loonghao/notify-bridge-go/schema"
)

// Name is the platform name this notifier registers under.
const Name = "notify"

// Request is the push-service notification schema.
type Request struct {
	schema.Base `mapstructure:",squash"`

	BaseURL string   `mapstructure:"base_url" json:"base_url,omitempty"`
	Token   string   `mapstructure:"token" json:"token,omitempty"`
	Tags    []string `mapstructure:"tags" json:"tags,omitempty"`
	Icon    string   `mapstructure:"icon" json:"icon,omitempty"`
}

// Validate requires the service base URL.
func (r *Request) Validate() error {
	if err := r.Base.Validate(); err != nil {
		return err
	}
	return schema.ValidateURL("base_url", r.endpoint())
}

// endpoint resolves the destination, preferring base_url over the common
// url/webhook_url fields.
func (r *Request) endpoint() string {
	if r.BaseURL != "" {
		return r.BaseURL
	}
	return r.Target()
}

// New constructs the notify notifier.
func New(cfg *httpclient.Config) (notifier.Notifier, error) {
	return notifier.New(notifier.Options{
		Name:       Name,
		Types:      []schema.MessageType{schema.TypeText},
		NewRequest: func() schema.Request { return &Request{} },
		Assemble:   assemble,
		Config:     cfg,
	})
}

func assemble(req schema.Request) (*notifier.Payload, error) {
	r := req.(*Request)

	body := map[string]any{"message": r.Content}
	if r.Title != "" {
		body["title"] = r.Title
	}
	if len(r.Tags) > 0 {
		body["tags"] = r.Tags
	}
	if r.Icon != "" {
		body["icon"] = r.Icon
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if r.Token != "" {
		header.Set("Authorization", "Bearer "+r.Token)
	}
	for k, v := range r.Headers {
		header.Set(k, v)
	}

	return &notifier.Payload{URL: r.endpoint(), Header: header, Body: data}, nil
}
