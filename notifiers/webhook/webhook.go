// Package webhook implements the generic JSON webhook notifier: the request's
// payload map, plus the common content field, posted verbatim to a
// caller-supplied URL with caller-supplied method and headers.
package webhook

import (
	"encoding/json"
	"net/http"

	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/notifier"
	"github.com/loonghao/notify-bridge-go/schema"
)

// Name is the platform name this notifier registers under.
const Name = "webhook"

// Request is the webhook notification schema.
type Request struct {
	schema.Base `mapstructure:",squash"`

	// Payload is the JSON body to send; content, when set, is merged in
	// under the "content" key.
	Payload map[string]any `mapstructure:"payload" json:"payload,omitempty"`
}

// Validate requires a destination URL.
func (r *Request) Validate() error {
	if err := r.Base.Validate(); err != nil {
		return err
	}
	return schema.ValidateURL("webhook_url", r.Target())
}

// New constructs the webhook notifier.
func New(cfg *httpclient.Config) (notifier.Notifier, error) {
	return notifier.New(notifier.Options{
		Name:       Name,
		Types:      []schema.MessageType{schema.TypeText, schema.TypeMarkdown},
		NewRequest: func() schema.Request { return &Request{} },
		Assemble:   assemble,
		Config:     cfg,
	})
}

func assemble(req schema.Request) (*notifier.Payload, error) {
	r := req.(*Request)

	body := make(map[string]any, len(r.Payload)+1)
	for k, v := range r.Payload {
		body[k] = v
	}
	if r.Content != "" {
		body["content"] = r.Content
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	method, err := schema.NormalizeMethod("method", r.Method)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	for k, v := range r.Headers {
		header.Set(k, v)
	}

	return &notifier.Payload{
		Method: method,
		URL:    r.Target(),
		Header: header,
		Body:   data,
	}, nil
}
