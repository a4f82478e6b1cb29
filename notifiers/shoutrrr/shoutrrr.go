// Package shoutrrr implements a notifier that delegates delivery to the
// shoutrrr service router, giving access to its whole catalog of services
// (Discord, Slack, Pushover, ...) through service URLs.
//
// Unlike the HTTP-based notifiers this one replaces the transmit step of the
// pipeline: validation and payload assembly follow the standard contract,
// but transmission goes through the shoutrrr sender instead of the shared
// HTTP client.
package shoutrrr

import (
	"context"
	"io"
	"log"
	"time"

	sender "github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/notifier"
	"github.com/loonghao/notify-bridge-go/schema"
)

// Name is the platform name this notifier registers under.
const Name = "shoutrrr"

// Request is the shoutrrr notification schema.
type Request struct {
	schema.Base `mapstructure:",squash"`

	// URLs are shoutrrr service URLs, e.g. "discord://token@id".
	URLs []string `mapstructure:"urls" json:"urls,omitempty"`
}

// Validate requires at least one service URL and the message content.
func (r *Request) Validate() error {
	if err := r.Base.Validate(); err != nil {
		return err
	}
	if len(r.URLs) == 0 {
		return errors.Newf("at least one service URL is required").
			Category(errors.CategoryValidation).
			Context("field", "urls").
			Build()
	}
	return schema.RequireString("content", r.Content)
}

// Notifier sends through the shoutrrr service router. It owns no HTTP client
// handle; the router manages its own transport per send.
type Notifier struct {
	timeout time.Duration
}

// New constructs the shoutrrr notifier. Only the config timeout is honored;
// retry and TLS settings belong to the router's own services.
func New(cfg *httpclient.Config) (notifier.Notifier, error) {
	timeout := httpclient.DefaultTimeout
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	}
	return &Notifier{timeout: timeout}, nil
}

// Name returns the platform name.
func (n *Notifier) Name() string { return Name }

// SupportedTypes returns the supported message types.
func (n *Notifier) SupportedTypes() []schema.MessageType {
	return []schema.MessageType{schema.TypeText}
}

// Validate coerces raw fields into the shoutrrr request schema.
func (n *Notifier) Validate(raw schema.Fields) (schema.Request, error) {
	req := &Request{}
	if err := schema.Decode(raw, req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if t := req.Type(); t != schema.TypeText {
		return nil, errors.Newf("unsupported message type %q, supported: [text]", t).
			Category(errors.CategoryValidation).
			Notifier(Name).
			Context("field", "msg_type").
			Build()
	}
	return req, nil
}

// AssemblePayload exposes the message body the router will deliver. The
// payload carries no URL or method: routing happens inside the sender.
func (n *Notifier) AssemblePayload(req schema.Request) (*notifier.Payload, error) {
	r, ok := req.(*Request)
	if !ok {
		return nil, errors.Newf("unexpected request type %T", req).
			Category(errors.CategoryValidation).
			Notifier(Name).
			Build()
	}
	return &notifier.Payload{Body: []byte(r.Content)}, nil
}

// Send performs one blocking send.
func (n *Notifier) Send(raw schema.Fields) (*schema.Response, error) {
	return n.SendContext(context.Background(), raw)
}

// SendContext validates, then hands the message to the service router. The
// router applies the configured timeout per service; ctx is checked before
// transmission starts.
func (n *Notifier) SendContext(ctx context.Context, raw schema.Fields) (*schema.Response, error) {
	req, err := n.Validate(raw)
	if err != nil {
		return nil, err
	}
	r := req.(*Request)

	if err := ctx.Err(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNotification).
			Notifier(Name).
			Build()
	}

	router, err := sender.CreateSender(r.URLs...)
	if err != nil {
		return nil, errors.Newf("invalid service URL: %s", err).
			Category(errors.CategoryValidation).
			Notifier(Name).
			Context("field", "urls").
			Build()
	}
	router.Timeout = n.timeout
	router.SetLogger(log.New(io.Discard, "", 0))

	params := types.Params{}
	if r.Title != "" {
		params.SetTitle(r.Title)
	}

	if errs := router.Send(r.Content, &params); len(errs) > 0 {
		for _, e := range errs {
			if e != nil {
				return nil, errors.New(e).
					Category(errors.CategoryNotification).
					Notifier(Name).
					Build()
			}
		}
	}

	return &schema.Response{
		Success:  true,
		Notifier: Name,
		Message:  "notification sent successfully",
		Data:     map[string]any{"services": len(r.URLs)},
	}, nil
}

// Close is a no-op; the router holds no persistent resources.
func (n *Notifier) Close() error { return nil }
