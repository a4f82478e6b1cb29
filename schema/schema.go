// Package schema defines the typed, validated shapes of notification requests
// and the single shared response shape.
//
// Request schemas are open: fields a platform schema does not declare are
// retained verbatim in the Extra bag instead of being rejected, so plugin
// authors can pass platform capabilities through without changes to the base
// contract. A decoded request converts back to its raw field mapping without
// loss via ToFields.
package schema

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/loonghao/notify-bridge-go/errors"
)

// Fields is the raw field→value mapping a caller supplies to a send call.
type Fields map[string]any

// Clone returns a shallow copy of the field mapping.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	cp := make(Fields, len(f))
	for k, v := range f {
		cp[k] = v
	}
	return cp
}

// MessageType identifies the shape of a message a platform should render.
type MessageType string

const (
	TypeText        MessageType = "text"
	TypeMarkdown    MessageType = "markdown"
	TypeNews        MessageType = "news"
	TypePost        MessageType = "post"
	TypeImage       MessageType = "image"
	TypeFile        MessageType = "file"
	TypeInteractive MessageType = "interactive"
)

// knownTypes is the closed set of message types the framework understands.
var knownTypes = map[MessageType]bool{
	TypeText:        true,
	TypeMarkdown:    true,
	TypeNews:        true,
	TypePost:        true,
	TypeImage:       true,
	TypeFile:        true,
	TypeInteractive: true,
}

// ParseMessageType validates a raw message type string. An empty string
// defaults to text.
func ParseMessageType(s string) (MessageType, error) {
	if s == "" {
		return TypeText, nil
	}
	t := MessageType(strings.ToLower(strings.TrimSpace(s)))
	if !knownTypes[t] {
		return "", errors.Newf("invalid message type %q", s).
			Category(errors.CategoryValidation).
			Context("field", "msg_type").
			Build()
	}
	return t, nil
}

// Response is the shared result of one send attempt. Data always holds the
// raw or lightly normalized platform reply so callers can inspect
// platform-specific codes. A Response is created once per attempt and never
// mutated afterwards.
type Response struct {
	Success  bool           `json:"success"`
	Notifier string         `json:"notifier_name"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

// Request is the validated, typed form of a notification request. Concrete
// platform schemas embed Base and add their declared fields.
type Request interface {
	// Validate applies the platform's semantic rules (required fields,
	// enumerated values). It must not perform network I/O.
	Validate() error

	// Type returns the requested message type, defaulting to text.
	Type() MessageType
}

// Base carries the fields common to every platform schema. The webhook_url
// alias mirrors url: whichever was supplied wins, with url taking precedence.
type Base struct {
	URL        string            `mapstructure:"url" json:"url,omitempty"`
	WebhookURL string            `mapstructure:"webhook_url" json:"webhook_url,omitempty"`
	Title      string            `mapstructure:"title" json:"title,omitempty"`
	Content    string            `mapstructure:"content" json:"content,omitempty"`
	MsgType    string            `mapstructure:"msg_type" json:"msg_type,omitempty"`
	Method     string            `mapstructure:"method" json:"method,omitempty"`
	Headers    map[string]string `mapstructure:"headers" json:"headers,omitempty"`

	// Extra retains every field the schema does not declare.
	Extra Fields `mapstructure:",remain" json:"-"`
}

// Type returns the requested message type, defaulting to text.
func (b *Base) Type() MessageType {
	if b.MsgType == "" {
		return TypeText
	}
	return MessageType(strings.ToLower(b.MsgType))
}

// Target returns the destination URL, resolving the webhook_url alias.
func (b *Base) Target() string {
	if b.URL != "" {
		return b.URL
	}
	return b.WebhookURL
}

// Validate checks only what the base declares; platform schemas layer their
// required-field rules on top.
func (b *Base) Validate() error {
	if b.MsgType != "" {
		if _, err := ParseMessageType(b.MsgType); err != nil {
			return err
		}
	}
	if b.Method != "" {
		if _, err := NormalizeMethod("method", b.Method); err != nil {
			return err
		}
	}
	return nil
}

// ExtraFields returns the undeclared fields retained during decoding.
func (b *Base) ExtraFields() Fields {
	return b.Extra
}

// Decode coerces a raw field mapping into the typed request req (a pointer to
// a struct embedding Base). Declared fields are type-checked and coerced;
// undeclared fields land in the Extra bag. Coercion failures surface as
// validation errors naming the offending input.
func Decode(raw Fields, req Request) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           req,
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return errors.New(err).Category(errors.CategoryConfiguration).Build()
	}
	if err := dec.Decode(map[string]any(raw)); err != nil {
		return errors.Newf("invalid notification fields: %s", err).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// ToFields converts a typed request back to its raw field mapping. The
// conversion is lossless for every field present at construction: declared
// fields serialize through their json tags and the Extra bag is merged back
// in, with declared fields winning on key collisions.
func ToFields(req Request) (Fields, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Newf("request not serializable: %s", err).
			Category(errors.CategoryValidation).
			Build()
	}
	declared := Fields{}
	if err := json.Unmarshal(data, &declared); err != nil {
		return nil, errors.Newf("request not serializable: %s", err).
			Category(errors.CategoryValidation).
			Build()
	}
	out := Fields{}
	if x, ok := req.(interface{ ExtraFields() Fields }); ok {
		for k, v := range x.ExtraFields() {
			out[k] = v
		}
	}
	for k, v := range declared {
		out[k] = v
	}
	return out, nil
}

// RequireString fails with a validation error when value is empty.
func RequireString(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Newf("%s is required", field).
			Category(errors.CategoryValidation).
			Context("field", field).
			Build()
	}
	return nil
}

// ValidateURL checks that value parses as an absolute http(s) URL.
func ValidateURL(field, value string) error {
	if err := RequireString(field, value); err != nil {
		return err
	}
	u, err := url.Parse(value)
	if err != nil {
		return errors.Newf("%s: invalid URL: %s", field, err).
			Category(errors.CategoryValidation).
			Context("field", field).
			Build()
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("%s: URL scheme must be http or https, got %q", field, u.Scheme).
			Category(errors.CategoryValidation).
			Context("field", field).
			Build()
	}
	if u.Host == "" {
		return errors.Newf("%s: URL host is required", field).
			Category(errors.CategoryValidation).
			Context("field", field).
			Build()
	}
	return nil
}

// NormalizeMethod upper-cases and validates an HTTP method, defaulting to POST.
func NormalizeMethod(field, method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		return http.MethodPost, nil
	}
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return m, nil
	}
	return "", errors.New(fmt.Errorf("%s: invalid HTTP method %q", field, method)).
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}
