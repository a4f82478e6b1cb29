package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/logging"
	"github.com/loonghao/notify-bridge-go/schema"
)

// maxResponseBodySize bounds how much of a platform reply is read back.
const maxResponseBodySize = 1 << 20

// maxErrorBodySize limits error response body reading for diagnostics.
const maxErrorBodySize = 1024

// Transport performs one HTTP round trip. httpclient.Client satisfies it;
// tests substitute stubs to prove validation happens before any I/O.
type Transport interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
	Close()
}

// AssembleFunc derives the platform payload from a validated request.
// Implementations must be pure: no I/O, deterministic for equal requests.
type AssembleFunc func(req schema.Request) (*Payload, error)

// CheckResponseFunc inspects a 2xx platform reply for application-level
// failure codes (platforms like WeCom report errors inside an HTTP 200).
// Returning an error turns the attempt into a notification failure.
type CheckResponseFunc func(status int, body []byte) error

// Options configures a Base notifier. Name, NewRequest, and Assemble are the
// three separately overridable steps of the pipeline; everything else has
// working defaults.
type Options struct {
	// Name is the platform name, unique within a registry.
	Name string

	// Types is the supported message-type set. Empty defaults to text only.
	Types []schema.MessageType

	// NewRequest constructs the platform's empty typed request for decoding.
	// Nil defaults to a bare schema.Base.
	NewRequest func() schema.Request

	// Assemble is the payload-assembly strategy. Required.
	Assemble AssembleFunc

	// CheckResponse optionally inspects 2xx replies for platform error codes.
	CheckResponse CheckResponseFunc

	// Config controls the lazily created HTTP client. Nil takes defaults.
	Config *httpclient.Config

	// Transport overrides the lazily created HTTP client when non-nil.
	Transport Transport

	// Logger overrides the component logger.
	Logger *slog.Logger
}

// Base drives the full notifier pipeline for one platform. Platform packages
// compose it with their request type and assembly strategy instead of
// reimplementing transmission and normalization.
//
// Safe for concurrent use. The HTTP client is created lazily on first send
// and shared by all subsequent sends through this instance.
type Base struct {
	name          string
	types         []schema.MessageType
	typeSet       map[schema.MessageType]bool
	newRequest    func() schema.Request
	assemble      AssembleFunc
	checkResponse CheckResponseFunc
	cfg           httpclient.Config
	log           *slog.Logger

	mu        sync.Mutex
	transport Transport
	closed    bool
}

// New builds a Base notifier from opts. Configuration problems (empty name,
// missing assembly strategy, invalid HTTP config) fail here, never during send.
func New(opts Options) (*Base, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, errors.Newf("notifier name is required").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if opts.Assemble == nil {
		return nil, errors.Newf("assemble strategy is required").
			Category(errors.CategoryConfiguration).
			Notifier(name).
			Build()
	}

	cfg := httpclient.DefaultConfig()
	if opts.Config != nil {
		if err := opts.Config.Validate(); err != nil {
			return nil, err
		}
		cfg = *opts.Config
	}

	types := slices.Clone(opts.Types)
	if len(types) == 0 {
		types = []schema.MessageType{schema.TypeText}
	}
	typeSet := make(map[schema.MessageType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	newRequest := opts.NewRequest
	if newRequest == nil {
		newRequest = func() schema.Request { return &schema.Base{} }
	}

	log := opts.Logger
	if log == nil {
		log = logging.ForComponent("notifier").With("notifier", name)
	}

	return &Base{
		name:          name,
		types:         types,
		typeSet:       typeSet,
		newRequest:    newRequest,
		assemble:      opts.Assemble,
		checkResponse: opts.CheckResponse,
		cfg:           cfg,
		log:           log,
		transport:     opts.Transport,
	}, nil
}

// Name returns the platform name.
func (b *Base) Name() string { return b.name }

// SupportedTypes returns the declared message-type set in declaration order.
func (b *Base) SupportedTypes() []schema.MessageType {
	return slices.Clone(b.types)
}

// Validate coerces raw fields into the platform's typed request, applies its
// schema rules, and rejects unsupported message types. No network I/O.
func (b *Base) Validate(raw schema.Fields) (schema.Request, error) {
	req := b.newRequest()
	if err := schema.Decode(raw, req); err != nil {
		return nil, attribute(err, b.name)
	}
	if err := req.Validate(); err != nil {
		return nil, attribute(err, b.name)
	}
	if t := req.Type(); !b.typeSet[t] {
		return nil, errors.Newf("unsupported message type %q, supported: %s", t, joinTypes(b.types)).
			Category(errors.CategoryValidation).
			Notifier(b.name).
			Context("field", "msg_type").
			Build()
	}
	return req, nil
}

// AssemblePayload applies the platform's assembly strategy and fills in the
// framework defaults: POST method and a JSON content type.
func (b *Base) AssemblePayload(req schema.Request) (*Payload, error) {
	payload, err := b.assemble(req)
	if err != nil {
		return nil, attribute(err, b.name)
	}
	if payload == nil {
		return nil, errors.Newf("assemble strategy returned no payload").
			Category(errors.CategoryPlugin).
			Notifier(b.name).
			Build()
	}
	if payload.Method == "" {
		payload.Method = http.MethodPost
	}
	if payload.Header == nil {
		payload.Header = http.Header{}
	}
	if payload.Header.Get("Content-Type") == "" {
		payload.Header.Set("Content-Type", "application/json")
	}
	return payload, nil
}

// Send performs one blocking send.
func (b *Base) Send(raw schema.Fields) (*schema.Response, error) {
	return b.SendContext(context.Background(), raw)
}

// SendContext performs one send, suspending only at the network boundary.
// The pipeline is strictly sequential: validate, assemble, one transmission,
// normalize. Validation failure is a hard stop and is never retried.
func (b *Base) SendContext(ctx context.Context, raw schema.Fields) (*schema.Response, error) {
	req, err := b.Validate(raw)
	if err != nil {
		return nil, err
	}
	payload, err := b.AssemblePayload(req)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateURL("url", payload.URL); err != nil {
		return nil, attribute(err, b.name)
	}

	transport, err := b.ensureTransport()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, payload.Method, payload.URL, bytes.NewReader(payload.Body))
	if err != nil {
		return nil, errors.Newf("failed to create request: %s", err).
			Category(errors.CategoryNotification).
			Notifier(b.name).
			Build()
	}
	for key, values := range payload.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := transport.Do(ctx, httpReq)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNotification).
			Notifier(b.name).
			Context("url", payload.URL).
			Build()
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return b.normalize(resp)
}

// normalize turns the raw platform reply into the shared response shape.
func (b *Base) normalize(resp *http.Response) (*schema.Response, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, errors.Newf("platform returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))).
			Category(errors.CategoryNotification).
			Notifier(b.name).
			Context("status", resp.StatusCode).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, errors.Newf("failed to read platform reply: %s", err).
			Category(errors.CategoryNotification).
			Notifier(b.name).
			Build()
	}

	if b.checkResponse != nil {
		if err := b.checkResponse(resp.StatusCode, body); err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryNotification).
				Notifier(b.name).
				Context("status", resp.StatusCode).
				Build()
		}
	}

	// Keep the raw reply inspectable: decoded JSON when the platform sent
	// JSON, the verbatim text under "raw" otherwise.
	var data map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			data = map[string]any{"raw": string(body)}
		}
	}

	b.log.Debug("notification sent", "status", resp.StatusCode)
	return &schema.Response{
		Success:  true,
		Notifier: b.name,
		Message:  "notification sent successfully",
		Data:     data,
	}, nil
}

// ensureTransport lazily creates the HTTP client on first use.
func (b *Base) ensureTransport() (Transport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.Newf("notifier is closed").
			Category(errors.CategoryNotification).
			Notifier(b.name).
			Build()
	}
	if b.transport == nil {
		client, err := httpclient.New(&b.cfg)
		if err != nil {
			return nil, err
		}
		b.transport = client
	}
	return b.transport, nil
}

// Close releases the HTTP client if one was ever created. Idempotent.
func (b *Base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.transport != nil {
		b.transport.Close()
		b.transport = nil
	}
	return nil
}

// attribute stamps the notifier name onto categorized errors that lack one.
func attribute(err error, name string) error {
	var e *errors.Error
	if errors.As(err, &e) && e.Notifier == "" {
		e.Notifier = name
		return e
	}
	if e != nil {
		return err
	}
	return errors.New(err).Category(errors.CategoryValidation).Notifier(name).Build()
}

func joinTypes(types []schema.MessageType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}
