// Package notifybridge is a unifying client for sending notifications across
// heterogeneous messaging platforms (group chat webhooks, issue trackers,
// generic push services) through one API.
//
// The Bridge resolves a notifier by its registered platform name, validates
// the caller's fields against that platform's schema, assembles the
// platform-specific payload, performs one HTTP transmission, and normalizes
// the reply into the shared Response shape:
//
//	bridge, err := notifybridge.New()
//	if err != nil { ... }
//	defer bridge.Close()
//
//	resp, err := bridge.Send("wecom", schema.Fields{
//		"webhook_url": "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=...",
//		"content":     "deploy finished",
//	})
//
// Platform plugins beyond the built-ins register through Register before the
// first send.
package notifybridge

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loonghao/notify-bridge-go/config"
	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/logging"
	"github.com/loonghao/notify-bridge-go/metrics"
	"github.com/loonghao/notify-bridge-go/notifier"
	"github.com/loonghao/notify-bridge-go/registry"
	"github.com/loonghao/notify-bridge-go/schema"
)

// Bridge is the single object application code holds. It owns the notifier
// instances it creates (one cached instance per platform name) and releases
// their HTTP resources on Close. Safe for concurrent use.
type Bridge struct {
	reg      *registry.Registry
	httpCfg  httpclient.Config
	defaults map[string]schema.Fields
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	instances map[string]notifier.Notifier
	closed    bool
}

// Option configures a Bridge.
type Option func(*options)

type options struct {
	reg         *registry.Registry
	httpCfg     *httpclient.Config
	defaults    map[string]schema.Fields
	log         *slog.Logger
	metrics     *metrics.Metrics
	skipBuiltin bool
}

// WithHTTPConfig sets the transport configuration shared by every notifier
// the bridge creates.
func WithHTTPConfig(cfg httpclient.Config) Option {
	return func(o *options) { o.httpCfg = &cfg }
}

// WithRegistry replaces the bridge's registry. Built-ins are not seeded into
// a caller-supplied registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(o *options) { o.reg = reg }
}

// WithoutBuiltins skips registration of the built-in platform notifiers.
func WithoutBuiltins() Option {
	return func(o *options) { o.skipBuiltin = true }
}

// WithDefaults sets default request fields for one platform, merged under the
// caller's fields on every send to it. Typically used for webhook URLs and
// tokens.
func WithDefaults(name string, fields schema.Fields) Option {
	return func(o *options) {
		if o.defaults == nil {
			o.defaults = make(map[string]schema.Fields)
		}
		o.defaults[name] = fields.Clone()
	}
}

// WithConfig applies a loaded configuration: transport defaults and
// per-notifier default fields.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		httpCfg := cfg.HTTP
		o.httpCfg = &httpCfg
		for name, fields := range cfg.Notifiers {
			if o.defaults == nil {
				o.defaults = make(map[string]schema.Fields)
			}
			o.defaults[name] = fields.Clone()
		}
	}
}

// WithLogger routes the bridge's logging through l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics attaches prometheus instrumentation to the send path.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New creates a Bridge. Unless configured otherwise it carries the built-in
// platform notifiers and default transport settings. Configuration problems
// fail here, never during send.
func New(opts ...Option) (*Bridge, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	httpCfg := httpclient.DefaultConfig()
	if o.httpCfg != nil {
		if err := o.httpCfg.Validate(); err != nil {
			return nil, err
		}
		httpCfg = *o.httpCfg
	}

	reg := o.reg
	if reg == nil {
		reg = registry.New()
		if !o.skipBuiltin {
			registerBuiltins(reg)
		}
	}

	log := o.log
	if log == nil {
		log = logging.ForComponent("bridge")
	}

	return &Bridge{
		reg:       reg,
		httpCfg:   httpCfg,
		defaults:  o.defaults,
		log:       log,
		metrics:   o.metrics,
		instances: make(map[string]notifier.Notifier),
	}, nil
}

// Register adds or replaces a platform constructor. Intended for plugin
// registration before the first send; a name with a cached instance keeps
// serving the old instance until the bridge is rebuilt.
func (b *Bridge) Register(name string, ctor registry.Constructor) {
	b.reg.Register(name, ctor)
}

// Unregister removes a platform constructor; absent names are a no-op.
func (b *Bridge) Unregister(name string) {
	b.reg.Unregister(name)
}

// Notifiers returns the registered platform names in registration order.
func (b *Bridge) Notifiers() []string {
	return b.reg.List()
}

// Instances returns a snapshot of the notifier instances created so far,
// keyed by platform name.
func (b *Bridge) Instances() map[string]notifier.Notifier {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.instances)
}

// GetNotifier returns the cached notifier instance for name, creating it on
// first use. The instance is reused for the lifetime of the bridge.
func (b *Bridge) GetNotifier(name string) (notifier.Notifier, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errBridgeClosed()
	}
	if n, ok := b.instances[name]; ok {
		return n, nil
	}
	n, err := b.reg.Create(name, &b.httpCfg)
	if err != nil {
		return nil, err
	}
	b.instances[name] = n
	return n, nil
}

// Send sends a notification through the named platform, blocking until the
// round trip completes. Validation, lookup, and transport failures propagate
// unchanged as their respective error kinds.
func (b *Bridge) Send(name string, fields schema.Fields) (*schema.Response, error) {
	return b.SendContext(context.Background(), name, fields)
}

// SendContext is Send with caller-controlled cancellation; the call suspends
// only at the network boundary.
func (b *Bridge) SendContext(ctx context.Context, name string, fields schema.Fields) (*schema.Response, error) {
	n, err := b.GetNotifier(name)
	if err != nil {
		return nil, err
	}

	merged := b.mergedFields(name, fields)
	id := uuid.NewString()
	b.log.Debug("sending notification", "id", id, "notifier", name)

	start := time.Now()
	resp, err := n.SendContext(ctx, merged)
	b.metrics.ObserveSend(name, time.Since(start), err)
	if err != nil {
		b.log.Warn("send failed", "id", id, "notifier", name, "error", err)
		return nil, err
	}
	b.log.Debug("send succeeded", "id", id, "notifier", name)
	return resp, nil
}

// AsyncResult is the outcome of one asynchronous send.
type AsyncResult struct {
	Response *schema.Response
	Err      error
}

// SendAsync starts the send in the background and returns a channel that
// yields exactly one result. The calling goroutine never blocks on the
// network wait; cancellation of ctx aborts the in-flight request.
func (b *Bridge) SendAsync(ctx context.Context, name string, fields schema.Fields) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		resp, err := b.SendContext(ctx, name, fields)
		ch <- AsyncResult{Response: resp, Err: err}
		close(ch)
	}()
	return ch
}

// Close releases every cached notifier's HTTP resources. Idempotent; the
// bridge is expected to be discarded afterwards, not reused.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for name, n := range b.instances {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	b.instances = map[string]notifier.Notifier{}
	return errors.Join(errs...)
}

// mergedFields layers the caller's fields over the configured defaults for
// the platform. The caller always wins on key collisions.
func (b *Bridge) mergedFields(name string, fields schema.Fields) schema.Fields {
	defaults := b.defaults[name]
	if len(defaults) == 0 {
		return fields
	}
	merged := defaults.Clone()
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func errBridgeClosed() error {
	return errors.Newf("bridge is closed").
		Category(errors.CategoryNotification).
		Build()
}
