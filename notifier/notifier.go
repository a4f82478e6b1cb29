// Package notifier defines the capability every platform plugin implements
// and the Base engine that drives the validate → assemble → transmit →
// normalize pipeline for it.
package notifier

import (
	"context"
	"net/http"

	"github.com/loonghao/notify-bridge-go/schema"
)

// Payload is the platform-specific HTTP request derived from a validated
// notification request. Method, URL, headers, and body are entirely
// notifier-declared; the framework defines no wire protocol of its own.
type Payload struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Notifier is the contract for one messaging platform. Implementations must
// be safe for concurrent use: a single instance may serve concurrent sends
// in both blocking and context-aware form across its lifetime.
type Notifier interface {
	// Name returns the registered platform name, used for diagnostics and
	// error attribution.
	Name() string

	// SupportedTypes returns the message types this platform accepts.
	SupportedTypes() []schema.MessageType

	// Validate coerces raw fields into the platform's typed request and
	// applies its schema rules. It performs no network I/O.
	Validate(raw schema.Fields) (schema.Request, error)

	// AssemblePayload deterministically derives the platform payload from a
	// validated request. It performs no network I/O.
	AssemblePayload(req schema.Request) (*Payload, error)

	// Send validates, assembles, performs exactly one HTTP transmission
	// (retried at the transport layer per the client config), and
	// normalizes the platform reply. It blocks until the round trip
	// completes or the transport timeout fires.
	Send(raw schema.Fields) (*schema.Response, error)

	// SendContext is Send with caller-controlled cancellation; the network
	// wait honors ctx.
	SendContext(ctx context.Context, raw schema.Fields) (*schema.Response, error)

	// Close releases the owned HTTP resources. It is idempotent, and a
	// no-op when lazy initialization never created anything to release.
	Close() error
}
