package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/schema"
)

// echoRequest requires content, like most platform schemas do.
type echoRequest struct {
	schema.Base `mapstructure:",squash"`
}

func (r *echoRequest) Validate() error {
	if err := r.Base.Validate(); err != nil {
		return err
	}
	return schema.RequireString("content", r.Content)
}

// newEchoNotifier builds a notifier whose payload is {"content": <content>}
// aimed at url.
func newEchoNotifier(t *testing.T, url string, opts ...func(*Options)) *Base {
	t.Helper()
	o := Options{
		Name:       "echo",
		NewRequest: func() schema.Request { return &echoRequest{} },
		Assemble: func(req schema.Request) (*Payload, error) {
			r := req.(*echoRequest)
			body, err := json.Marshal(map[string]any{"content": r.Content})
			if err != nil {
				return nil, err
			}
			return &Payload{URL: url, Body: body}, nil
		},
		Config: &httpclient.Config{MaxRetries: 0, Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}
	b, err := New(o)
	require.NoError(t, err)
	return b
}

// echoServer replies with the request body it received.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

// stubTransport records whether any I/O was attempted.
type stubTransport struct {
	called atomic.Bool
}

func (s *stubTransport) Do(_ context.Context, _ *http.Request) (*http.Response, error) {
	s.called.Store(true)
	return nil, errors.Newf("stub transport must not be reached").Build()
}

func (s *stubTransport) Close() {}

func TestNew(t *testing.T) {
	t.Run("requires a name", func(t *testing.T) {
		_, err := New(Options{Assemble: func(schema.Request) (*Payload, error) { return &Payload{}, nil }})
		assert.ErrorIs(t, err, errors.ErrConfiguration)
	})

	t.Run("requires an assemble strategy", func(t *testing.T) {
		_, err := New(Options{Name: "x"})
		assert.ErrorIs(t, err, errors.ErrConfiguration)
	})

	t.Run("rejects invalid http config at construction", func(t *testing.T) {
		_, err := New(Options{
			Name:     "x",
			Assemble: func(schema.Request) (*Payload, error) { return &Payload{}, nil },
			Config:   &httpclient.Config{MaxRetries: -1},
		})
		assert.ErrorIs(t, err, errors.ErrConfiguration)
	})

	t.Run("defaults to text-only support", func(t *testing.T) {
		b, err := New(Options{
			Name:     "x",
			Assemble: func(schema.Request) (*Payload, error) { return &Payload{}, nil },
		})
		require.NoError(t, err)
		assert.Equal(t, []schema.MessageType{schema.TypeText}, b.SupportedTypes())
	})
}

func TestSendEcho(t *testing.T) {
	server := echoServer(t)
	n := newEchoNotifier(t, server.URL)
	defer n.Close()

	resp, err := n.Send(schema.Fields{"content": "hi"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "echo", resp.Notifier)
	assert.Equal(t, map[string]any{"content": "hi"}, resp.Data)
}

func TestValidationPrecedesIO(t *testing.T) {
	stub := &stubTransport{}
	n := newEchoNotifier(t, "https://example.com/hook", func(o *Options) {
		o.Transport = stub
	})
	defer n.Close()

	t.Run("missing required field", func(t *testing.T) {
		_, err := n.Send(schema.Fields{})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrValidation)
		assert.False(t, stub.called.Load(), "transport must not be reached on validation failure")
	})

	t.Run("unsupported message type", func(t *testing.T) {
		_, err := n.Send(schema.Fields{"content": "hi", "msg_type": "markdown"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrValidation)
		assert.False(t, stub.called.Load())
	})

	t.Run("unknown message type", func(t *testing.T) {
		_, err := n.Send(schema.Fields{"content": "hi", "msg_type": "voice"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrValidation)
		assert.False(t, stub.called.Load())
	})
}

func TestValidationErrorsCarryNotifierName(t *testing.T) {
	n := newEchoNotifier(t, "https://example.com/hook")
	defer n.Close()

	_, err := n.Send(schema.Fields{})
	require.Error(t, err)
	assert.Equal(t, "echo", errors.NotifierName(err))
}

func TestSendTransportFailure(t *testing.T) {
	// Reserved port, nothing listens here.
	n := newEchoNotifier(t, "http://127.0.0.1:1/hook")
	defer n.Close()

	_, err := n.Send(schema.Fields{"content": "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotification)
	assert.Equal(t, "echo", errors.NotifierName(err))
}

func TestSendNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	n := newEchoNotifier(t, server.URL)
	defer n.Close()

	_, err := n.Send(schema.Fields{"content": "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotification)
	assert.Equal(t, "echo", errors.NotifierName(err))
	assert.Contains(t, err.Error(), "403")
}

func TestCheckResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Platform-style failure inside an HTTP 200.
		_, _ = w.Write([]byte(`{"errcode": 93000, "errmsg": "invalid key"}`))
	}))
	defer server.Close()

	n := newEchoNotifier(t, server.URL, func(o *Options) {
		o.CheckResponse = func(_ int, body []byte) error {
			var reply struct {
				ErrCode int `json:"errcode"`
			}
			if json.Unmarshal(body, &reply) == nil && reply.ErrCode != 0 {
				return errors.Newf("platform error %d", reply.ErrCode).Build()
			}
			return nil
		}
	})
	defer n.Close()

	_, err := n.Send(schema.Fields{"content": "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotification)
}

func TestNonJSONReplyIsKeptRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	n := newEchoNotifier(t, server.URL)
	defer n.Close()

	resp, err := n.Send(schema.Fields{"content": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"raw": "ok"}, resp.Data)
}

func TestSendContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	n := newEchoNotifier(t, server.URL)
	defer n.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := n.SendContext(ctx, schema.Fields{"content": "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotification)
}

func TestClose(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		server := echoServer(t)
		n := newEchoNotifier(t, server.URL)

		_, err := n.Send(schema.Fields{"content": "hi"})
		require.NoError(t, err)

		assert.NoError(t, n.Close())
		assert.NoError(t, n.Close())
	})

	t.Run("before any send", func(t *testing.T) {
		n := newEchoNotifier(t, "https://example.com/hook")
		assert.NoError(t, n.Close())
		assert.NoError(t, n.Close())
	})

	t.Run("send after close fails", func(t *testing.T) {
		n := newEchoNotifier(t, "https://example.com/hook")
		require.NoError(t, n.Close())

		_, err := n.Send(schema.Fields{"content": "hi"})
		assert.ErrorIs(t, err, errors.ErrNotification)
	})
}

func TestAssemblePayloadDefaults(t *testing.T) {
	n := newEchoNotifier(t, "https://example.com/hook")
	defer n.Close()

	req, err := n.Validate(schema.Fields{"content": "hi"})
	require.NoError(t, err)

	payload, err := n.AssemblePayload(req)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, payload.Method)
	assert.Equal(t, "application/json", payload.Header.Get("Content-Type"))
}

func TestAssembleIsDeterministic(t *testing.T) {
	n := newEchoNotifier(t, "https://example.com/hook")
	defer n.Close()

	req, err := n.Validate(schema.Fields{"content": "hi"})
	require.NoError(t, err)

	first, err := n.AssemblePayload(req)
	require.NoError(t, err)
	second, err := n.AssemblePayload(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
