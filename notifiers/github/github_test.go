package github

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/notifier"
	"github.com/loonghao/notify-bridge-go/schema"
)

// mockTransport bridges an httpmock transport into the notifier pipeline.
type mockTransport struct {
	mock *httpmock.MockTransport
}

func (m *mockTransport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return m.mock.RoundTrip(req.WithContext(ctx))
}

func (m *mockTransport) Close() {}

func newMockedNotifier(t *testing.T, mock *httpmock.MockTransport) notifier.Notifier {
	t.Helper()
	n, err := notifier.New(notifier.Options{
		Name:       Name,
		Types:      []schema.MessageType{schema.TypeText, schema.TypeMarkdown},
		NewRequest: func() schema.Request { return &Request{} },
		Assemble:   assemble,
		Transport:  &mockTransport{mock: mock},
	})
	require.NoError(t, err)
	return n
}

func TestValidate(t *testing.T) {
	n, err := New(nil)
	require.NoError(t, err)
	defer n.Close()

	cases := []struct {
		name   string
		fields schema.Fields
	}{
		{"missing owner", schema.Fields{"repo": "r", "token": "t"}},
		{"missing repo", schema.Fields{"owner": "o", "token": "t"}},
		{"missing token", schema.Fields{"owner": "o", "repo": "r"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Validate(tc.fields)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrValidation)
			assert.Equal(t, Name, errors.NotifierName(err))
		})
	}

	t.Run("complete fields", func(t *testing.T) {
		_, err := n.Validate(schema.Fields{"owner": "o", "repo": "r", "token": "t"})
		assert.NoError(t, err)
	})
}

func TestAssemble(t *testing.T) {
	t.Run("derived API endpoint and auth headers", func(t *testing.T) {
		payload, err := assemble(&Request{
			Base:  schema.Base{Title: "crash report", Content: "stack trace"},
			Owner: "loonghao",
			Repo:  "notify-bridge-go",
			Token: "ghp_secret",
		})
		require.NoError(t, err)

		assert.Equal(t, "https://api.github.com/repos/loonghao/notify-bridge-go/issues", payload.URL)
		assert.Equal(t, "Bearer ghp_secret", payload.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", payload.Header.Get("Accept"))
		assert.Equal(t, apiVersion, payload.Header.Get("X-GitHub-Api-Version"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(payload.Body, &body))
		assert.Equal(t, "crash report", body["title"])
		assert.Equal(t, "stack trace", body["body"])
	})

	t.Run("explicit URL overrides the derived endpoint", func(t *testing.T) {
		payload, err := assemble(&Request{
			Base:  schema.Base{URL: "https://ghe.corp.example/api/v3/repos/o/r/issues"},
			Owner: "o", Repo: "r", Token: "t",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://ghe.corp.example/api/v3/repos/o/r/issues", payload.URL)
	})

	t.Run("title default and issue extras", func(t *testing.T) {
		payload, err := assemble(&Request{
			Owner: "o", Repo: "r", Token: "t",
			Labels:    []string{"bug"},
			Assignees: []string{"octocat"},
			Milestone: 3,
		})
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(payload.Body, &body))
		assert.Equal(t, "New Issue", body["title"])
		assert.Equal(t, []any{"bug"}, body["labels"])
		assert.Equal(t, []any{"octocat"}, body["assignees"])
		assert.Equal(t, float64(3), body["milestone"])
	})
}

func TestSend(t *testing.T) {
	t.Run("issue created", func(t *testing.T) {
		mock := httpmock.NewMockTransport()
		mock.RegisterResponder(http.MethodPost,
			"https://api.github.com/repos/loonghao/notify-bridge-go/issues",
			httpmock.NewStringResponder(http.StatusCreated, `{"number": 42, "state": "open"}`))

		n := newMockedNotifier(t, mock)
		defer n.Close()

		resp, err := n.Send(schema.Fields{
			"owner":   "loonghao",
			"repo":    "notify-bridge-go",
			"token":   "ghp_secret",
			"title":   "crash report",
			"content": "stack trace",
		})
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.Equal(t, float64(42), resp.Data["number"])
		assert.Equal(t, 1, mock.GetTotalCallCount())
	})

	t.Run("API rejection is a notification error", func(t *testing.T) {
		mock := httpmock.NewMockTransport()
		mock.RegisterResponder(http.MethodPost,
			"https://api.github.com/repos/o/r/issues",
			httpmock.NewStringResponder(http.StatusUnauthorized, `{"message": "Bad credentials"}`))

		n := newMockedNotifier(t, mock)
		defer n.Close()

		_, err := n.Send(schema.Fields{"owner": "o", "repo": "r", "token": "bad", "content": "x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrNotification)
		assert.Equal(t, Name, errors.NotifierName(err))
	})
}
