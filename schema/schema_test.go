package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loonghao/notify-bridge-go/errors"
)

func TestDecode(t *testing.T) {
	t.Run("declared fields are typed", func(t *testing.T) {
		raw := Fields{
			"url":     "https://example.com/hook",
			"title":   "release",
			"content": "v1.2.3 is out",
			"headers": map[string]any{"X-Env": "prod"},
		}
		var req Base
		require.NoError(t, Decode(raw, &req))

		assert.Equal(t, "https://example.com/hook", req.URL)
		assert.Equal(t, "release", req.Title)
		assert.Equal(t, "v1.2.3 is out", req.Content)
		assert.Equal(t, map[string]string{"X-Env": "prod"}, req.Headers)
	})

	t.Run("unknown fields are retained, not rejected", func(t *testing.T) {
		raw := Fields{
			"url":          "https://example.com/hook",
			"custom_color": "red",
			"priority":     5,
		}
		var req Base
		require.NoError(t, Decode(raw, &req))

		assert.Equal(t, "red", req.Extra["custom_color"])
		assert.Equal(t, 5, req.Extra["priority"])
	})

	t.Run("uncoercible value fails validation", func(t *testing.T) {
		raw := Fields{
			"url":     "https://example.com/hook",
			"headers": []any{"not", "a", "map"},
		}
		var req Base
		err := Decode(raw, &req)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}

func TestRoundTrip(t *testing.T) {
	raw := Fields{
		"url":      "https://example.com/hook",
		"title":    "release",
		"content":  "hello",
		"msg_type": "text",
		"custom":   "kept verbatim",
		"weight":   3,
	}

	var req Base
	require.NoError(t, Decode(raw, &req))

	fields, err := ToFields(&req)
	require.NoError(t, err)
	assert.Equal(t, raw, fields)

	// Re-validating the converted mapping reproduces an equivalent object.
	var again Base
	require.NoError(t, Decode(fields, &again))
	assert.Equal(t, req, again)
}

func TestBaseType(t *testing.T) {
	t.Run("defaults to text", func(t *testing.T) {
		assert.Equal(t, TypeText, (&Base{}).Type())
	})

	t.Run("normalizes case", func(t *testing.T) {
		assert.Equal(t, TypeMarkdown, (&Base{MsgType: "Markdown"}).Type())
	})
}

func TestBaseTarget(t *testing.T) {
	t.Run("url wins over webhook_url", func(t *testing.T) {
		b := Base{URL: "https://a.example", WebhookURL: "https://b.example"}
		assert.Equal(t, "https://a.example", b.Target())
	})

	t.Run("webhook_url alias", func(t *testing.T) {
		b := Base{WebhookURL: "https://b.example"}
		assert.Equal(t, "https://b.example", b.Target())
	})
}

func TestParseMessageType(t *testing.T) {
	t.Run("known types", func(t *testing.T) {
		for _, s := range []string{"text", "markdown", "news", "post", "image", "file", "interactive"} {
			got, err := ParseMessageType(s)
			require.NoError(t, err)
			assert.Equal(t, MessageType(s), got)
		}
	})

	t.Run("empty defaults to text", func(t *testing.T) {
		got, err := ParseMessageType("")
		require.NoError(t, err)
		assert.Equal(t, TypeText, got)
	})

	t.Run("unknown type is a validation error", func(t *testing.T) {
		_, err := ParseMessageType("voice")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}

func TestValidateURL(t *testing.T) {
	cases := []struct {
		name  string
		value string
		ok    bool
	}{
		{"https", "https://example.com/hook", true},
		{"http", "http://example.com", true},
		{"empty", "", false},
		{"no scheme", "example.com/hook", false},
		{"ftp scheme", "ftp://example.com", false},
		{"no host", "https://", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateURL("url", tc.value)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errors.ErrValidation)
			}
		})
	}
}

func TestNormalizeMethod(t *testing.T) {
	t.Run("defaults to POST", func(t *testing.T) {
		m, err := NormalizeMethod("method", "")
		require.NoError(t, err)
		assert.Equal(t, "POST", m)
	})

	t.Run("upper-cases", func(t *testing.T) {
		m, err := NormalizeMethod("method", "put")
		require.NoError(t, err)
		assert.Equal(t, "PUT", m)
	})

	t.Run("rejects unknown verbs", func(t *testing.T) {
		_, err := NormalizeMethod("method", "FETCH")
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}
