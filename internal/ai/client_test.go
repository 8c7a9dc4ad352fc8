package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/logger"
)

func openAIConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		Provider:    "openai",
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "test/model",
		Temperature: 0.7,
		MaxTokens:   300,
		SiteURL:     "https://desk.example.com",
		AppTitle:    "Desk Test",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), openAIConfig(srv.URL), logger.Discard())
	require.NoError(t, err)
	return c
}

func completion(content string) string {
	return fmt.Sprintf(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

func TestGenerateSuccess(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var headers http.Header

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion("  Trade buzz is heating up.  "))
	})

	res := c.Generate(context.Background(), Request{
		SystemInstruction: "be a journalist",
		UserPrompt:        "[OOTP:trades] dale: big trade",
		MaxTokens:         300,
		Temperature:       0.7,
	}, 5*time.Second)

	require.True(t, res.OK(), "unexpected failure: %v", res.Err)
	assert.Equal(t, "Trade buzz is heating up.", res.Text)

	assert.Equal(t, "test/model", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be a journalist", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "[OOTP:trades] dale: big trade", got.Messages[1].Content)

	assert.Equal(t, "Bearer test-key", headers.Get("Authorization"))
	assert.Equal(t, "https://desk.example.com", headers.Get("HTTP-Referer"))
	assert.Equal(t, "Desk Test", headers.Get("X-Title"))
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		reason  Reason
	}{
		{
			name: "absent choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"id":"x","object":"chat.completion"}`)
			},
			reason: ReasonNoChoices,
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"choices":[]}`)
			},
			reason: ReasonNoChoices,
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, completion("   "))
			},
			reason: ReasonMalformed,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `<html>bad gateway page</html>`)
			},
			reason: ReasonMalformed,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, `{"error":{"message":"upstream down","type":"server_error"}}`)
			},
			reason: ReasonTransport,
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout: 100 * time.Millisecond,
			reason:  ReasonTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			timeout := tt.timeout
			if timeout == 0 {
				timeout = 5 * time.Second
			}

			res := c.Generate(context.Background(), Request{SystemInstruction: "s", UserPrompt: "u"}, timeout)
			assert.False(t, res.OK())
			assert.Empty(t, res.Text)
			assert.Equal(t, tt.reason, res.Reason, "cause: %v", res.Err)
			assert.Error(t, res.Err)
		})
	}
}

func TestGenerateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(context.Background(), openAIConfig(url), logger.Discard())
	require.NoError(t, err)

	res := c.Generate(context.Background(), Request{UserPrompt: "u"}, time.Second)
	assert.Equal(t, ReasonTransport, res.Reason)
}

func TestNewClientValidation(t *testing.T) {
	cfg := openAIConfig("http://localhost")
	cfg.APIKey = ""
	_, err := NewClient(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = openAIConfig("http://localhost")
	cfg.Provider = "carrier-pigeon"
	_, err = NewClient(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestGeminiBackend(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ok     bool
		text   string
		reason Reason
	}{
		{
			name: "candidate text",
			body: `{"candidates":[{"content":{"role":"model","parts":[{"text":"Gemini take on the trade."}]}}]}`,
			ok:   true,
			text: "Gemini take on the trade.",
		},
		{
			name:   "no candidates",
			body:   `{"candidates":[]}`,
			reason: ReasonNoChoices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c, err := NewClient(context.Background(), config.AIConfig{
				Provider:  "gemini",
				APIKey:    "test-key",
				BaseURL:   srv.URL,
				Model:     "gemini-test",
				MaxTokens: 200,
			}, logger.Discard())
			require.NoError(t, err)

			res := c.Generate(context.Background(), Request{SystemInstruction: "s", UserPrompt: "u", MaxTokens: 200}, 5*time.Second)
			assert.Equal(t, tt.ok, res.OK(), "cause: %v", res.Err)
			assert.Equal(t, tt.text, res.Text)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestClassify(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		err    error
		reason Reason
	}{
		{name: "no choices", ctx: context.Background(), err: errNoChoices, reason: ReasonNoChoices},
		{name: "wrapped deadline", ctx: context.Background(), err: fmt.Errorf("post: %w", context.DeadlineExceeded), reason: ReasonTimeout},
		{name: "expired context", ctx: expired, err: errors.New("request aborted"), reason: ReasonTimeout},
		{name: "syntax", ctx: context.Background(), err: &json.SyntaxError{}, reason: ReasonMalformed},
		{name: "truncated body", ctx: context.Background(), err: io.ErrUnexpectedEOF, reason: ReasonMalformed},
		{name: "other", ctx: context.Background(), err: errors.New("connection refused"), reason: ReasonTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, classify(tt.ctx, tt.err))
		})
	}
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "no_choices", ReasonNoChoices.String())
	assert.Equal(t, "timeout", ReasonTimeout.String())
	assert.Equal(t, "transport", ReasonTransport.String())
	assert.Equal(t, "malformed", ReasonMalformed.String())
	assert.Equal(t, "none", ReasonNone.String())
}

func TestGenerateSanitizesText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ok      bool
		text    string
	}{
		{
			name:    "invisible marks and blank line runs",
			content: "Deadline\u200b  Frenzy\r\n\r\n\r\n\r\nTwo   leagues, one storyline.",
			ok:      true,
			text:    "Deadline Frenzy\n\nTwo leagues, one storyline.",
		},
		{
			name:    "only invisible characters",
			content: "\u200b\u2060\ufeff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, completion(tt.content))
			})

			res := c.Generate(context.Background(), Request{SystemInstruction: "s", UserPrompt: "u"}, 5*time.Second)
			assert.Equal(t, tt.ok, res.OK(), "cause: %v", res.Err)
			if tt.ok {
				assert.Equal(t, tt.text, res.Text)
			} else {
				assert.Equal(t, ReasonMalformed, res.Reason)
			}
		})
	}
}
