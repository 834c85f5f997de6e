package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/character-extractor/pkg/modeljson"
)

func completionServer(t *testing.T, content string, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if gotBody != nil {
			_ = json.NewDecoder(r.Body).Decode(gotBody)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "local",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "http://localhost:8080/v1/"},
		{"http://localhost:8080", "http://localhost:8080/v1/"},
		{"http://host:9000/v1", "http://host:9000/v1/"},
		{"http://host:9000/v1/chat/completions", "http://host:9000/v1/"},
		{"https://api.example.com/openai/v1/", "https://api.example.com/openai/v1/"},
	}
	for _, tt := range tests {
		got, err := normalizeBaseURL(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := normalizeBaseURL("localhost")
	assert.Error(t, err)
}

func TestSimpleQuery(t *testing.T) {
	var body map[string]any
	srv := completionServer(t, "blonde", &body)
	defer srv.Close()

	c, err := NewClient(srv.URL, "", nil)
	require.NoError(t, err)

	answer, err := c.SimpleQuery(context.Background(), "local", "Question: hair? Answer:", "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "blonde", answer)
	assert.Equal(t, "local", body["model"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
}

func TestDetectObjects(t *testing.T) {
	srv := completionServer(t, "```json\n{\"detections\":[{\"label\":\"person\",\"confidence\":0.7,\"box\":{\"x\":0,\"y\":0,\"w\":0.5,\"h\":0.5}}]}\n```", nil)
	defer srv.Close()

	c, err := NewClient(srv.URL, "key", nil)
	require.NoError(t, err)

	res, err := c.DetectObjects(context.Background(), "local", "detect", "aGVsbG8=")
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)
	assert.InDelta(t, 0.7, res.Detections[0].Confidence, 1e-9)
}

func TestDetectObjects_TruncatedAnswer(t *testing.T) {
	srv := completionServer(t, `{"detections": [{"label": "person", "confidence": 0.9, "box": {"x": 0.1, "y"`, nil)
	defer srv.Close()

	c, err := NewClient(srv.URL, "", nil)
	require.NoError(t, err)

	res, err := c.DetectObjects(context.Background(), "local", "detect", "aGVsbG8=")
	require.ErrorIs(t, err, modeljson.ErrMalformed)
	assert.Nil(t, res)
}

func TestSimpleQuery_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "", nil)
	require.NoError(t, err)

	_, err = c.SimpleQuery(context.Background(), "local", "p", "")
	require.Error(t, err)
}

func TestWithTimeout(t *testing.T) {
	c, err := NewClient("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)

	c.WithTimeout(-time.Second)
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, 90*time.Second, c.WithTimeout(90*time.Second).timeout)
}
