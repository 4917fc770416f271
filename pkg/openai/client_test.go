package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendonia/brendonia-backend/pkg/config"
)

func validMomentsJSON() string {
	parts := make([]string, 0, MomentCount)
	for i := 1; i <= MomentCount; i++ {
		parts = append(parts, fmt.Sprintf(
			`{"idx":%d,"start_sec":%d,"end_sec":%d,"title":"Momento %d","hook":"gancho","score":%d}`,
			i, i*30, i*30+25, i, 100-i,
		))
	}
	return `{"moments":[` + strings.Join(parts, ",") + `]}`
}

func chatCompletionBody(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(raw)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), config.OpenAIConfig{
		APIKey:  "sk-test",
		Model:   "gpt-4.1",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.OpenAIConfig{}, nil)
	require.Error(t, err)
}

func TestTopMoments_ParsesModelOutput(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletionBody(validMomentsJSON()))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	moments, err := client.TopMoments(context.Background(), "[00:00:01] primeira fala")
	require.NoError(t, err)

	require.Len(t, moments, MomentCount)
	assert.Equal(t, 1, moments[0].Idx)
	assert.Equal(t, "Momento 1", moments[0].Title)
	assert.Equal(t, "gancho", moments[0].Hook)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4.1", gotReq.Model)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
	require.Len(t, gotReq.Messages, 2)
	assert.Contains(t, gotReq.Messages[1].Content, "primeira fala")
}

func TestTopMoments_RejectsWrongCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatCompletionBody(`{"moments":[{"idx":1,"start_sec":0,"end_sec":30,"title":"unico"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.TopMoments(context.Background(), "texto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 10 moments")
}

func TestTopMoments_SurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit_exceeded"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.TopMoments(context.Background(), "texto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestTopMoments_EmptyTranscript(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")
	_, err := client.TopMoments(context.Background(), "   ")
	require.Error(t, err)
}

func TestValidateMoments(t *testing.T) {
	base := func() []Moment {
		var payload momentsPayload
		require.NoError(t, json.Unmarshal([]byte(validMomentsJSON()), &payload))
		return payload.Moments
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validateMoments(base()))
	})

	t.Run("duplicate idx", func(t *testing.T) {
		moments := base()
		moments[1].Idx = 1
		require.Error(t, validateMoments(moments))
	})

	t.Run("end before start", func(t *testing.T) {
		moments := base()
		moments[0].EndSec = moments[0].StartSec
		require.Error(t, validateMoments(moments))
	})

	t.Run("short title", func(t *testing.T) {
		moments := base()
		moments[0].Title = "ab"
		require.Error(t, validateMoments(moments))
	})

	t.Run("score out of range", func(t *testing.T) {
		moments := base()
		bad := 101.0
		moments[0].Score = &bad
		require.Error(t, validateMoments(moments))
	})
}
