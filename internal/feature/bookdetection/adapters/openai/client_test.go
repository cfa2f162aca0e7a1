package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfscan_backend/internal/feature/bookdetection/adapters/openai/dto"
	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
)

func TestOpenAIBookExtractor_ExtractBooks_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req dto.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.True(t, strings.HasPrefix(req.Messages[0].Content[1].ImageURL.URL, "data:"))
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"books\":[{\"title\":\"Circe\",\"author\":\"Madeline Miller\",\"mood\":\"literary\"}]}"}}]}`))
	}))
	defer server.Close()

	o := NewOpenAIBookExtractor(Config{APIKey: "test-key", Model: "gpt-test", BaseURL: server.URL + "/"}, server.Client())

	books, err := o.ExtractBooks(context.Background(), []byte("\x89PNG\r\n\x1a\nfake"))

	require.NoError(t, err)
	assert.Equal(t, []entity.StructuredBook{{Title: "Circe", Author: "Madeline Miller", Mood: "literary"}}, books)
}

func TestOpenAIBookExtractor_ExtractBooks_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   domain.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key"}}`, domain.KindAuth},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`, domain.KindRateLimited},
		{"server error", http.StatusInternalServerError, `oops`, domain.KindTransient},
		{"no choices", http.StatusOK, `{"choices":[]}`, domain.KindTransient},
		{"malformed content", http.StatusOK, `{"choices":[{"message":{"content":"three books"}}]}`, domain.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			o := NewOpenAIBookExtractor(Config{APIKey: "k", Model: "m", BaseURL: server.URL}, server.Client())

			_, err := o.ExtractBooks(context.Background(), []byte("img"))

			require.Error(t, err)
			assert.Equal(t, tt.want, domain.KindOf(err))
		})
	}
}

func TestOpenAIBookExtractor_MissingKey(t *testing.T) {
	t.Parallel()

	o := NewOpenAIBookExtractor(Config{BaseURL: "http://unused"}, http.DefaultClient)

	_, err := o.ExtractBooks(context.Background(), []byte("img"))

	assert.ErrorIs(t, err, domain.ErrProviderAuth)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_BASE_URL", "")

	cfg := LoadConfig()

	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}
