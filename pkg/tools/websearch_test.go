package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/agentdeck/pkg/stores"
)

func TestWebSearchInputNormalize(t *testing.T) {
	in := WebSearchInput{
		Query:          strings.Repeat("q", 250) + "   ",
		Limit:          12,
		IncludeDomains: []string{"a", "b", "c", "d"},
		ExcludeDomains: []string{"e"},
		ExcludeText:    []string{"1", "2", "3", "4", "5", "6"},
	}.Normalize()

	assert.Len(t, in.Query, 200)
	assert.Equal(t, 5, in.Limit)
	assert.Equal(t, []string{"a", "b", "c"}, in.IncludeDomains)
	assert.Equal(t, []string{"e"}, in.ExcludeDomains)
	assert.Len(t, in.ExcludeText, 5)

	assert.Equal(t, 1, WebSearchInput{Query: "x", Limit: -3}.Normalize().Limit)
	assert.Equal(t, DefaultSearchLimit, WebSearchInput{Query: "x"}.Normalize().Limit)
}

func TestWebSearchWithoutKey(t *testing.T) {
	result := NewWebSearch(WebSearchConfig{}).Search(context.Background(), WebSearchInput{Query: "go"})

	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Message, "EXA_API_KEY")
	assert.Empty(t, result.Results)
}

func TestWebSearchTool(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"title": "Go", "url": "https://go.dev", "publishedDate": "2024-01-01", "summary": "The Go language", "text": "` + strings.Repeat("x", 1500) + `", "score": 0.9}
		]}`))
	}))
	defer server.Close()

	tool := NewWebSearchTool(WebSearchConfig{APIKey: "test-key", BaseURL: server.URL})
	toolCtx := NewContext(stores.NewSession("app", "u1", "s1", nil), "inv", "agent", nil)

	out, err := tool.Run(context.Background(), toolCtx, map[string]any{
		"query":    "golang",
		"limit":    9,
		"category": "news",
	})
	require.NoError(t, err)

	result, ok := out.(WebSearchResult)
	require.True(t, ok)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 1, result.TotalFound)
	assert.Equal(t, "Go", result.Results[0].Title)
	assert.Len(t, result.Results[0].ContentSnippet, 1000)
	assert.InDelta(t, 0.9, *result.Results[0].RelevanceScore, 0.0001)
	assert.Equal(t, "news", result.SearchParams["category"])

	assert.Equal(t, float64(5), received["numResults"])
	assert.Equal(t, map[string]any{"text": true, "summary": true}, received["contents"])

	last, ok := toolCtx.State("last_web_search")
	require.True(t, ok)
	assert.Equal(t, "golang", last.(map[string]any)["query"])
}

func TestWebSearchUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	result := NewWebSearch(WebSearchConfig{APIKey: "bad", BaseURL: server.URL}).
		Search(context.Background(), WebSearchInput{Query: "go"})

	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Message, "Authentication failed")
}
