package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	fiberClient "github.com/gofiber/fiber/v3/client"
)

const (
	DefaultExaBaseURL     = "https://api.exa.ai"
	DefaultSearchLimit    = 5
	maxSearchLimit        = 5
	maxQueryLength        = 200
	maxDomainFilters      = 3
	maxExcludedPhrases    = 5
	maxContentSnippetSize = 1000
)

type WebSearchConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type WebSearchInput struct {
	Query              string   `json:"query" jsonschema:"required,description=Free-form search query (max 200 characters)"`
	Limit              int      `json:"limit,omitempty" jsonschema:"description=Maximum number of results (1 to 5),minimum=1,maximum=5"`
	Category           string   `json:"category,omitempty" jsonschema:"description=Search category such as company or research paper or news or pdf or github or tweet or personal site or linkedin profile or financial report"`
	IncludeDomains     []string `json:"include_domains,omitempty" jsonschema:"description=Domains to restrict the search to (max 3)"`
	ExcludeDomains     []string `json:"exclude_domains,omitempty" jsonschema:"description=Domains to leave out (max 3)"`
	ExcludeText        []string `json:"exclude_text,omitempty" jsonschema:"description=Phrases that must not appear in results (max 5)"`
	StartPublishedDate string   `json:"start_published_date,omitempty" jsonschema:"description=Only content published after this ISO 8601 date"`
	EndPublishedDate   string   `json:"end_published_date,omitempty" jsonschema:"description=Only content published before this ISO 8601 date"`
}

/*
Normalize applies the search limits: the result count is clamped to 1..5,
the query is cut to 200 characters and the filter lists are truncated.
*/
func (in WebSearchInput) Normalize() WebSearchInput {
	if in.Limit == 0 {
		in.Limit = DefaultSearchLimit
	}

	if in.Limit > maxSearchLimit {
		log.Warn("search limit too high, adjusted", "limit", in.Limit, "max", maxSearchLimit)
		in.Limit = maxSearchLimit
	}

	if in.Limit < 1 {
		log.Warn("search limit too low, adjusted", "limit", in.Limit)
		in.Limit = 1
	}

	if runes := []rune(in.Query); len(runes) > maxQueryLength {
		log.Warn("search query truncated", "length", len(runes), "max", maxQueryLength)
		in.Query = strings.TrimRight(string(runes[:maxQueryLength]), " \t\n")
	}

	in.IncludeDomains = truncate(in.IncludeDomains, maxDomainFilters)
	in.ExcludeDomains = truncate(in.ExcludeDomains, maxDomainFilters)
	in.ExcludeText = truncate(in.ExcludeText, maxExcludedPhrases)

	return in
}

func truncate(values []string, max int) []string {
	if len(values) > max {
		log.Warn("filter list truncated", "count", len(values), "max", max)
		return values[:max]
	}

	return values
}

type exaContents struct {
	Text    bool `json:"text"`
	Summary bool `json:"summary"`
}

type exaRequest struct {
	Query              string      `json:"query"`
	NumResults         int         `json:"numResults"`
	Category           string      `json:"category,omitempty"`
	IncludeDomains     []string    `json:"includeDomains,omitempty"`
	ExcludeDomains     []string    `json:"excludeDomains,omitempty"`
	ExcludeText        []string    `json:"excludeText,omitempty"`
	StartPublishedDate string      `json:"startPublishedDate,omitempty"`
	EndPublishedDate   string      `json:"endPublishedDate,omitempty"`
	Contents           exaContents `json:"contents"`
}

type exaResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	PublishedDate string   `json:"publishedDate"`
	Summary       string   `json:"summary"`
	Text          string   `json:"text"`
	Score         *float64 `json:"score"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

type SearchResult struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	PublishedDate  string   `json:"published_date"`
	Summary        string   `json:"summary"`
	ContentSnippet string   `json:"content_snippet"`
	SourceDomain   string   `json:"source_domain"`
	RelevanceScore *float64 `json:"relevance_score"`
}

/*
WebSearchResult is returned to the model. API failures are reported in
Status and Message rather than as errors, so the model can explain them.
*/
type WebSearchResult struct {
	Status         string         `json:"status"`
	Message        string         `json:"message"`
	Results        []SearchResult `json:"results"`
	TotalFound     int            `json:"total_found"`
	SearchQuery    string         `json:"search_query,omitempty"`
	SearchCategory string         `json:"search_category,omitempty"`
	RequestedLimit int            `json:"requested_limit,omitempty"`
	ActualLimit    int            `json:"actual_limit,omitempty"`
	SearchParams   map[string]any `json:"search_params,omitempty"`
}

func searchFailure(message string) WebSearchResult {
	return WebSearchResult{
		Status:  "error",
		Message: message,
		Results: []SearchResult{},
	}
}

/*
WebSearch queries the Exa search API.
*/
type WebSearch struct {
	apiKey string
	conn   *fiberClient.Client
}

func NewWebSearch(config WebSearchConfig) *WebSearch {
	if config.BaseURL == "" {
		config.BaseURL = DefaultExaBaseURL
	}

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &WebSearch{
		apiKey: strings.TrimSpace(config.APIKey),
		conn:   fiberClient.New().SetBaseURL(config.BaseURL).SetTimeout(config.Timeout),
	}
}

func (search *WebSearch) Search(ctx context.Context, in WebSearchInput) WebSearchResult {
	if search.apiKey == "" {
		return searchFailure(
			"EXA_API_KEY not configured. Please set the EXA_API_KEY environment variable or add it to your .env file.",
		)
	}

	in = in.Normalize()

	payload := exaRequest{
		Query:              in.Query,
		NumResults:         in.Limit,
		Category:           in.Category,
		IncludeDomains:     in.IncludeDomains,
		ExcludeDomains:     in.ExcludeDomains,
		ExcludeText:        in.ExcludeText,
		StartPublishedDate: in.StartPublishedDate,
		EndPublishedDate:   in.EndPublishedDate,
		Contents:           exaContents{Text: true, Summary: true},
	}

	log.Info("web search", "query", in.Query, "limit", in.Limit, "category", in.Category)

	resp, err := search.conn.Post("/search", fiberClient.Config{
		Ctx: ctx,
		Header: map[string]string{
			"Content-Type": "application/json",
			"x-api-key":    search.apiKey,
		},
		Body: payload,
	})

	if err != nil {
		log.Error("web search failed", "error", err)
		return searchFailure(fmt.Sprintf("Error performing web search: %v", err))
	}

	defer resp.Close()

	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return searchFailure("Authentication failed. Please verify your EXA_API_KEY is correct and active.")
	case status == http.StatusBadRequest:
		return searchFailure(fmt.Sprintf(
			"Bad request: %s. Please check your search parameters.", strings.TrimSpace(string(resp.Body())),
		))
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return searchFailure(fmt.Sprintf("Error performing web search: status %d", status))
	}

	decoded := exaResponse{}

	if err = resp.JSON(&decoded); err != nil {
		return searchFailure(fmt.Sprintf("Error performing web search: %v", err))
	}

	results := make([]SearchResult, 0, len(decoded.Results))

	for _, result := range decoded.Results {
		snippet := result.Text

		if runes := []rune(snippet); len(runes) > maxContentSnippetSize {
			snippet = string(runes[:maxContentSnippetSize])
		}

		results = append(results, SearchResult{
			Title:          result.Title,
			URL:            result.URL,
			PublishedDate:  result.PublishedDate,
			Summary:        result.Summary,
			ContentSnippet: snippet,
			SourceDomain:   result.URL,
			RelevanceScore: result.Score,
		})
	}

	params := map[string]any{"num_results": in.Limit}

	for key, value := range map[string]any{
		"category":             in.Category,
		"include_domains":      in.IncludeDomains,
		"exclude_domains":      in.ExcludeDomains,
		"exclude_text":         in.ExcludeText,
		"start_published_date": in.StartPublishedDate,
		"end_published_date":   in.EndPublishedDate,
	} {
		switch typed := value.(type) {
		case string:
			if typed != "" {
				params[key] = typed
			}
		case []string:
			if len(typed) > 0 {
				params[key] = typed
			}
		}
	}

	return WebSearchResult{
		Status:         "success",
		Message:        fmt.Sprintf("Found %d web results", len(results)),
		Results:        results,
		TotalFound:     len(results),
		SearchQuery:    in.Query,
		SearchCategory: in.Category,
		RequestedLimit: in.Limit,
		ActualLimit:    in.Limit,
		SearchParams:   params,
	}
}

/*
NewWebSearchTool wraps WebSearch as the web_search function tool. The last
search is remembered in session state under last_web_search.
*/
func NewWebSearchTool(config WebSearchConfig) *FunctionTool[WebSearchInput] {
	search := NewWebSearch(config)

	return NewFunctionTool(
		"web_search",
		"Universal web search using EXA AI for comprehensive intelligence gathering.",
		func(ctx context.Context, toolCtx *Context, in WebSearchInput) (any, error) {
			result := search.Search(ctx, in)

			if toolCtx != nil && result.Status == "success" {
				toolCtx.SetState("last_web_search", map[string]any{
					"query":         result.SearchQuery,
					"category":      result.SearchCategory,
					"results_count": result.TotalFound,
				})
			}

			return result, nil
		},
	)
}
