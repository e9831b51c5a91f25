package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"

	"go.uber.org/zap"
)

// SearchDictionary stores keywords as documents in an Elasticsearch-compatible
// index. The index counts as ready once it has a non-empty mapping.
type SearchDictionary struct {
	baseURL    string
	index      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSearchDictionary creates a backend for index on the search cluster at baseURL.
func NewSearchDictionary(baseURL, index string, logger *zap.Logger) *SearchDictionary {
	return &SearchDictionary{
		baseURL: strings.TrimRight(baseURL, "/"),
		index:   index,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type searchMappingResponse map[string]struct {
	Mappings map[string]json.RawMessage `json:"mappings"`
}

type keywordDocument struct {
	Word string `json:"word"`
}

func (d *SearchDictionary) IndexReady(ctx context.Context) bool {
	var resp searchMappingResponse
	status, err := d.doRequest(ctx, http.MethodGet, "/"+url.PathEscape(d.index)+"/_mapping", nil, &resp)
	if err != nil {
		d.logger.Error("dictionary mapping lookup failed", zap.String("index", d.index), zap.Int("status", status), zap.Error(err))
		return false
	}
	idx, ok := resp[d.index]
	return ok && len(idx.Mappings) > 0
}

func (d *SearchDictionary) ApplyWord(ctx context.Context, word string, action models.Action) bool {
	path := fmt.Sprintf("/%s/_doc/%s", url.PathEscape(d.index), url.PathEscape(strings.ToLower(word)))

	var (
		status int
		err    error
	)
	switch action {
	case models.ActionRemove:
		status, err = d.doRequest(ctx, http.MethodDelete, path, nil, nil)
	default:
		status, err = d.doRequest(ctx, http.MethodPut, path, keywordDocument{Word: word}, nil)
	}
	if err != nil {
		d.logger.Warn("dictionary word update failed",
			zap.String("word", word),
			zap.String("action", string(action)),
			zap.Int("status", status),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (d *SearchDictionary) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
