// Package opensearch wraps the OpenSearch client used by the ASR/OCR
// full-text channels as the native (tier 1) search engine.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Config holds OpenSearch connection configuration
type Config struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
}

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
}

// NewClient creates a new OpenSearch client
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("opensearch URL is required")
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	clientCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Transport: transport,
	}

	if cfg.Username != "" && cfg.Password != "" {
		clientCfg.Username = cfg.Username
		clientCfg.Password = cfg.Password
	}

	client, err := opensearch.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &Client{client: client}, nil
}

// Ping checks if OpenSearch is reachable
func (c *Client) Ping(ctx context.Context) error {
	req := opensearchapi.PingRequest{}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ping returned error: %s", res.Status())
	}
	return nil
}

// SearchHit is a single document returned from a query.
type SearchHit struct {
	ID     string
	Score  float64
	Source json.RawMessage
}

// Search executes a raw query DSL body against index and returns hits
// ordered by OpenSearch's own relevance score, highest first. Callers
// decode Source themselves since ASR and OCR documents have different
// shapes.
func (c *Client) Search(ctx context.Context, index string, body map[string]interface{}, size int) ([]SearchHit, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query body: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("opensearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search returned error: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode opensearch response: %w", err)
	}

	hits := make([]SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		if size > 0 && len(hits) >= size {
			break
		}
		hits = append(hits, SearchHit{ID: h.ID, Score: h.Score, Source: h.Source})
	}
	return hits, nil
}

// GetClient returns the underlying OpenSearch client for callers that need
// lower-level access (e.g. bulk indexing in the out-of-scope ingestion path).
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// Close is a no-op; the client manages connections via its http.Transport.
func (c *Client) Close() error {
	return nil
}
