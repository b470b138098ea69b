package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// CallbackLog represents a gateway callback entry mirrored into OpenSearch
type CallbackLog struct {
	ReceivedAt     time.Time         `json:"received_at"`
	Provider       string            `json:"provider"`
	OrderNumber    string            `json:"order_number,omitempty"`
	TradeID        string            `json:"trade_id,omitempty"`
	TransactionID  string            `json:"transaction_id,omitempty"`
	Amount         int64             `json:"amount,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	SignatureValid bool              `json:"signature_valid"`
	Status         string            `json:"status,omitempty"`
	Outcome        string            `json:"outcome,omitempty"`
	ClientIP       string            `json:"client_ip,omitempty"`
	RawParams      map[string]string `json:"raw_params,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogCallback mirrors a gateway callback entry into OpenSearch
func (l *Logger) LogCallback(ctx context.Context, entry CallbackLog) error {
	if !l.client.IsEnabled() {
		return nil // Logging disabled
	}

	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now()
	}

	indexName := l.client.GetCallbackIndexName(entry.Provider)

	logJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal callback log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(logJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index callback log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

// SearchCallbacks searches for callback logs based on criteria
func (l *Logger) SearchCallbacks(ctx context.Context, provider string, query map[string]any) ([]CallbackLog, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	indexName := l.client.GetCallbackIndexName(provider)

	searchQuery := map[string]any{
		"query": query,
		"sort": []map[string]any{
			{"received_at": map[string]string{"order": "desc"}},
		},
		"size": 100,
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source CallbackLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	logs := make([]CallbackLog, len(searchResult.Hits.Hits))
	for i, hit := range searchResult.Hits.Hits {
		logs[i] = hit.Source
	}

	return logs, nil
}

// GetCallbacksByOrder retrieves callback logs for a specific order number
func (l *Logger) GetCallbacksByOrder(ctx context.Context, provider, orderNumber string) ([]CallbackLog, error) {
	query := map[string]any{
		"term": map[string]any{
			"order_number": orderNumber,
		},
	}

	return l.SearchCallbacks(ctx, provider, query)
}

// GetRecentRejected retrieves recent callbacks that failed signature verification
func (l *Logger) GetRecentRejected(ctx context.Context, provider string, hours int) ([]CallbackLog, error) {
	query := map[string]any{
		"bool": map[string]any{
			"must": []map[string]any{
				{
					"range": map[string]any{
						"received_at": map[string]any{
							"gte": fmt.Sprintf("now-%dh", hours),
						},
					},
				},
				{
					"term": map[string]any{
						"signature_valid": false,
					},
				},
			},
		},
	}

	return l.SearchCallbacks(ctx, provider, query)
}

// GetProviderStats retrieves callback statistics for a gateway
func (l *Logger) GetProviderStats(ctx context.Context, provider string, hours int) (map[string]any, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	indexName := l.client.GetCallbackIndexName(provider)

	aggQuery := map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"received_at": map[string]any{
					"gte": fmt.Sprintf("now-%dh", hours),
				},
			},
		},
		"aggs": map[string]any{
			"total_callbacks": map[string]any{
				"value_count": map[string]any{
					"field": "provider",
				},
			},
			"outcomes": map[string]any{
				"terms": map[string]any{
					"field": "outcome",
					"size":  10,
				},
			},
			"rejected_count": map[string]any{
				"filter": map[string]any{
					"term": map[string]any{
						"signature_valid": false,
					},
				},
			},
			"total_amount": map[string]any{
				"sum": map[string]any{
					"field": "amount",
				},
			},
		},
		"size": 0, // We only want aggregations
	}

	queryJSON, err := json.Marshal(aggQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aggregation query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("aggregation search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch aggregation error: %s", res.String())
	}

	var result map[string]any
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation results: %w", err)
	}

	return result, nil
}

// SanitizeForLog removes sensitive information from data before logging
func SanitizeForLog(data string) string {
	sensitiveFields := []string{
		"hashKey", "hash_key", "hashIV", "hash_iv", "channelSecret", "channel_secret",
		"apiKey", "api_key", "secretKey", "secret_key", "password", "token",
		"authorization", "x-line-authorization",
	}

	result := data
	for _, field := range sensitiveFields {
		patterns := []string{
			fmt.Sprintf(`"%s"\s*:\s*"[^"]*"`, field),
			fmt.Sprintf(`%s=\w+`, field),
		}

		for _, pattern := range patterns {
			re := regexp.MustCompile(pattern)
			result = re.ReplaceAllString(result, fmt.Sprintf(`"%s":"***REDACTED***"`, field))
		}
	}

	return result
}

// LogSystemEvent logs a system event to OpenSearch
func (l *Logger) LogSystemEvent(ctx context.Context, log any) error {
	if !l.client.IsEnabled() {
		return nil // Logging disabled
	}

	indexName := "paygate-system-logs"

	logJSON, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal system log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(logJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index system log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch system log error: %s", res.String())
	}

	return nil
}
