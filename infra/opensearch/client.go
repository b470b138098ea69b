package opensearch

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/ordermesh/paygate/infra/config"
)

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
	config *config.AppConfig
}

// NewClient creates a new OpenSearch client
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses:     []string{cfg.OpenSearchURL},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.OpenSearchUsername != "" && cfg.OpenSearchPassword != "" {
		opensearchConfig.Username = cfg.OpenSearchUsername
		opensearchConfig.Password = cfg.OpenSearchPassword
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, err
	}

	osClient := &Client{
		client: client,
		config: cfg,
	}

	if err := osClient.setupIndices(); err != nil {
		log.Printf("Warning: Failed to setup OpenSearch indices: %v", err)
	}

	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// setupIndices creates the callback indices for the supported gateways
func (c *Client) setupIndices() error {
	providers := []string{"ecpay", "linepay"}

	for _, provider := range providers {
		indexName := c.GetCallbackIndexName(provider)

		exists, err := c.indexExists(indexName)
		if err != nil {
			log.Printf("Error checking index %s: %v", indexName, err)
			continue
		}

		if !exists {
			if err := c.createCallbackIndex(indexName); err != nil {
				log.Printf("Error creating index %s: %v", indexName, err)
				continue
			}
			log.Printf("Created OpenSearch index: %s", indexName)
		}
	}

	return nil
}

// indexExists checks if an index exists
func (c *Client) indexExists(indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(nil, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == 200, nil
}

// createCallbackIndex creates a new index for callback logs with proper mapping
func (c *Client) createCallbackIndex(indexName string) error {
	mapping := `{
		"mappings": {
			"properties": {
				"received_at": {
					"type": "date",
					"format": "strict_date_optional_time||epoch_millis"
				},
				"provider": {
					"type": "keyword"
				},
				"order_number": {
					"type": "keyword"
				},
				"trade_id": {
					"type": "keyword"
				},
				"transaction_id": {
					"type": "keyword"
				},
				"amount": {
					"type": "long"
				},
				"currency": {
					"type": "keyword"
				},
				"signature_valid": {
					"type": "boolean"
				},
				"status": {
					"type": "keyword"
				},
				"outcome": {
					"type": "keyword"
				},
				"client_ip": {
					"type": "ip"
				},
				"raw_params": {
					"type": "object",
					"enabled": false
				},
				"error": {
					"type": "text"
				}
			}
		},
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 0
		}
	}`

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(nil, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}

	return nil
}

// GetCallbackIndexName returns the index name for a gateway's callback logs
func (c *Client) GetCallbackIndexName(provider string) string {
	return "paygate-" + provider + "-callbacks"
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c.config.EnableOpenSearch
}
