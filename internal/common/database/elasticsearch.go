// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"docverify/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the Elasticsearch client
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// NewElasticsearch creates a new Elasticsearch client
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	esCfg := elasticsearch.Config{
		Addresses: addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es}, nil
}

// Ping tests the Elasticsearch connection
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// EnsureIndex creates index with the given mapping unless it already exists.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context, index, mapping string) (bool, error) {
	exists, err := c.Client.Indices.Exists([]string{index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return false, nil
	}
	if exists.StatusCode != http.StatusNotFound {
		return false, fmt.Errorf("check index %s: %s", index, exists.Status())
	}

	res, err := c.Client.Indices.Create(index,
		c.Client.Indices.Create.WithBody(strings.NewReader(mapping)),
		c.Client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// Another worker manager may have won the race.
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %s: %s", index, res.Status(), body)
	}
	return true, nil
}
