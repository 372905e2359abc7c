package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client exposes the table-level operations the datastore offers: filtered
// reads, inserts, and bulk updates. Failures surface as errors; an empty
// result set is not one.
type Client interface {
	Select(ctx context.Context, table string, q Query, dest interface{}) error
	Insert(ctx context.Context, table string, row interface{}) error
	Update(ctx context.Context, table string, filters []Filter, patch interface{}) error
	Ping(ctx context.Context) error
}

type restClient struct {
	baseURL    string
	serviceKey string
	client     *http.Client
	logger     *logrus.Logger
}

// NewClient creates a datastore client for the given project URL and service
// credential.
func NewClient(baseURL, serviceKey string, httpClient *http.Client) Client {
	return NewClientWithLogger(baseURL, serviceKey, httpClient, nil)
}

// NewClientWithLogger creates a datastore client with an explicit logger.
func NewClientWithLogger(baseURL, serviceKey string, httpClient *http.Client, logger *logrus.Logger) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	baseURL = strings.TrimSuffix(baseURL, "/")

	return &restClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client:     httpClient,
		logger:     logger,
	}
}

func (c *restClient) Select(ctx context.Context, table string, q Query, dest interface{}) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, q.Encode())

	c.logger.WithFields(logrus.Fields{
		"table":    table,
		"endpoint": endpoint,
	}).Debug("Datastore select")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("datastore error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *restClient) Insert(ctx context.Context, table string, row interface{}) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)

	jsonData, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("datastore error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}

func (c *restClient) Update(ctx context.Context, table string, filters []Filter, patch interface{}) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, encodeFilters(filters))

	jsonData, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal patch: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"table":    table,
		"endpoint": endpoint,
	}).Debug("Datastore update")

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("datastore error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}

// Ping verifies the REST surface is reachable with the configured credential.
func (c *restClient) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/rest/v1/", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("datastore unreachable: status %d", resp.StatusCode)
	}

	return nil
}

func (c *restClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
}
