package expo

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

// DefaultBaseURL is the public push gateway endpoint.
const DefaultBaseURL = "https://exp.host"

// Client sends batched push messages to the gateway.
type Client interface {
	SendMessages(ctx context.Context, messages []PushMessage) ([]PushTicket, error)
}

type pushClient struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewClient creates a push gateway client.
func NewClient(baseURL string, httpClient *http.Client) Client {
	return NewClientWithLogger(baseURL, httpClient, nil)
}

// NewClientWithLogger creates a push gateway client with an explicit logger.
func NewClientWithLogger(baseURL string, httpClient *http.Client, logger *logrus.Logger) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &pushClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
		logger:  logger,
	}
}

// SendMessages submits one message array in a single gateway call and returns
// the positionally aligned tickets. A non-success HTTP status or a malformed
// body is total failure of the call; no tickets are returned.
func (c *pushClient) SendMessages(ctx context.Context, messages []PushMessage) ([]PushTicket, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	jsonData, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}

	endpoint := fmt.Sprintf("%s/--/api/v2/push/send", c.baseURL)

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"count":    len(messages),
	}).Debug("Sending push messages")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("push gateway error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var result SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Data) != len(messages) {
		return nil, fmt.Errorf("push gateway returned %d tickets for %d messages", len(result.Data), len(messages))
	}

	return result.Data, nil
}
