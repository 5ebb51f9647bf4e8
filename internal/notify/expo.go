package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// MaxBatchSize is the largest number of messages the gateway accepts per request.
const MaxBatchSize = 100

type expoMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
	Sound string         `json:"sound,omitempty"`
}

type expoResponse struct {
	Data []struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Message string `json:"message,omitempty"`
		Details struct {
			Error string `json:"error,omitempty"`
		} `json:"details"`
	} `json:"data"`
}

// ExpoClient sends notifications through an Expo-compatible push gateway.
type ExpoClient struct {
	url         string
	accessToken string
	batchSize   int
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewExpoClient creates a gateway client. batchSize is capped at MaxBatchSize.
func NewExpoClient(url, accessToken string, batchSize int, timeout time.Duration, logger zerolog.Logger) *ExpoClient {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	return &ExpoClient{
		url:         url,
		accessToken: accessToken,
		batchSize:   batchSize,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "expo-push").Logger(),
	}
}

// SendToMany delivers msg to every token in batches. Tokens rejected by the
// gateway and batches that fail in transport are counted as failures.
func (c *ExpoClient) SendToMany(ctx context.Context, tokens []string, msg Message) Result {
	var result Result

	for start := 0; start < len(tokens); start += c.batchSize {
		end := min(start+c.batchSize, len(tokens))
		batch := tokens[start:end]

		ok, err := c.sendBatch(ctx, batch, msg)
		if err != nil {
			c.logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("push batch failed")
			result.FailureCount += len(batch)
			continue
		}

		result.SuccessCount += ok
		result.FailureCount += len(batch) - ok
	}

	return result
}

func (c *ExpoClient) sendBatch(ctx context.Context, tokens []string, msg Message) (int, error) {
	messages := make([]expoMessage, len(tokens))
	for i, token := range tokens {
		messages[i] = expoMessage{
			To:    token,
			Title: msg.Title,
			Body:  msg.Body,
			Data:  msg.Data,
			Sound: "default",
		}
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send push notifications: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed expoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	ok := 0
	for i, ticket := range parsed.Data {
		if i >= len(tokens) {
			break
		}
		if ticket.Status == "ok" {
			ok++
			continue
		}
		c.logger.Debug().
			Str("token", tokens[i]).
			Str("reason", ticket.Details.Error).
			Str("message", ticket.Message).
			Msg("push ticket rejected")
	}

	return ok, nil
}
