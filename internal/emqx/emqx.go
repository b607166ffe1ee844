// Package emqx pushes alerts to devices and dashboards through the EMQX
// HTTP publish API.
package emqx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ntentasd/nostradamus-advisor/internal/ingest"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

var ErrMissingCredentials = errors.New("missing EMQX url, api key or api secret")

var _ ingest.Notifier = (*EmqxClient)(nil)

type EmqxClient struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	TopicFmt   string // formatted with the sensor id
	HTTPClient *http.Client
}

func New(url, key, secret, topicFmt string) (*EmqxClient, error) {
	if url == "" || key == "" || secret == "" {
		return nil, ErrMissingCredentials
	}
	if topicFmt == "" {
		topicFmt = "alerts/%s"
	}

	return &EmqxClient{
		BaseURL:   url,
		APIKey:    key,
		APISecret: secret,
		TopicFmt:  topicFmt,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

type publishRequest struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
	QoS     int    `json:"qos"`
	Retain  bool   `json:"retain"`
}

type PublishResponse struct {
	ID string `json:"id"`
}

func (c *EmqxClient) Name() string {
	return "emqx"
}

func (c *EmqxClient) Notify(ctx context.Context, a types.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	_, err = c.Publish(ctx, fmt.Sprintf(c.TopicFmt, a.SensorID), payload)
	return err
}

// Publish sends payload to an MQTT topic with QoS 1.
func (c *EmqxClient) Publish(ctx context.Context, topic string, payload []byte) (*PublishResponse, error) {
	endpoint := fmt.Sprintf("http://%s/api/v5/publish", c.BaseURL)

	body, err := json.Marshal(publishRequest{
		Topic:   topic,
		Payload: string(payload),
		QoS:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode EMQX payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create EMQX request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.APIKey, c.APISecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to contact EMQX: %w", err)
	}
	defer resp.Body.Close()

	// 202 means accepted but no subscriber matched the topic
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("emqx returned %s: %s", resp.Status, string(b))
	}

	var result PublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("invalid emqx response: %w", err)
	}

	return &result, nil
}
