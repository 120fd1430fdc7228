package bark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultServerURL = "https://api.day.app"

// Service sends iOS push notifications via the Bark API.
type Service struct {
	key        string
	serverURL  string
	httpClient *http.Client
}

// New creates a Bark client for the given device key.
func New(serverURL, key string) *Service {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Service{
		key:        strings.TrimSpace(key),
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type pushPayload struct {
	DeviceKey string `json:"device_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Group     string `json:"group,omitempty"`
}

// Push sends a Bark notification. group is shown as the notification group.
func (s *Service) Push(ctx context.Context, title, body, group string) error {
	if s.key == "" {
		return fmt.Errorf("bark key not configured")
	}

	b, err := json.Marshal(pushPayload{
		DeviceKey: s.key,
		Title:     title,
		Body:      body,
		Group:     group,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/push", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("bark push: unexpected status %d", resp.StatusCode)
	}
	return nil
}
