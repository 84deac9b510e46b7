// Package relay implements the fire-and-forget push notification hook
// invoked after a tokened private message has been forwarded.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier delivers a push notification for a private message. The relay
// never waits on it: a failed push is logged by the caller and dropped.
type Notifier interface {
	Push(ctx context.Context, token, text string) error
}

// httpNotifier posts the notification to an external delivery endpoint.
type httpNotifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPNotifier returns a Notifier posting to the given endpoint, or nil
// when no endpoint is configured (pushes disabled).
func NewHTTPNotifier(endpoint string) Notifier {
	if endpoint == "" {
		return nil
	}
	return &httpNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *httpNotifier) Push(ctx context.Context, token, text string) error {
	body, err := json.Marshal(map[string]string{"token": token, "text": text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push endpoint returned %s", resp.Status)
	}
	return nil
}
