package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// Enabled reports whether a webhook endpoint is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.URL != ""
}

// Notify POSTs the failure summary as JSON. Any non-2xx answer is an error.
//
// The request is bounded by w.Timeout (30s when unset) as well as ctx.
func (w *Webhook) Notify(ctx context.Context, notification SweepFailure) error {

	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := http.Client{
		Timeout: timeout,
	}
	if w.Insecure {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if w.Username != "" || w.Password != "" {
		req.SetBasicAuth(w.Username, w.Password)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification via webhook: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to send notification via webhook: %d", resp.StatusCode)
	}

	return nil
}
