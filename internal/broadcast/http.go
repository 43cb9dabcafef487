package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// HTTPTransport POSTs each event as JSON to every satellite webhook URL.
type HTTPTransport struct {
	Client *http.Client
	URLs   []string
}

// NewHTTPTransport creates a transport for the given webhook URLs.
func NewHTTPTransport(urls []string) *HTTPTransport {
	return &HTTPTransport{Client: http.DefaultClient, URLs: urls}
}

// Send implements Transport. Every URL is attempted; the returned error
// joins the failures of all URLs that did not accept the event.
func (t *HTTPTransport) Send(ctx context.Context, e Event) error {
	body, err := json.Marshal(e.ToWire())
	if err != nil {
		return fmt.Errorf("encode event %d: %w", e.Seq, err)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	var errs []error
	for _, url := range t.URLs {
		if err := post(ctx, client, url, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
		}
	}
	return errors.Join(errs...)
}

func post(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
