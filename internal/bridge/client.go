package bridge

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// requestTimeout bounds plain REST calls to the bridge.
	requestTimeout = 10 * time.Second

	// streamReconnectDelay is the pause before re-attaching a dropped
	// event stream.
	streamReconnectDelay = 5 * time.Second

	// applicationKeyHeader carries the pairing key on v2 requests.
	applicationKeyHeader = "hue-application-key"
)

// Logger is the minimal logging surface the client needs.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

// Client is the HTTPS implementation of API, speaking the bridge's
// CLIP v2 endpoints plus the legacy v1 surface for config and rules.
type Client struct {
	cfg    Config
	http   *http.Client
	stream *http.Client // no client timeout; the SSE body stays open
	logger Logger
}

// NewClient creates a bridge client for the given connection config.
func NewClient(cfg Config) *Client {
	transport := &http.Transport{}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed bridge certificates
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: transport, Timeout: requestTimeout},
		stream: &http.Client{Transport: transport},
		logger: noopLogger{},
	}
}

// SetLogger sets the client's logger. The default discards everything.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// InitSession verifies the bridge is reachable and the application key
// is accepted by fetching the bridge's own v2 resource.
func (c *Client) InitSession(ctx context.Context, cfg Config) error {
	if _, err := c.getV2(ctx, "/clip/v2/resource/bridge"); err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	return nil
}

// FetchConfig returns the bridge attribute bag from the legacy config
// endpoint.
func (c *Client) FetchConfig(ctx context.Context) (map[string]any, error) {
	var attrs map[string]any
	if err := c.getJSON(ctx, c.v1URL("/config"), &attrs); err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	return attrs, nil
}

// FetchRules returns the legacy rule set keyed by rule id.
func (c *Client) FetchRules(ctx context.Context) (map[string]map[string]any, error) {
	var rules map[string]map[string]any
	if err := c.getJSON(ctx, c.v1URL("/rules"), &rules); err != nil {
		return nil, fmt.Errorf("fetch rules: %w", err)
	}
	return rules, nil
}

// FetchAllResources returns the full raw resource list from the v2
// resource endpoint.
func (c *Client) FetchAllResources(ctx context.Context) ([]map[string]any, error) {
	body, err := c.getV2(ctx, "/clip/v2/resource")
	if err != nil {
		return nil, fmt.Errorf("fetch resources: %w", err)
	}

	var envelope struct {
		Errors []map[string]any `json:"errors"`
		Data   []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("fetch resources: decoding response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("fetch resources: bridge returned %d errors", len(envelope.Errors))
	}
	return envelope.Data, nil
}

// Subscribe attaches handler to the bridge's server-sent event stream.
// The initial connection is established synchronously; afterwards a
// goroutine keeps reading, re-attaching on stream errors, until ctx is
// cancelled.
func (c *Client) Subscribe(ctx context.Context, cfg Config, handler EventHandler) error {
	resp, err := c.openStream(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	go func() {
		current := resp
		for {
			c.readStream(ctx, current, handler)

			select {
			case <-ctx.Done():
				return
			case <-time.After(streamReconnectDelay):
			}

			next, err := c.openStream(ctx)
			if err != nil {
				c.logger.Warn("event stream reattach failed", "error", err)
				continue
			}
			c.logger.Debug("event stream reattached")
			current = next
		}
	}()

	return nil
}

// RequestFirmwareUpdate asks the bridge to check for and install
// firmware updates via the legacy config endpoint.
func (c *Client) RequestFirmwareUpdate(ctx context.Context, cfg Config) error {
	payload := []byte(`{"swupdate2":{"checkforupdate":true,"install":true}}`)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.v1URL("/config"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("firmware update: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("firmware update: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("firmware update: reading response: %w", err)
	}

	// Legacy responses are arrays of {"success": ...} / {"error": ...}
	// entries; any error entry fails the whole request.
	var results []struct {
		Error *struct {
			Type        int    `json:"type"`
			Address     string `json:"address"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return fmt.Errorf("firmware update: decoding response: %w", err)
	}

	var entries []UpdateError
	for _, result := range results {
		if result.Error == nil {
			continue
		}
		entries = append(entries, UpdateError{
			Type:        result.Error.Type,
			Address:     result.Error.Address,
			Description: result.Error.Description,
		})
	}
	if len(entries) > 0 {
		return &FirmwareUpdateError{Entries: entries}
	}
	return nil
}

func (c *Client) v1URL(path string) string {
	return fmt.Sprintf("https://%s/api/%s%s", c.cfg.Host, c.cfg.ApplicationKey, path)
}

// getJSON performs a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getV2 performs an authenticated GET against a v2 endpoint and
// returns the raw body.
func (c *Client) getV2(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("https://%s%s", c.cfg.Host, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(applicationKeyHeader, c.cfg.ApplicationKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// openStream opens the server-sent event stream.
func (c *Client) openStream(ctx context.Context) (*http.Response, error) {
	url := fmt.Sprintf("https://%s/eventstream/clip/v2", c.cfg.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(applicationKeyHeader, c.cfg.ApplicationKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

// readStream consumes SSE messages from resp until the stream ends or
// ctx is cancelled, delivering each message's events as one batch.
func (c *Client) readStream(ctx context.Context, resp *http.Response, handler EventHandler) {
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		batch, err := parseEventData([]byte(strings.TrimPrefix(line, "data: ")))
		if err != nil {
			c.logger.Warn("discarding malformed event payload", "error", err)
			continue
		}
		if len(batch) == 0 {
			continue
		}
		if err := handler(batch); err != nil {
			c.logger.Warn("event handler failed", "error", err)
		}
	}
}

// parseEventData converts one SSE data payload into a flat event
// batch. The wire shape is an array of frames, each carrying the
// change type and a list of partial resource payloads.
func parseEventData(data []byte) ([]Event, error) {
	var frames []struct {
		Type string           `json:"type"`
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, err
	}

	var events []Event
	for _, frame := range frames {
		for _, payload := range frame.Data {
			id, _ := payload["id"].(string)
			if id == "" {
				continue
			}
			events = append(events, Event{
				Type: frame.Type,
				ID:   id,
				Data: payload,
			})
		}
	}
	return events, nil
}
