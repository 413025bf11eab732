package govee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"goveeremote/internal/device"
)

// DefaultBaseURL is the production Govee cloud endpoint.
const DefaultBaseURL = "https://openapi.api.govee.com"

const (
	devicesPath = "/router/api/v1/user/devices"
	statePath   = "/router/api/v1/device/state"
	controlPath = "/router/api/v1/device/control"
)

// Client is an HTTP client for the Govee cloud API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the cloud endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new Govee API client using the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetDevices retrieves the device list the API key can reach, converted to
// the driver's model. An empty account returns an empty slice, not an error.
func (c *Client) GetDevices(ctx context.Context) ([]device.Device, error) {
	body, err := c.request(ctx, http.MethodGet, devicesPath, nil)
	if err != nil {
		return nil, err
	}

	var resp deviceListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing device list: %w", err)
	}

	devices := make([]device.Device, 0, len(resp.Data))
	for _, wd := range resp.Data {
		devices = append(devices, wd.toDevice())
	}
	return devices, nil
}

// GetDeviceState fetches the current state of one device. The result maps
// capability instance to reported value.
func (c *Client) GetDeviceState(ctx context.Context, sku, deviceID string) (device.State, error) {
	payload := stateRequest{SKU: sku, Device: deviceID}
	body, err := c.request(ctx, http.MethodGet, statePath, payload)
	if err != nil {
		return nil, err
	}

	var resp deviceStateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing device state: %w", err)
	}

	state := make(device.State, len(resp.Data.Capabilities))
	for _, sc := range resp.Data.Capabilities {
		state[sc.Instance] = sc.State.Value
	}
	return state, nil
}

// Control sends one capability command to a device. The value is wrapped
// per capability type as the control endpoint requires.
func (c *Client) Control(ctx context.Context, sku, deviceID, capType, instance string, value any) error {
	payload := controlRequest{
		RequestID: uuid.New().String(),
		Payload: controlPayload{
			SKU:    sku,
			Device: deviceID,
			Capability: controlCapability{
				Type:     capType,
				Instance: instance,
				Value:    WrapControlValue(capType, value),
			},
		},
	}

	_, err := c.request(ctx, http.MethodPost, controlPath, payload)
	return err
}

// TestConnection verifies the API key by listing devices. Returns the
// device count on success so setup can distinguish an empty account from
// a failed key.
func (c *Client) TestConnection(ctx context.Context) (int, error) {
	devices, err := c.GetDevices(ctx)
	if err != nil {
		return 0, err
	}
	return len(devices), nil
}

// request performs one cloud call and enforces the response envelope:
// HTTP 200 with application code 200 is the only success shape.
func (c *Client) request(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Govee-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Code: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Message != "" {
			apiErr.Message = env.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing response envelope: %w", err)
	}
	if env.Code != http.StatusOK {
		return nil, &APIError{Code: env.Code, Message: env.Message}
	}

	return body, nil
}
