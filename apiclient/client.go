// Package apiclient talks to the virtual bus management API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/overbind/overbind/apitypes"
)

// Client provides a high-level interface to the bus API, handling request
// formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// DeviceOptions overrides the USB identity of a created device.
type DeviceOptions struct {
	IdVendor  *uint16
	IdProduct *uint16
}

// NewWithConfig constructs a client for the API server at addr (host:port).
// A nil cfg uses the default timeouts and no password.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// PingCtx returns the version and identity of the bus server.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// BusCreateCtx creates a virtual bus with the given number.
func (c *Client) BusCreateCtx(ctx context.Context, busID uint32) (*apitypes.BusCreateResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/create", fmt.Sprintf("%d", busID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusCreateResponse](raw)
}

// BusRemoveCtx removes a bus and every device on it.
func (c *Client) BusRemoveCtx(ctx context.Context, busID uint32) (*apitypes.BusRemoveResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/remove", fmt.Sprintf("%d", busID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusRemoveResponse](raw)
}

// BusListCtx retrieves the numbers of all active buses.
func (c *Client) BusListCtx(ctx context.Context) (*apitypes.BusListResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusListResponse](raw)
}

// DeviceAddCtx plugs a device of devType (e.g. "xbox360") into the bus.
func (c *Client) DeviceAddCtx(ctx context.Context, busID uint32, devType string, o *DeviceOptions) (*apitypes.Device, error) {
	if o == nil {
		o = &DeviceOptions{}
	}
	req := apitypes.DeviceCreateRequest{
		Type:      &devType,
		IdVendor:  o.IdVendor,
		IdProduct: o.IdProduct,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal device create request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, "bus/{id}/add", string(payload), busParam(busID))
	if err != nil {
		return nil, err
	}
	return parse[apitypes.Device](raw)
}

// DeviceRemoveCtx unplugs device devID from the bus. Open streams to it are closed
// by the server.
func (c *Client) DeviceRemoveCtx(ctx context.Context, busID uint32, devID string) (*apitypes.DeviceRemoveResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/{id}/remove", devID, busParam(busID))
	if err != nil {
		return nil, err
	}
	return parse[apitypes.DeviceRemoveResponse](raw)
}

// DevicesListCtx lists the devices on a bus.
func (c *Client) DevicesListCtx(ctx context.Context, busID uint32) (*apitypes.DevicesListResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/{id}/list", nil, busParam(busID))
	if err != nil {
		return nil, err
	}
	return parse[apitypes.DevicesListResponse](raw)
}

func busParam(busID uint32) map[string]string {
	return map[string]string{"id": fmt.Sprintf("%d", busID)}
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
