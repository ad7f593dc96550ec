package apiclient_test

import (
	"context"
	"testing"
	"time"

	"github.com/overbind/overbind/apiclient"
	"github.com/overbind/overbind/apitypes"
	"github.com/overbind/overbind/device/xbox360"
	th "github.com/overbind/overbind/internal/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *apiclient.Config {
	return &apiclient.Config{DialTimeout: time.Second, ReadTimeout: time.Second, WriteTimeout: time.Second}
}

func TestHighLevelClient(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(bus *th.FakeBus)
		call       func(ctx context.Context, c *apiclient.Client) (any, error)
		wantErr    string
		assertFunc func(t *testing.T, got any)
	}{
		{
			name: "ping",
			call: func(ctx context.Context, c *apiclient.Client) (any, error) { return c.PingCtx(ctx) },
			assertFunc: func(t *testing.T, got any) {
				assert.Equal(t, "fakebus", got.(*apitypes.PingResponse).Server)
			},
		},
		{
			name: "bus create success",
			call: func(ctx context.Context, c *apiclient.Client) (any, error) { return c.BusCreateCtx(ctx, 42) },
			assertFunc: func(t *testing.T, got any) {
				assert.Equal(t, uint32(42), got.(*apitypes.BusCreateResponse).BusID)
			},
		},
		{
			name:    "bus create error structured",
			call:    func(ctx context.Context, c *apiclient.Client) (any, error) { return c.BusCreateCtx(ctx, 0) },
			wantErr: "400 Bad Request: invalid busId",
		},
		{
			name:  "bus list",
			setup: func(bus *th.FakeBus) { _, _ = apiclient.NewWithConfig(bus.Addr, testConfig()).BusCreateCtx(context.Background(), 3) },
			call:  func(ctx context.Context, c *apiclient.Client) (any, error) { return c.BusListCtx(ctx) },
			assertFunc: func(t *testing.T, got any) {
				assert.Equal(t, []uint32{1, 3}, got.(*apitypes.BusListResponse).Buses)
			},
		},
		{
			name: "device add",
			call: func(ctx context.Context, c *apiclient.Client) (any, error) {
				return c.DeviceAddCtx(ctx, 1, xbox360.DeviceType, nil)
			},
			assertFunc: func(t *testing.T, got any) {
				d := got.(*apitypes.Device)
				assert.Equal(t, "1", d.DevId)
				assert.Equal(t, xbox360.DeviceType, d.Type)
			},
		},
		{
			name: "devices list",
			setup: func(bus *th.FakeBus) {
				_, _ = apiclient.NewWithConfig(bus.Addr, testConfig()).DeviceAddCtx(context.Background(), 1, xbox360.DeviceType, nil)
			},
			call: func(ctx context.Context, c *apiclient.Client) (any, error) { return c.DevicesListCtx(ctx, 1) },
			assertFunc: func(t *testing.T, got any) {
				assert.Len(t, got.(*apitypes.DevicesListResponse).Devices, 1)
			},
		},
		{
			name: "device remove unknown",
			call: func(ctx context.Context, c *apiclient.Client) (any, error) {
				return c.DeviceRemoveCtx(ctx, 1, "9")
			},
			wantErr: "404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := th.StartFakeBus(t, th.WithBus(1))
			if tt.setup != nil {
				tt.setup(bus)
			}
			c := apiclient.NewWithConfig(bus.Addr, testConfig())
			got, err := tt.call(context.Background(), c)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.assertFunc != nil {
				tt.assertFunc(t, got)
			}
		})
	}
}

func TestProblemIsTyped(t *testing.T) {
	bus := th.StartFakeBus(t)
	c := apiclient.NewWithConfig(bus.Addr, testConfig())
	_, err := c.DeviceAddCtx(context.Background(), 9, xbox360.DeviceType, nil)
	var apiErr *apitypes.ApiError
	if assert.ErrorAs(t, err, &apiErr) {
		assert.Equal(t, 404, apiErr.Status)
	}
}

func TestTransportFailure(t *testing.T) {
	bus := th.StartFakeBus(t)
	addr := bus.Addr
	bus.Close()

	_, err := apiclient.NewWithConfig(addr, testConfig()).BusListCtx(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

func TestContextCancellation(t *testing.T) {
	c := apiclient.NewWithConfig("127.0.0.1:9", nil) // address irrelevant due to early cancel
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.BusListCtx(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
