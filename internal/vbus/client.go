// Package vbus plugs virtual pads into a VIIPER bus and feeds them reports.
package vbus

import (
	"bufio"
	"context"
	"encoding"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/overbind/overbind/apiclient"
	"github.com/overbind/overbind/device/dualshock4"
	"github.com/overbind/overbind/device/xbox360"
	"github.com/overbind/overbind/internal/axis"
	"github.com/overbind/overbind/internal/log"
)

// maxBusProbe bounds the search for a free bus number.
const maxBusProbe = 100

// Config describes how to reach the bus server.
type Config struct {
	Addr     string
	Password string
	// BusID pins the bus to use. Zero reuses the lowest existing bus or
	// creates one.
	BusID   uint32
	Timeout time.Duration
	// ReportTimeout bounds a single report write. Zero falls back to Timeout.
	ReportTimeout time.Duration
	// Reports receives the wire bytes of every report sent. Optional.
	Reports log.ReportLogger
}

// Client is a connection to the bus server.
type Client struct {
	api          *apiclient.Client
	busID        uint32
	createdBus   bool
	writeTimeout time.Duration
	reports      log.ReportLogger
	logger       *slog.Logger
}

// Connect checks the server is reachable and selects the bus pads are
// plugged into.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tc := &apiclient.Config{
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		Password:     cfg.Password,
	}
	c := &Client{
		api:          apiclient.NewWithConfig(cfg.Addr, tc),
		writeTimeout: cfg.Timeout,
		reports:      cfg.Reports,
		logger:       logger,
	}
	if c.reports == nil {
		c.reports = log.Discard
	}
	if cfg.ReportTimeout > 0 {
		c.writeTimeout = cfg.ReportTimeout
	}

	ping, err := c.api.PingCtx(ctx)
	if err != nil {
		return nil, opError("bus connection", err)
	}
	logger.Debug("Bus server reachable", "addr", cfg.Addr, "server", ping.Server, "version", ping.Version)

	if err := c.selectBus(ctx, cfg.BusID); err != nil {
		return nil, err
	}
	logger.Info("Using virtual bus", "bus", c.busID, "created", c.createdBus)
	return c, nil
}

func (c *Client) selectBus(ctx context.Context, want uint32) error {
	list, err := c.api.BusListCtx(ctx)
	if err != nil {
		return opError("bus list", err)
	}

	if want != 0 {
		if slices.Contains(list.Buses, want) {
			c.busID = want
			c.logOccupants(ctx)
			return nil
		}
		if _, err := c.api.BusCreateCtx(ctx, want); err != nil {
			return opError("bus create", err)
		}
		c.busID, c.createdBus = want, true
		return nil
	}

	if len(list.Buses) > 0 {
		c.busID = slices.Min(list.Buses)
		c.logOccupants(ctx)
		return nil
	}

	var createErr error
	for try := uint32(1); try <= maxBusProbe; try++ {
		r, err := c.api.BusCreateCtx(ctx, try)
		if err == nil {
			c.busID, c.createdBus = r.BusID, true
			return nil
		}
		createErr = err
	}
	return opError("bus create", createErr)
}

// logOccupants reports the devices other clients already plugged into a
// reused bus.
func (c *Client) logOccupants(ctx context.Context) {
	list, err := c.api.DevicesListCtx(ctx, c.busID)
	if err != nil {
		c.logger.Warn("Could not list devices on bus", "bus", c.busID, "error", err)
		return
	}
	for _, d := range list.Devices {
		c.logger.Debug("Device already on bus", "bus", c.busID, "dev", d.DevId, "type", d.Type)
	}
	c.logger.Debug("Reusing virtual bus", "bus", c.busID, "devices", len(list.Devices))
}

// BusID returns the bus pads are plugged into.
func (c *Client) BusID() uint32 { return c.busID }

// AddTarget plugs t into the bus and opens its input stream.
func (c *Client) AddTarget(ctx context.Context, t *Target) error {
	if t.freed {
		return opError("target plugin", ErrFreed)
	}
	if t.Plugged() {
		return opError("target plugin", fmt.Errorf("target %s already plugged", t.ID()))
	}
	stream, dev, err := c.api.AddDeviceAndConnect(ctx, c.busID, t.kind.DeviceType(), nil)
	if err != nil {
		if dev != nil {
			_, _ = c.api.DeviceRemoveCtx(ctx, c.busID, dev.DevId)
		}
		return opError("target plugin", err)
	}
	t.busID, t.devID, t.stream = dev.BusID, dev.DevId, stream
	c.logger.Info("Virtual controller plugged in", "kind", t.kind, "id", t.ID(), "vid", dev.Vid, "pid", dev.Pid)

	c.watchFeedback(ctx, t)
	return nil
}

// UpdateReport sends r to the pad. Any failure means the pad is gone.
func (c *Client) UpdateReport(t *Target, r axis.Report) error {
	if t.freed {
		return opError("report update", ErrFreed)
	}
	if !t.Plugged() {
		return opError("report update", ErrNotPlugged)
	}
	if c.writeTimeout > 0 {
		_ = t.stream.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	data, err := t.kind.Encode(r).MarshalBinary()
	if err != nil {
		return opError("report update", err)
	}
	if _, err := t.stream.Write(data); err != nil {
		return opError("report update", err)
	}
	c.reports.Log(t.ID(), data)
	return nil
}

// TargetSink binds a client to one target.
type TargetSink struct {
	c *Client
	t *Target
}

// Sink returns a report sink for t.
func (c *Client) Sink(t *Target) TargetSink { return TargetSink{c: c, t: t} }

func (s TargetSink) UpdateReport(r axis.Report) error { return s.c.UpdateReport(s.t, r) }

// RemoveTarget closes the pad's stream and unplugs it from the bus.
func (c *Client) RemoveTarget(ctx context.Context, t *Target) error {
	if !t.Plugged() {
		return nil
	}
	id := t.ID()
	_ = t.stream.Close()
	t.stream = nil
	if _, err := c.api.DeviceRemoveCtx(ctx, t.busID, t.devID); err != nil {
		return opError("target remove", err)
	}
	c.logger.Info("Virtual controller unplugged", "id", id)
	return nil
}

// Close removes the bus if Connect created it.
func (c *Client) Close(ctx context.Context) error {
	if !c.createdBus {
		return nil
	}
	c.createdBus = false
	if _, err := c.api.BusRemoveCtx(ctx, c.busID); err != nil {
		return opError("bus remove", err)
	}
	c.logger.Debug("Removed virtual bus", "bus", c.busID)
	return nil
}

// watchFeedback logs rumble and lightbar commands a game sends to the pad.
func (c *Client) watchFeedback(ctx context.Context, t *Target) {
	size := xbox360.RumbleStateSize
	newMsg := func() encoding.BinaryUnmarshaler { return new(xbox360.XRumbleState) }
	if t.kind == DS4 {
		size = dualshock4.OutputStateSize
		newMsg = func() encoding.BinaryUnmarshaler { return new(dualshock4.OutputState) }
	}

	msgs, errs := t.stream.StartReading(ctx, 4, func(r *bufio.Reader) (encoding.BinaryUnmarshaler, error) {
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		msg := newMsg()
		return msg, msg.UnmarshalBinary(buf)
	})
	id := t.ID()
	go func() {
		for msg := range msgs {
			c.logger.Debug("Controller feedback", "id", id, "feedback", fmt.Sprintf("%+v", msg))
		}
		if err := <-errs; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			c.logger.Debug("Feedback reader stopped", "id", id, "error", err)
		}
	}()
}
