package apiclient

import (
	"bufio"
	"context"
	"encoding"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/overbind/overbind/apitypes"
)

// ErrStreamClosed is returned by writes after Close.
var ErrStreamClosed = errors.New("stream closed")

// DeviceStream is the bidirectional connection to one device: input states go
// out, feedback (rumble, LEDs) comes back.
type DeviceStream struct {
	conn  net.Conn
	BusID uint32
	DevID string

	mu         sync.Mutex
	closed     bool
	readCancel context.CancelFunc
}

// OpenStream connects to an existing device's stream channel.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*DeviceStream, error) {
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "bus/%d/%s\x00", busID, devID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &DeviceStream{conn: conn, BusID: busID, DevID: devID}, nil
}

// AddDeviceAndConnect combines DeviceAddCtx and OpenStream.
func (c *Client) AddDeviceAndConnect(ctx context.Context, busID uint32, devType string, o *DeviceOptions) (*DeviceStream, *apitypes.Device, error) {
	resp, err := c.DeviceAddCtx(ctx, busID, devType, o)
	if err != nil {
		return nil, nil, err
	}
	stream, err := c.OpenStream(ctx, busID, resp.DevId)
	if err != nil {
		return nil, resp, err
	}
	return stream, resp, nil
}

// Write sends raw bytes to the device.
func (s *DeviceStream) Write(data []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrStreamClosed
	}
	return s.conn.Write(data)
}

// StartReading decodes feedback frames in a background goroutine until ctx
// is done, the stream closes or decode fails. decode must consume exactly one
// message from r.
func (s *DeviceStream) StartReading(ctx context.Context, chSize int, decode func(r *bufio.Reader) (encoding.BinaryUnmarshaler, error)) (<-chan encoding.BinaryUnmarshaler, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readCancel != nil {
		panic("StartReading called twice on the same stream")
	}

	msgCh := make(chan encoding.BinaryUnmarshaler, chSize)
	errCh := make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	s.readCancel = cancel

	go func() {
		defer close(msgCh)
		defer close(errCh)
		defer cancel()

		r := bufio.NewReader(s.conn)
		for {
			msg, err := decode(r)
			if err != nil {
				if readCtx.Err() != nil {
					err = readCtx.Err()
				}
				errCh <- err
				return
			}
			select {
			case msgCh <- msg:
			case <-readCtx.Done():
				errCh <- readCtx.Err()
				return
			}
		}
	}()
	return msgCh, errCh
}

// SetWriteDeadline sets the write deadline for the underlying connection.
func (s *DeviceStream) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}

// Close closes the stream and stops background reading. It is safe to call
// more than once.
func (s *DeviceStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.readCancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return s.conn.Close()
}
