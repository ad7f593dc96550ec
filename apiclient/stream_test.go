package apiclient_test

import (
	"bufio"
	"context"
	"encoding"
	"io"
	"testing"
	"time"

	"github.com/overbind/overbind/apiclient"
	"github.com/overbind/overbind/apitypes"
	"github.com/overbind/overbind/device/xbox360"
	th "github.com/overbind/overbind/internal/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRumble(r *bufio.Reader) (encoding.BinaryUnmarshaler, error) {
	var b [xbox360.RumbleStateSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	msg := new(xbox360.XRumbleState)
	return msg, msg.UnmarshalBinary(b[:])
}

func TestStreamRoundTrip(t *testing.T) {
	for _, pw := range []string{"", "hunter2"} {
		name := "plain"
		if pw != "" {
			name = "authenticated"
		}
		t.Run(name, func(t *testing.T) {
			var opts []th.Option
			var cfg *apiclient.Config
			if pw != "" {
				opts = append(opts, th.WithPassword(pw))
				cfg = &apiclient.Config{DialTimeout: time.Second, ReadTimeout: time.Second, WriteTimeout: time.Second, Password: pw}
			}
			bus := th.StartFakeBus(t, append(opts, th.WithBus(1))...)
			c := apiclient.NewWithConfig(bus.Addr, cfg)
			ctx := context.Background()

			stream, dev, err := c.AddDeviceAndConnect(ctx, 1, xbox360.DeviceType, nil)
			require.NoError(t, err)
			defer stream.Close()
			assert.Equal(t, "1", dev.DevId)
			bus.WaitStream(t, 1, dev.DevId)

			frame, err := (&xbox360.InputState{LX: -29000}).MarshalBinary()
			require.NoError(t, err)
			_, err = stream.Write(frame)
			require.NoError(t, err)
			frames := bus.WaitFrames(t, 1, dev.DevId, 1)
			var got xbox360.InputState
			require.NoError(t, got.UnmarshalBinary(frames[0]))
			assert.Equal(t, int16(-29000), got.LX)

			msgs, errs := stream.StartReading(ctx, 1, decodeRumble)
			require.NoError(t, bus.SendFeedback(1, dev.DevId, []byte{0x10, 0x20}))
			select {
			case m := <-msgs:
				assert.Equal(t, &xbox360.XRumbleState{LeftMotor: 0x10, RightMotor: 0x20}, m)
			case err := <-errs:
				t.Fatalf("read error: %v", err)
			case <-time.After(2 * time.Second):
				t.Fatal("no rumble received")
			}

			require.NoError(t, stream.Close())
			require.NoError(t, stream.Close())
			_, err = stream.Write([]byte{0})
			assert.ErrorIs(t, err, apiclient.ErrStreamClosed)
		})
	}
}

func TestWrongPassword(t *testing.T) {
	bus := th.StartFakeBus(t, th.WithPassword("right"))
	c := apiclient.NewWithConfig(bus.Addr, &apiclient.Config{DialTimeout: time.Second, ReadTimeout: time.Second, WriteTimeout: time.Second, Password: "wrong"})

	_, err := c.PingCtx(context.Background())
	var apiErr apitypes.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
}
