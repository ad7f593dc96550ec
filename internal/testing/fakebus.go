// Package testing provides an in-process stand-in for the virtual bus API
// server so clients can be exercised end to end without a driver.
package testing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/overbind/overbind/apitypes"
	"github.com/overbind/overbind/device/dualshock4"
	"github.com/overbind/overbind/device/xbox360"
	"github.com/overbind/overbind/internal/auth"
)

var frameSizes = map[string]int{
	xbox360.DeviceType:    xbox360.InputStateSize,
	dualshock4.DeviceType: dualshock4.InputStateSize,
}

type fakeDevice struct {
	apitypes.Device
	frames [][]byte
	stream net.Conn
}

// FakeBus speaks the bus API framing: `<path>[ payload]\x00` requests answered
// with one JSON line, and `bus/{bus}/{dev}\x00` device streams.
type FakeBus struct {
	Addr     string
	password string

	ln        net.Listener
	wg        sync.WaitGroup
	stalled   atomic.Bool
	unstall   chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	buses    map[uint32]map[string]*fakeDevice
	nextDev  map[uint32]int
	failures map[string]apitypes.ApiError
	requests []string
	changed  chan struct{}
}

// Option configures a FakeBus.
type Option func(*FakeBus)

// WithPassword requires the auth handshake on every connection.
func WithPassword(pw string) Option { return func(f *FakeBus) { f.password = pw } }

// WithBus pre-creates a bus.
func WithBus(id uint32) Option {
	return func(f *FakeBus) { f.buses[id] = map[string]*fakeDevice{} }
}

// StartFakeBus listens on a free loopback port until the test ends.
func StartFakeBus(t *testing.T, opts ...Option) *FakeBus {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	f := &FakeBus{
		Addr:     ln.Addr().String(),
		ln:       ln,
		buses:    map[uint32]map[string]*fakeDevice{},
		nextDev:  map[uint32]int{},
		failures: map[string]apitypes.ApiError{},
		changed:  make(chan struct{}, 1),
		unstall:  make(chan struct{}),
	}
	for _, o := range opts {
		o(f)
	}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(f.Close)
	return f
}

// Close stops accepting and drops every open stream.
func (f *FakeBus) Close() {
	_ = f.ln.Close()
	f.closeOnce.Do(func() { close(f.unstall) })
	f.DropStreams()
	f.wg.Wait()
}

// StallStreams makes every device stream stop reading, as a hung server
// would. Writes from the client back up until its socket buffers are full.
func (f *FakeBus) StallStreams() { f.stalled.Store(true) }

// Fail makes every request to route (e.g. "bus/{id}/add") answer with problem.
func (f *FakeBus) Fail(route string, problem apitypes.ApiError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = problem
}

// Requests returns the routes served so far, in order.
func (f *FakeBus) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Buses returns the ids of existing buses in ascending order.
func (f *FakeBus) Buses() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busIDs()
}

// Devices returns the devices plugged into bus.
func (f *FakeBus) Devices(bus uint32) []apitypes.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apitypes.Device
	for _, d := range f.buses[bus] {
		out = append(out, d.Device)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DevId < out[j].DevId })
	return out
}

// Frames returns the input frames received for a device.
func (f *FakeBus) Frames(bus uint32, dev string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.buses[bus][dev]
	if d == nil {
		return nil
	}
	return append([][]byte(nil), d.frames...)
}

// WaitFrames blocks until at least n frames arrived for the device.
func (f *FakeBus) WaitFrames(t *testing.T, bus uint32, dev string, n int) [][]byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if got := f.Frames(bus, dev); len(got) >= n {
			return got
		}
		select {
		case <-f.changed:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %d frames on %d-%s, got %d", n, bus, dev, len(f.Frames(bus, dev)))
			return nil
		}
	}
}

// SendFeedback writes raw bytes down an open device stream.
func (f *FakeBus) SendFeedback(bus uint32, dev string, data []byte) error {
	f.mu.Lock()
	d := f.buses[bus][dev]
	var conn net.Conn
	if d != nil {
		conn = d.stream
	}
	f.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no stream for %d-%s", bus, dev)
	}
	_, err := conn.Write(data)
	return err
}

// DropStreams closes every device stream, as if the devices were unplugged
// behind the client's back.
func (f *FakeBus) DropStreams() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, devs := range f.buses {
		for _, d := range devs {
			if d.stream != nil {
				_ = d.stream.Close()
				d.stream = nil
			}
		}
	}
}

func (f *FakeBus) busIDs() []uint32 {
	ids := make([]uint32, 0, len(f.buses))
	for id := range f.buses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *FakeBus) notify() {
	select {
	case f.changed <- struct{}{}:
	default:
	}
}

func (f *FakeBus) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.handleConn(conn)
		}()
	}
}

func (f *FakeBus) handleConn(conn net.Conn) {
	r := bufio.NewReader(conn)
	if f.password != "" {
		key, err := auth.DeriveKey(f.password)
		if err != nil {
			conn.Close()
			return
		}
		cn, sn, err := auth.ServerHandshake(r, conn, key)
		if err != nil {
			conn.Close()
			return
		}
		wrapped, err := auth.WrapConn(conn, auth.DeriveSessionKey(key, sn, cn))
		if err != nil {
			conn.Close()
			return
		}
		conn = wrapped
		r = bufio.NewReader(conn)
	}

	line, err := r.ReadString('\x00')
	if err != nil {
		conn.Close()
		return
	}
	line = strings.TrimSuffix(line, "\x00")
	path, payload, _ := strings.Cut(line, " ")

	parts := strings.Split(path, "/")
	if len(parts) == 3 && parts[0] == "bus" && parts[2] != "add" && parts[2] != "remove" && parts[2] != "list" {
		f.handleStream(conn, r, parts[1], parts[2])
		return
	}
	defer conn.Close()

	resp := f.dispatch(path, payload)
	data, _ := json.Marshal(resp)
	_, _ = conn.Write(append(data, '\n'))
}

func (f *FakeBus) dispatch(path, payload string) any {
	route := path
	parts := strings.Split(path, "/")
	var bus uint32
	if len(parts) == 3 && parts[0] == "bus" {
		route = "bus/{id}/" + parts[2]
		n, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return apitypes.ApiError{Status: 400, Title: "Bad Request", Detail: "invalid bus id"}
		}
		bus = uint32(n)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, route)
	if problem, ok := f.failures[route]; ok {
		return problem
	}

	switch route {
	case "ping":
		return apitypes.PingResponse{Server: "fakebus", Version: "test"}
	case "bus/list":
		return apitypes.BusListResponse{Buses: f.busIDs()}
	case "bus/create":
		n, err := strconv.ParseUint(strings.TrimSpace(payload), 10, 32)
		if err != nil || n == 0 {
			return apitypes.ApiError{Status: 400, Title: "Bad Request", Detail: "invalid busId"}
		}
		if _, ok := f.buses[uint32(n)]; ok {
			return apitypes.ApiError{Status: 409, Title: "Conflict", Detail: "bus exists"}
		}
		f.buses[uint32(n)] = map[string]*fakeDevice{}
		return apitypes.BusCreateResponse{BusID: uint32(n)}
	case "bus/remove":
		n, _ := strconv.ParseUint(strings.TrimSpace(payload), 10, 32)
		devs, ok := f.buses[uint32(n)]
		if !ok {
			return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: "bus not found"}
		}
		for _, d := range devs {
			if d.stream != nil {
				_ = d.stream.Close()
			}
		}
		delete(f.buses, uint32(n))
		return apitypes.BusRemoveResponse{BusID: uint32(n)}
	case "bus/{id}/add":
		devs, ok := f.buses[bus]
		if !ok {
			return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: "bus not found"}
		}
		var req apitypes.DeviceCreateRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Type == nil {
			return apitypes.ApiError{Status: 400, Title: "Bad Request", Detail: "invalid request"}
		}
		if _, ok := frameSizes[*req.Type]; !ok {
			return apitypes.ApiError{Status: 400, Title: "Bad Request", Detail: "unknown device type"}
		}
		f.nextDev[bus]++
		d := &fakeDevice{Device: apitypes.Device{BusID: bus, DevId: strconv.Itoa(f.nextDev[bus]), Type: *req.Type}}
		devs[d.DevId] = d
		return d.Device
	case "bus/{id}/remove":
		d, ok := f.buses[bus][strings.TrimSpace(payload)]
		if !ok {
			return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: "device not found"}
		}
		if d.stream != nil {
			_ = d.stream.Close()
		}
		delete(f.buses[bus], d.DevId)
		return apitypes.DeviceRemoveResponse{BusID: bus, DevId: d.DevId}
	case "bus/{id}/list":
		out := apitypes.DevicesListResponse{Devices: []apitypes.Device{}}
		for _, d := range f.buses[bus] {
			out.Devices = append(out.Devices, d.Device)
		}
		return out
	default:
		return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: "unknown path " + path}
	}
}

func (f *FakeBus) handleStream(conn net.Conn, r *bufio.Reader, busStr, dev string) {
	defer conn.Close()
	n, err := strconv.ParseUint(busStr, 10, 32)
	if err != nil {
		return
	}
	bus := uint32(n)

	f.mu.Lock()
	d := f.buses[bus][dev]
	if d == nil {
		f.mu.Unlock()
		return
	}
	d.stream = conn
	size := frameSizes[d.Type]
	f.mu.Unlock()
	f.notify()

	for {
		if f.stalled.Load() {
			if tc, ok := conn.(*net.TCPConn); ok {
				_ = tc.SetReadBuffer(1024)
			}
			<-f.unstall
			return
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		f.mu.Lock()
		if cur := f.buses[bus][dev]; cur != nil {
			cur.frames = append(cur.frames, buf)
		}
		f.mu.Unlock()
		f.notify()
	}
}

// WaitStream blocks until the device has an open stream.
func (f *FakeBus) WaitStream(t *testing.T, bus uint32, dev string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		f.mu.Lock()
		d := f.buses[bus][dev]
		open := d != nil && d.stream != nil
		f.mu.Unlock()
		if open {
			return
		}
		select {
		case <-f.changed:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for stream %d-%s", bus, dev)
			return
		}
	}
}
