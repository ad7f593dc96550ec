package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/overbind/overbind/internal/emitter"
	"github.com/overbind/overbind/internal/keybind"
	"github.com/overbind/overbind/internal/keyboard"
	"github.com/overbind/overbind/internal/keystate"
	"github.com/overbind/overbind/internal/log"
	"github.com/overbind/overbind/internal/vbus"
)

const releasesURL = "https://github.com/Alia5/VIIPER/releases"

// eventReportTimeout bounds a report write made from inside the OS key hook.
// Windows drops a low-level hook whose callback stalls for too long.
const eventReportTimeout = 150 * time.Millisecond

// ApiConfig locates the VIIPER API server.
type ApiConfig struct {
	Addr     string `help:"VIIPER API server address" default:"localhost:3242" env:"OVERBIND_API_ADDR"`
	Password string `help:"VIIPER API password, empty for servers without authentication" env:"OVERBIND_API_PASSWORD"`
	Bus      uint32 `help:"Bus to plug the controller into, 0 picks or creates one" default:"0" env:"OVERBIND_API_BUS"`
}

type Run struct {
	Bindings          string        `help:"Bindings file with three hex key codes: left, right, up" default:"OverBind_conf.txt" env:"OVERBIND_BINDINGS"`
	Controller        string        `help:"Emulated controller" enum:"x360,ds4" default:"x360" env:"OVERBIND_CONTROLLER"`
	Mode              string        `help:"Keyboard source: event uses the OS key hook, poll samples key state" enum:"event,poll" default:"event" env:"OVERBIND_MODE"`
	PollInterval      time.Duration `help:"Delay between samples in poll mode, 0 samples continuously" default:"1ms" env:"OVERBIND_POLL_INTERVAL"`
	Api               ApiConfig     `embed:"" prefix:"api."`
	ConnectionTimeout time.Duration `help:"Timeout of each bus API operation" default:"5s" env:"OVERBIND_CONNECTION_TIMEOUT"`

	newHook   func(*slog.Logger) (keyboard.Hook, error)
	newPoller func(*slog.Logger) (keyboard.Poller, error)
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, reports log.ReportLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Execute(ctx, logger, reports)
}

// Execute maps keys to the controller until ctx is done or a failure occurs.
func (r *Run) Execute(ctx context.Context, logger *slog.Logger, reports log.ReportLogger) error {
	kind, err := vbus.ParseKind(r.Controller)
	if err != nil {
		return err
	}

	binding, err := keybind.Load(r.Bindings)
	if err != nil {
		if errors.Is(err, keybind.ErrNotFound) {
			return fmt.Errorf("%w (create one with 'overbind bindings init')", err)
		}
		return fmt.Errorf("load bindings %s: %w", r.Bindings, err)
	}
	logger.Info("Loaded key bindings", "file", r.Bindings,
		keybind.LeftStickLeft.String(), fmt.Sprintf("0x%02x", binding.Code(keybind.LeftStickLeft)),
		keybind.LeftStickRight.String(), fmt.Sprintf("0x%02x", binding.Code(keybind.LeftStickRight)),
		keybind.RightStickUp.String(), fmt.Sprintf("0x%02x", binding.Code(keybind.RightStickUp)))

	busCfg := vbus.Config{
		Addr:     r.Api.Addr,
		Password: r.Api.Password,
		BusID:    r.Api.Bus,
		Timeout:  r.ConnectionTimeout,
		Reports:  reports,
	}
	if r.Mode != "poll" {
		busCfg.ReportTimeout = eventReportTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, r.ConnectionTimeout)
	client, err := vbus.Connect(connectCtx, busCfg, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("%w; is the VIIPER server running at %s? Releases: %s", err, r.Api.Addr, releasesURL)
	}

	target := vbus.AllocateTarget(kind)
	if err := client.AddTarget(ctx, target); err != nil {
		r.closeClient(logger, client)
		return err
	}

	em := emitter.New(keystate.New(binding), kind.Profile(), client.Sink(target), emitter.WithLogger(logger))
	defer r.release(logger, client, target, em)

	if err := em.Reset(); err != nil {
		return err
	}

	logger.Info("Mapping keys to virtual controller, press Ctrl+C to quit",
		"controller", kind, "id", target.ID(), "mode", r.Mode)

	if r.Mode == "poll" {
		return r.poll(ctx, logger, em)
	}
	return r.listen(ctx, logger, em)
}

func (r *Run) listen(ctx context.Context, logger *slog.Logger, em *emitter.Emitter) error {
	newHook := r.newHook
	if newHook == nil {
		newHook = keyboard.NewHook
	}
	hook, err := newHook(logger)
	if err != nil {
		return fmt.Errorf("keyboard hook: %w", err)
	}

	hookCtx, stopHook := context.WithCancel(ctx)
	defer stopHook()
	hookDone := make(chan error, 1)
	go func() { hookDone <- hook.Run(hookCtx, em.HandleKey) }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-em.Err():
	case err := <-hookDone:
		if err == nil && ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("stopped unexpectedly")
		}
		return fmt.Errorf("keyboard hook: %w", err)
	}

	stopHook()
	if err := <-hookDone; err != nil {
		logger.Warn("Keyboard hook did not stop cleanly", "error", err)
	}
	return runErr
}

func (r *Run) poll(ctx context.Context, logger *slog.Logger, em *emitter.Emitter) error {
	newPoller := r.newPoller
	if newPoller == nil {
		newPoller = keyboard.NewPoller
	}
	p, err := newPoller(logger)
	if err != nil {
		return fmt.Errorf("keyboard poller: %w", err)
	}
	defer p.Close()
	return em.Poll(ctx, p, r.PollInterval)
}

// release returns the pad to neutral, unplugs and frees it, and removes the
// bus if Connect created it. Failures are logged, not returned.
func (r *Run) release(logger *slog.Logger, client *vbus.Client, target *vbus.Target, em *emitter.Emitter) {
	ctx, cancel := context.WithTimeout(context.Background(), r.ConnectionTimeout)
	defer cancel()

	if err := em.Reset(); err != nil {
		logger.Debug("Could not send neutral report", "error", err)
	}
	if err := client.RemoveTarget(ctx, target); err != nil {
		logger.Warn("Failed to unplug virtual controller", "error", err)
	}
	if err := target.Free(); err != nil {
		logger.Warn("Failed to free virtual controller", "error", err)
	}
	closeClient(ctx, logger, client)
}

func (r *Run) closeClient(logger *slog.Logger, client *vbus.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), r.ConnectionTimeout)
	defer cancel()
	closeClient(ctx, logger, client)
}

func closeClient(ctx context.Context, logger *slog.Logger, client *vbus.Client) {
	if err := client.Close(ctx); err != nil {
		logger.Warn("Failed to remove virtual bus", "error", err)
	}
}
