// Package cli provides pipeline wiring helpers shared by the save and
// load commands.
package cli

import (
	"fmt"
	"sync"

	"github.com/mediasink/mediasink/internal/config"
	"github.com/mediasink/mediasink/internal/events"
	httpx "github.com/mediasink/mediasink/internal/http"
	"github.com/mediasink/mediasink/internal/nodes"
	"github.com/mediasink/mediasink/internal/notify"
	"github.com/mediasink/mediasink/internal/progress"
	"github.com/mediasink/mediasink/internal/transfer"
)

// sessionBusBuffer sizes the event bus for one CLI invocation. Large
// enough that a slow terminal never blocks a transfer goroutine.
const sessionBusBuffer = 256

// session bundles everything one save or load invocation needs: the
// loaded config, the event bus, the runner driving the operation, and
// the progress/notification sinks subscribed to the bus.
type session struct {
	cfg      *config.Config
	bus      *events.EventBus
	runner   *nodes.Runner
	notifier *notify.Notifier
	renderer *progress.Renderer

	closeOnce sync.Once
}

// loadConfig reads configuration from --config (or the default path) and
// the environment. This is the standard way commands obtain config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSession loads config, installs the shared HTTP client, and wires
// the event bus, transfer engine, runner, progress renderer and
// notifier together. Callers must Close the session when done so
// buffered events drain before the process exits.
func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := setupHTTPClient(cfg); err != nil {
		return nil, err
	}

	mode, err := progress.ParseMode(progressFlag)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(sessionBusBuffer)
	engine := transfer.NewEngine(bus)
	runner := nodes.NewRunner(bus, engine, GetLogger())

	renderer := progress.NewRenderer(bus, progress.WithMode(mode))
	renderer.Start()

	notifier := notify.NewNotifier(notificationsEnabled(cfg), GetLogger())

	return &session{
		cfg:      cfg,
		bus:      bus,
		runner:   runner,
		notifier: notifier,
		renderer: renderer,
	}, nil
}

// Close drains the renderer and shuts the bus down. Commands call it
// before printing their summary so progress output lands first; the
// deferred call then becomes a no-op.
func (s *session) Close() {
	s.closeOnce.Do(func() {
		s.renderer.Stop()
		s.bus.Close()
	})
}

// setupHTTPClient builds the outbound client from the proxy config and
// installs it as the shared client every provider uses. Prompts for the
// proxy password when the mode requires one and none is configured.
func setupHTTPClient(cfg *config.Config) error {
	if httpx.NeedsProxyPassword(cfg) {
		password, err := promptSecret(fmt.Sprintf("Proxy password for %s@%s: ", cfg.Proxy.User, cfg.Proxy.Host))
		if err != nil {
			return fmt.Errorf("failed to read proxy password: %w", err)
		}
		cfg.Proxy.Password = password
	}

	client, err := httpx.ConfigureHTTPClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	httpx.SetClient(client)
	return nil
}

// notificationsEnabled merges the config default with the --notify and
// --no-notify flags; --no-notify wins.
func notificationsEnabled(cfg *config.Config) bool {
	if notifyOff {
		return false
	}
	return notifyOn || cfg.Notifications.Enabled
}
