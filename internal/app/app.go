// Package app wires the widgetbus session together: configuration, the
// message router, the widget tree, the script engine and the terminal
// backend, and runs the host loop that turns routed messages into frames.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/widgetbus/internal/config"
	"github.com/dshills/widgetbus/internal/entity"
	"github.com/dshills/widgetbus/internal/logging"
	"github.com/dshills/widgetbus/internal/message"
	"github.com/dshills/widgetbus/internal/renderer/backend"
	"github.com/dshills/widgetbus/internal/script"
	"github.com/dshills/widgetbus/internal/shell"
	"github.com/dshills/widgetbus/internal/widget"
)

// Application is the session coordinator.
type Application struct {
	mu sync.RWMutex

	opts    Options
	config  config.Config
	logger  *logging.Logger
	logFile io.Closer
	session string

	// Messaging
	channel    *shell.Channel
	router     *message.Router
	tree       *widget.Tree
	dispatcher *widget.Dispatcher

	// Producers and I/O
	backend      backend.Backend
	backendReady atomic.Bool
	script       *script.Engine
	watcher      *config.Watcher

	// Session widgets
	counter *counterState
	log     *logState
	focus   atomic.Uint32

	metrics   *Metrics
	lastFrame time.Time

	// State
	running      atomic.Bool
	shutdown     atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// EnvFile is a .env file loaded before the environment is applied.
	EnvFile string

	// Script overrides the configured script path.
	Script string

	// LogLevel overrides the configured log level.
	LogLevel string

	// Headless runs on a simulated screen.
	Headless bool

	// Debug enables debug logging.
	Debug bool

	// Backend replaces the terminal backend. Used by tests.
	Backend backend.Backend

	// LogOutput replaces the configured log destination. Used by tests.
	LogOutput io.Writer
}

// New creates an Application with the given options.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:    opts,
		session: uuid.NewString(),
		metrics: NewMetrics(),
	}

	if err := app.bootstrap(); err != nil {
		app.closeResources()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Configuration
	if err := config.LoadDotEnv(app.opts.EnvFile); err != nil {
		return NewComponentError(ComponentConfig, "load env file", err)
	}
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		return NewComponentError(ComponentConfig, "load", err)
	}
	app.applyOverrides(&cfg)
	app.config = cfg

	// 2. Logging
	if err := app.initLogger(); err != nil {
		return NewComponentError(ComponentLogging, "open", err)
	}

	// 3. Messaging
	app.channel = shell.NewChannel(cfg.Session.NotifyBuffer)
	app.router = message.NewRouter(message.NotifierFunc(app.wake))
	app.tree = widget.NewTree(entity.NewStore())
	app.dispatcher = widget.NewDispatcher(app.router, app.tree, app.logger)
	app.addWidgets()

	// 4. Backend
	switch {
	case app.opts.Backend != nil:
		app.backend = app.opts.Backend
	case cfg.Session.Headless:
		app.backend = backend.NewSimulation(cfg.Window.Width, cfg.Window.Height)
	default:
		term, err := backend.NewTerminal()
		if err != nil {
			return NewComponentError(ComponentBackend, "create terminal", err)
		}
		app.backend = term
	}

	// 5. Script engine
	app.script = script.New(app.router, app.tree,
		script.WithLogger(app.logger.WithComponent("script")),
		script.WithSession(app.session),
		script.WithCallTimeout(cfg.Script.CallTimeout.Std()),
	)
	if cfg.Script.Path != "" {
		if err := app.script.DoFile(cfg.Script.Path); err != nil {
			return NewComponentError(ComponentScript, "load "+cfg.Script.Path, err)
		}
	}

	// 6. File watcher
	if app.opts.ConfigPath != "" || (cfg.Script.Watch && cfg.Script.Path != "") {
		w, err := config.NewWatcher()
		if err != nil {
			return NewComponentError(ComponentWatcher, "create", err)
		}
		app.watcher = w
		if app.opts.ConfigPath != "" {
			if err := w.Add(app.opts.ConfigPath); err != nil {
				return NewComponentError(ComponentWatcher, "watch config", err)
			}
		}
		if cfg.Script.Watch && cfg.Script.Path != "" {
			if err := w.Add(cfg.Script.Path); err != nil {
				return NewComponentError(ComponentWatcher, "watch script", err)
			}
		}
	}

	app.logger.Info("session %s ready: %d widgets", app.session, app.tree.Len())
	return nil
}

// applyOverrides applies command line options over the loaded config.
func (app *Application) applyOverrides(cfg *config.Config) {
	if app.opts.Script != "" {
		cfg.Script.Path = app.opts.Script
	}
	if app.opts.LogLevel != "" {
		cfg.Logging.Level = app.opts.LogLevel
	}
	if app.opts.Debug {
		cfg.Logging.Level = "debug"
	}
	if app.opts.Headless {
		cfg.Session.Headless = true
	}
}

// initLogger opens the configured log destination. A full-screen session
// without a log file logs nowhere, since stderr is the screen.
func (app *Application) initLogger() error {
	out := app.opts.LogOutput
	switch {
	case out != nil:
	case app.config.Logging.File != "":
		f, err := os.OpenFile(app.config.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		app.logFile = f
		out = f
	case app.config.Session.Headless || app.opts.Backend != nil:
		out = os.Stderr
	default:
		out = io.Discard
	}

	app.logger = logging.New(logging.Config{
		Level:  logging.ParseLevel(app.config.Logging.Level),
		Output: out,
		Prefix: "widgetbus",
	}).WithField("session", shortID(app.session))
	return nil
}

// wake is the router notifier. It never blocks: the host loop is the only
// reader of the channel, and a full queue already guarantees a frame.
func (app *Application) wake(req shell.Request) error {
	if err := app.channel.Sender().Offer(req); err != nil && !errors.Is(err, shell.ErrFull) {
		return err
	}
	return nil
}

// offer posts a request from code running on the host loop.
func (app *Application) offer(req shell.Request) {
	if err := app.channel.Sender().Offer(req); err != nil && !errors.Is(err, shell.ErrFull) {
		app.logger.Debug("dropped %s request: %v", req.Kind, err)
	}
}

// Run starts the session and blocks until it ends. It returns nil when the
// session quits normally or ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	if app.shutdown.Load() {
		return ErrShutdown
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := app.backend.Init(); err != nil {
		return NewComponentError(ComponentBackend, "init", err)
	}
	app.backendReady.Store(true)
	app.backend.SetTitle(app.config.Window.Title)

	events := make(chan backend.Event, 16)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.pumpEvents(ctx, events) })
	g.Go(func() error { return app.runClock(ctx, app.config.Session.TickInterval.Std()) })
	g.Go(func() error {
		<-ctx.Done()
		app.backend.Shutdown()
		return nil
	})
	g.Go(func() error { return app.loop(ctx, events) })

	err := g.Wait()
	if shutErr := app.Shutdown(); shutErr != nil {
		app.logger.Warn("shutdown: %v", shutErr)
	}

	if errors.Is(err, ErrQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown stops the session and releases its resources. It is safe to
// call more than once and from any goroutine; a running Run returns.
func (app *Application) Shutdown() error {
	app.shutdownOnce.Do(func() {
		app.shutdown.Store(true)
		app.shutdownErr = app.closeResources()
		app.logger.Info("session %s stopped", app.session)
	})
	return app.shutdownErr
}

// closeResources releases components in reverse initialization order.
func (app *Application) closeResources() error {
	var errs ErrorList

	if app.channel != nil {
		app.channel.Close()
	}
	if app.watcher != nil {
		errs.Add(app.watcher.Close())
	}
	if app.script != nil {
		errs.Add(app.script.Close())
	}
	if app.backendReady.Load() {
		app.backend.Shutdown()
	}
	if app.logFile != nil {
		errs.Add(app.logFile.Close())
		app.logFile = nil
	}
	return errs.AsError()
}

// IsRunning returns true if Run is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Session returns the session id.
func (app *Application) Session() string {
	return app.session
}

// Config returns the effective configuration.
func (app *Application) Config() config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.config
}

// Router returns the session router. Any goroutine may send on it.
func (app *Application) Router() *message.Router {
	return app.router
}

// Sender returns the shell sender, for requests from outside the host loop.
func (app *Application) Sender() *shell.Sender {
	return app.channel.Sender()
}

// Tree returns the widget tree.
func (app *Application) Tree() *widget.Tree {
	return app.tree
}

// Script returns the script engine.
func (app *Application) Script() *script.Engine {
	return app.script
}

// Logger returns the session logger.
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// Metrics returns a snapshot of host loop metrics.
func (app *Application) Metrics() MetricsSnapshot {
	return app.metrics.Snapshot()
}

// Focus returns the entity that receives KeyPressed messages.
func (app *Application) Focus() entity.Entity {
	return entity.Entity(app.focus.Load())
}

// Send queues payload for the widget called name.
func Send[T any](app *Application, name string, payload T) error {
	e, ok := app.tree.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWidget, name)
	}
	return message.Send(app.router, payload, e)
}
