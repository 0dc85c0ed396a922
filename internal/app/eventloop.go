package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dshills/widgetbus/internal/config"
	"github.com/dshills/widgetbus/internal/entity"
	"github.com/dshills/widgetbus/internal/logging"
	"github.com/dshills/widgetbus/internal/message"
	"github.com/dshills/widgetbus/internal/renderer/backend"
	"github.com/dshills/widgetbus/internal/script"
	"github.com/dshills/widgetbus/internal/shell"
)

// helpLine is drawn on the last screen row.
const helpLine = "tab focus | up/down/+/-/0 counter | ctrl+l redraw | q quit"

// loop is the host loop. It owns the widget tree and the backend drawing.
func (app *Application) loop(ctx context.Context, events <-chan backend.Event) error {
	var changes <-chan config.Event
	if app.watcher != nil {
		changes = app.watcher.Events()
	}

	app.frame(shell.Batch{Redraw: true})
	if err := app.script.OnStart(); err != nil {
		app.scriptError(script.HookStart, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-app.channel.Done():
			return ErrQuit

		case req := <-app.channel.Requests():
			batch := shell.CoalesceWith(req, app.channel.Requests())
			if err := app.handleBatch(ctx, batch); err != nil {
				return err
			}

		case ev := <-events:
			if err := app.handleBackendEvent(ev); err != nil {
				return err
			}

		case ev, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			app.handleFileChange(ev)
		}
	}
}

// handleBatch applies one coalesced batch of shell requests.
// Returns ErrQuit if the batch asks to close.
func (app *Application) handleBatch(ctx context.Context, b shell.Batch) error {
	if !b.Close && (b.Redraw || b.Update) {
		if wait := app.config.Session.FrameInterval.Std() - time.Since(app.lastFrame); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			// requests that arrived while waiting join this frame
			b.Drain(app.channel.Requests())
		}
	}
	app.metrics.RecordBatch(b.Count)

	if b.Close {
		return ErrQuit
	}
	if b.Title != "" {
		app.backend.SetTitle(b.Title)
	}
	if b.Redraw || b.Update {
		app.frame(b)
	}
	return nil
}

// frame runs the message phase, the update phase and, when something
// changed, a repaint.
func (app *Application) frame(b shell.Batch) {
	start := time.Now()

	res := app.dispatcher.Dispatch()
	app.dispatcher.Update()
	if b.Redraw || app.dirty() {
		app.render()
	}

	app.lastFrame = start
	app.metrics.RecordFrame(time.Since(start), res)
	if res.Panicked > 0 {
		app.logger.Warn("%d widget states panicked", res.Panicked)
	}
}

func (app *Application) dirty() bool {
	for _, node := range app.tree.Nodes() {
		if node.Dirty() {
			return true
		}
	}
	return false
}

// render draws one row per widget and the help line.
func (app *Application) render() {
	b := app.backend
	b.Clear()

	_, height := b.Size()
	focus := app.Focus()
	label := backend.Style{Attributes: backend.AttrBold}

	y := 0
	for _, node := range app.tree.Nodes() {
		if y >= height-1 {
			break
		}
		var style backend.Style
		if node.Entity() == focus {
			style.Attributes = backend.AttrReverse
		}
		x := backend.DrawText(b, 0, y, fmt.Sprintf("%-8s", node.Name()), label)
		backend.DrawText(b, x+1, y, node.Text(), style)
		node.ClearDirty()
		y++
	}

	backend.DrawText(b, 0, height-1, helpLine, backend.Style{Attributes: backend.AttrDim})
	b.Show()
}

// handleBackendEvent processes a backend event.
// Returns ErrQuit if the session should exit.
func (app *Application) handleBackendEvent(ev backend.Event) error {
	switch ev.Type {
	case backend.EventKey:
		return app.handleKey(ev)
	case backend.EventResize:
		app.offer(shell.RequestRedraw)
		return nil
	case backend.EventQuit:
		return ErrQuit
	default:
		return nil
	}
}

// handleKey handles session keys and forwards the rest to the focused
// widget and the script.
func (app *Application) handleKey(ev backend.Event) error {
	app.metrics.RecordKey()

	switch {
	case ev.Key == backend.KeyCtrlC, ev.Key == backend.KeyRune && ev.Rune == 'q':
		return ErrQuit
	case ev.Key == backend.KeyTab:
		app.cycleFocus()
		app.offer(shell.RequestRedraw)
		return nil
	case ev.Key == backend.KeyCtrlL:
		app.offer(shell.RequestRedraw)
		return nil
	}

	name := keyName(ev)
	if err := message.Send(app.router, KeyPressed{Key: name}, app.Focus()); err != nil {
		app.logger.Warn("key %s: %v", name, err)
	}
	if err := app.script.OnKey(name); err != nil {
		app.scriptError(script.HookKey, err)
	}
	return nil
}

func keyName(ev backend.Event) string {
	if ev.Key == backend.KeyRune {
		return string(ev.Rune)
	}
	return ev.Key.String()
}

// cycleFocus moves focus to the next widget in display order.
func (app *Application) cycleFocus() {
	nodes := app.tree.Nodes()
	if len(nodes) == 0 {
		return
	}
	current := app.Focus()
	next := nodes[0].Entity()
	for i, node := range nodes {
		if node.Entity() == current {
			next = nodes[(i+1)%len(nodes)].Entity()
			break
		}
	}
	app.focus.Store(uint32(next))
}

// pumpEvents forwards backend events to the host loop until the backend
// shuts down.
func (app *Application) pumpEvents(ctx context.Context, events chan<- backend.Event) error {
	for {
		ev := app.backend.PollEvent()
		switch ev.Type {
		case backend.EventQuit:
			return ErrQuit
		case backend.EventNone:
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

// runClock is a producer on its own goroutine: every tick it sends the time
// to the clock widget and calls the script's on_tick hook.
func (app *Application) runClock(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			return nil

		case now := <-ticker.C:
			n++
			app.metrics.RecordTick()

			if err := Send(app, WidgetClock, now); err != nil {
				if errors.Is(err, message.ErrNotifierClosed) {
					return nil
				}
				app.logger.Warn("clock: %v", err)
			}
			if err := app.script.OnTick(n); err != nil {
				if errors.Is(err, script.ErrClosed) {
					return nil
				}
				app.scriptError(script.HookTick, err)
			}
		}
	}
}

// scriptError logs a failed hook and shows it in the log widget.
func (app *Application) scriptError(hook string, err error) {
	app.metrics.RecordScriptError()
	app.logger.Warn("%s: %v", hook, err)
	if sendErr := Send(app, WidgetLog, "error: "+hook); sendErr != nil {
		app.logger.Debug("log widget: %v", sendErr)
	}
}

// handleFileChange reloads the script or the config file after an edit.
func (app *Application) handleFileChange(ev config.Event) {
	if ev.Op == config.OpRemove {
		return
	}

	switch ev.Path {
	case absPath(app.script.Path()):
		if err := app.script.Reload(); err != nil {
			app.logger.Warn("reload %s: %v", ev.Path, err)
			return
		}
		app.metrics.RecordReload()
		app.logger.Info("reloaded script %s", ev.Path)
		if err := Send(app, WidgetLog, "script reloaded"); err != nil {
			app.logger.Debug("log widget: %v", err)
		}

	case absPath(app.opts.ConfigPath):
		cfg, err := config.Load(app.opts.ConfigPath)
		if err != nil {
			app.logger.Warn("reload %s: %v", ev.Path, err)
			return
		}
		app.applyOverrides(&cfg)

		app.mu.Lock()
		app.config = cfg
		app.mu.Unlock()

		app.metrics.RecordReload()
		app.logger.SetLevel(logging.ParseLevel(cfg.Logging.Level))
		app.logger.Info("reloaded config %s", ev.Path)
		if err := Send(app, WidgetTitle, cfg.Window.Title); err != nil {
			app.logger.Debug("title widget: %v", err)
		}
	}
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// focusName returns the name of the focused widget.
func (app *Application) focusName() string {
	if node, ok := app.tree.Node(app.Focus()); ok {
		return node.Name()
	}
	return entity.Entity(0).String()
}
