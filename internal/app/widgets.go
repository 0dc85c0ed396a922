package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/dshills/widgetbus/internal/message"
	"github.com/dshills/widgetbus/internal/shell"
	"github.com/dshills/widgetbus/internal/widget"
)

// Names of the session widgets. Scripts address them with bus.send.
const (
	WidgetTitle   = "title"
	WidgetCounter = "counter"
	WidgetClock   = "clock"
	WidgetLog     = "log"
	WidgetStatus  = "status"
)

// KeyPressed is sent to the focused widget for keys the session does not
// handle itself.
type KeyPressed struct {
	// Key is the key name, or the character for printable keys.
	Key string
}

// logLines is how many script log lines the log widget keeps.
const logLines = 8

// titleState shows a string and asks the host to use it as window title.
type titleState struct {
	notify func(shell.Request)
}

func (s titleState) Message(messages *message.Reader, ctx *widget.Context) {
	for title := range message.Read[string](messages).All() {
		ctx.Node().SetText(title)
		s.notify(shell.ChangeTitle(title))
	}
}

// counterState sums int64 messages; up/down and +/- keys step it.
type counterState struct {
	value int64
}

func (s *counterState) Message(messages *message.Reader, ctx *widget.Context) {
	for n := range message.Read[int64](messages).All() {
		s.value += n
	}
	for key := range message.Read[KeyPressed](messages).All() {
		switch key.Key {
		case "up", "+":
			s.value++
		case "down", "-":
			s.value--
		case "0":
			s.value = 0
		}
	}
	ctx.Node().SetText(fmt.Sprintf("%d", s.value))
}

// Value returns the current count.
func (s *counterState) Value() int64 {
	return s.value
}

// clockState shows the most recent time.Time it received.
type clockState struct{}

func (clockState) Message(messages *message.Reader, ctx *widget.Context) {
	var last time.Time
	for t := range message.Read[time.Time](messages).All() {
		last = t
	}
	if !last.IsZero() {
		ctx.Node().SetText(last.Format("15:04:05"))
	}
}

// logState keeps the last lines sent by scripts. Strings, numbers,
// booleans and tables are accepted.
type logState struct {
	lines []string
}

func (s *logState) Message(messages *message.Reader, ctx *widget.Context) {
	for line := range message.Read[string](messages).All() {
		s.add(line)
	}
	for v := range message.Read[int64](messages).All() {
		s.add(fmt.Sprint(v))
	}
	for v := range message.Read[float64](messages).All() {
		s.add(fmt.Sprint(v))
	}
	for v := range message.Read[bool](messages).All() {
		s.add(fmt.Sprint(v))
	}
	for v := range message.Read[[]any](messages).All() {
		s.add(fmt.Sprint(v))
	}
	for v := range message.Read[map[string]any](messages).All() {
		s.add(fmt.Sprint(v))
	}
	for key := range message.Read[KeyPressed](messages).All() {
		s.add("key " + key.Key)
	}

	if len(s.lines) > 0 {
		ctx.Node().SetText(s.lines[len(s.lines)-1])
	}
}

func (s *logState) add(line string) {
	s.lines = append(s.lines, line)
	if len(s.lines) > logLines {
		s.lines = s.lines[len(s.lines)-logLines:]
	}
}

// Lines returns the kept lines, oldest first.
func (s *logState) Lines() []string {
	return append([]string(nil), s.lines...)
}

// statusState summarizes the session once per frame.
type statusState struct {
	app *Application
}

func (statusState) Message(*message.Reader, *widget.Context) {}

func (s statusState) Update(ctx *widget.Context) {
	snap := s.app.metrics.Snapshot()
	ctx.Node().SetText(strings.Join([]string{
		"session " + shortID(s.app.session),
		fmt.Sprintf("frames %d", snap.Frames),
		fmt.Sprintf("delivered %d", snap.Delivered),
		fmt.Sprintf("pending %d", s.app.router.Len()),
		"focus " + s.app.focusName(),
	}, " | "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// addWidgets creates the session widgets in display order.
func (app *Application) addWidgets() {
	app.tree.Add(WidgetTitle, titleState{notify: app.offer}).SetText(app.config.Window.Title)
	app.counter = &counterState{}
	app.tree.Add(WidgetCounter, app.counter).SetText("0")
	app.tree.Add(WidgetClock, clockState{})
	app.log = &logState{}
	app.tree.Add(WidgetLog, app.log)
	app.tree.Add(WidgetStatus, statusState{app: app})

	if e, ok := app.tree.Lookup(WidgetCounter); ok {
		app.focus.Store(uint32(e))
	}
}
