// Package backend provides the display backend used by the host loop.
package backend

// EventType identifies the type of backend event.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventResize
	// EventInterrupt carries a value posted with PostEvent.
	EventInterrupt
	// EventQuit is returned by PollEvent once the backend is shut down.
	EventQuit
)

// String returns a human-readable event type name.
func (t EventType) String() string {
	switch t {
	case EventNone:
		return "none"
	case EventKey:
		return "key"
	case EventResize:
		return "resize"
	case EventInterrupt:
		return "interrupt"
	case EventQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Event represents a backend event.
type Event struct {
	Type EventType

	// Key event fields
	Key  Key
	Rune rune
	Mod  ModMask

	// Resize event fields
	Width, Height int

	// Interrupt payload
	Data any
}

// Key represents a keyboard key.
type Key int

// Key constants for special keys.
const (
	KeyNone Key = iota
	KeyRune     // Regular character (use Rune field)
	KeyEscape
	KeyEnter
	KeyTab
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyCtrlC
	KeyCtrlL
)

// String returns the name used for the key in scripts and logs.
func (k Key) String() string {
	switch k {
	case KeyRune:
		return "rune"
	case KeyEscape:
		return "escape"
	case KeyEnter:
		return "enter"
	case KeyTab:
		return "tab"
	case KeyBackspace:
		return "backspace"
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeyCtrlC:
		return "ctrl+c"
	case KeyCtrlL:
		return "ctrl+l"
	default:
		return "none"
	}
}

// ModMask represents modifier key state.
type ModMask int

const (
	ModNone  ModMask = 0
	ModShift ModMask = 1 << iota
	ModCtrl
	ModAlt
)

// Has returns true if the mask contains the given modifier.
func (m ModMask) Has(mod ModMask) bool {
	return m&mod != 0
}

// Attr is a set of text attributes.
type Attr uint8

const (
	AttrNone Attr = 0
	AttrBold Attr = 1 << iota
	AttrDim
	AttrReverse
	AttrUnderline
)

// Style describes how a cell is drawn.
// A zero Color means the terminal default.
type Style struct {
	Foreground Color
	Background Color
	Attributes Attr
}

// Color is a 24-bit RGB color with an explicit default.
type Color struct {
	R, G, B uint8
	Set     bool
}

// RGB returns a set color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, Set: true}
}

// Backend defines the interface for display backends.
type Backend interface {
	// Init initializes the backend for use.
	// Must be called before any other methods.
	Init() error

	// Shutdown releases backend resources and unblocks PollEvent.
	Shutdown()

	// Size returns the current dimensions.
	Size() (width, height int)

	// SetCell sets a single cell. Positions outside the screen are ignored.
	SetCell(x, y int, r rune, style Style)

	// Clear clears the entire screen with the default style.
	Clear()

	// Show flushes pending changes to the display.
	Show()

	// SetTitle sets the window title where the backend supports it.
	SetTitle(title string)

	// PollEvent waits for and returns the next event.
	// It returns an EventQuit event after Shutdown.
	PollEvent() Event

	// PostEvent injects an event into the queue.
	PostEvent(event Event) error
}

// DrawText writes text starting at (x, y), clipped to the screen width.
// It returns the number of cells written.
func DrawText(b Backend, x, y int, text string, style Style) int {
	width, height := b.Size()
	if y < 0 || y >= height {
		return 0
	}
	n := 0
	for _, r := range text {
		if x >= width {
			break
		}
		if x >= 0 {
			b.SetCell(x, y, r, style)
			n++
		}
		x++
	}
	return n
}

// ClearLine fills row y with blanks.
func ClearLine(b Backend, y int) {
	width, _ := b.Size()
	for x := 0; x < width; x++ {
		b.SetCell(x, y, ' ', Style{})
	}
}
