package backend

import (
	"errors"
	"strings"
	"sync"
)

// ErrQueueFull is returned by NullBackend.PostEvent when its queue is full.
var ErrQueueFull = errors.New("backend event queue is full")

type nullCell struct {
	r     rune
	style Style
}

// NullBackend is an in-memory backend for tests and headless sessions.
type NullBackend struct {
	mu            sync.Mutex
	width, height int
	cells         [][]nullCell
	title         string
	shows         int
	events        chan Event
	done          chan struct{}
	once          sync.Once
}

// NewNullBackend creates a null backend with the given dimensions.
func NewNullBackend(width, height int) *NullBackend {
	return &NullBackend{
		width:  width,
		height: height,
		events: make(chan Event, 100),
		done:   make(chan struct{}),
	}
}

func (b *NullBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cells = make([][]nullCell, b.height)
	for i := range b.cells {
		b.cells[i] = make([]nullCell, b.width)
	}
	b.clearLocked()
	return nil
}

func (b *NullBackend) Shutdown() {
	b.once.Do(func() { close(b.done) })
}

func (b *NullBackend) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.width, b.height
}

func (b *NullBackend) SetCell(x, y int, r rune, style Style) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if x >= 0 && x < b.width && y >= 0 && y < len(b.cells) {
		b.cells[y][x] = nullCell{r: r, style: style}
	}
}

func (b *NullBackend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearLocked()
}

func (b *NullBackend) clearLocked() {
	for y := range b.cells {
		for x := range b.cells[y] {
			b.cells[y][x] = nullCell{r: ' '}
		}
	}
}

func (b *NullBackend) Show() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.shows++
}

func (b *NullBackend) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.title = title
}

func (b *NullBackend) PollEvent() Event {
	select {
	case ev := <-b.events:
		return ev
	case <-b.done:
		return Event{Type: EventQuit}
	}
}

func (b *NullBackend) PostEvent(event Event) error {
	select {
	case b.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Line returns row y as a string with trailing blanks removed.
func (b *NullBackend) Line(y int) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if y < 0 || y >= len(b.cells) {
		return ""
	}
	var sb strings.Builder
	for _, c := range b.cells[y] {
		sb.WriteRune(c.r)
	}
	return strings.TrimRight(sb.String(), " ")
}

// StyleAt returns the style of the cell at (x, y).
func (b *NullBackend) StyleAt(x, y int) Style {
	b.mu.Lock()
	defer b.mu.Unlock()

	if x >= 0 && x < b.width && y >= 0 && y < len(b.cells) {
		return b.cells[y][x].style
	}
	return Style{}
}

// Title returns the last title set.
func (b *NullBackend) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.title
}

// Shows returns how many times Show was called.
func (b *NullBackend) Shows() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.shows
}
