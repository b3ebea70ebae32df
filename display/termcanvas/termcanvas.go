// Package termcanvas implements display.Canvas over an ANSI terminal, for
// running the scoreboard without the physical LED matrix hardware the
// Canvas interface otherwise abstracts over. It is grounded on the
// teacher's terminal frame renderer: every publish (SwapOnVSync, or a
// SetPixel on the front canvas) redraws the whole frame synchronously on
// the caller's goroutine, and EnterAltScreen wraps the session in
// alt-screen escape sequences so it never scrolls the caller's real
// terminal history.
package termcanvas

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/term"

	"scoreboard/display"
	"scoreboard/wire"
)

const (
	ansiAltScreenOn  = "\x1b[?1049h\x1b[2J"
	ansiAltScreenOff = "\x1b[?1049l"
	ansiHome         = "\x1b[H"
	ansiReset        = "\x1b[0m"
	glyph            = "██"
)

// Canvas renders a pixel grid as two terminal cells per pixel column,
// colored with 24-bit ANSI escapes when the output is a real terminal, and
// as plain text otherwise (e.g. when logs are redirected to a file).
type Canvas struct {
	w, h int

	mu         sync.Mutex
	pixels     []wire.Color
	brightness int
	pwmBits    int

	out      io.Writer
	colorful bool

	// front marks the canvas actually wired to the terminal, as opposed to
	// an offscreen buffer created by CreateFrameCanvas. Only the front
	// canvas publishes on every SetPixel, the way the teacher's terminal
	// driver publishes every frame it's handed rather than buffering it
	// silently; offscreen buffers stay buffered until SwapOnVSync.
	front bool
}

// New constructs a Canvas of the given pixel dimensions, writing frames to
// out. brightness is the initial brightness percentage (0-100).
func New(out io.Writer, width, height, brightness int) *Canvas {
	colorful := false
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		colorful = term.IsTerminal(int(f.Fd()))
	}
	return &Canvas{
		w: width, h: height,
		pixels:     make([]wire.Color, width*height),
		brightness: brightness,
		pwmBits:    11,
		out:        out,
		colorful:   colorful,
		front:      true,
	}
}

func (c *Canvas) Width() int  { return c.w }
func (c *Canvas) Height() int { return c.h }

func (c *Canvas) Brightness() int { return c.brightness }

func (c *Canvas) PWMBits() int      { return c.pwmBits }
func (c *Canvas) SetPWMBits(b int)  { c.mu.Lock(); c.pwmBits = b; c.mu.Unlock() }

func (c *Canvas) Fill(col wire.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.pixels {
		c.pixels[i] = col
	}
}

func (c *Canvas) SetPixel(x, y int, col wire.Color) {
	c.mu.Lock()
	c.setPixelLocked(x, y, col)
	frame := c.frontFrameLocked()
	c.mu.Unlock()
	if frame != nil {
		c.render(frame)
	}
}

// frontFrameLocked returns a snapshot of the pixel buffer to publish
// immediately, or nil if this canvas is an offscreen buffer that only
// publishes via SwapOnVSync. Callers must hold c.mu.
func (c *Canvas) frontFrameLocked() []wire.Color {
	if !c.front {
		return nil
	}
	return append([]wire.Color(nil), c.pixels...)
}

func (c *Canvas) setPixelLocked(x, y int, col wire.Color) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.pixels[y*c.w+x] = col
}

// DrawText paints a solid fg-colored column for each rune's configured
// width, standing in for the glyph bitmaps a real font loader would
// supply; that loader is outside this module's scope, so this is a
// best-effort rendering rather than a faithful one.
func (c *Canvas) DrawText(x, y int, font wire.SpacedFont, fg wire.Color, text string) int {
	if font.Font == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cursor := x
	for _, r := range text {
		width := font.Font.CharacterWidth(r)
		if r != ' ' {
			for dx := 0; dx < width; dx++ {
				for dy := 0; dy < font.Font.Height(); dy++ {
					c.setPixelLocked(cursor+dx, y-dy, fg)
				}
			}
		}
		cursor += width + font.LetterSpacing
	}
	return cursor - x
}

// SwapOnVSync publishes offscreen (expected to be another *Canvas) as the
// visible frame by rendering it now, then returns it back as the buffer
// free to draw into next.
func (c *Canvas) SwapOnVSync(offscreen display.Canvas) display.Canvas {
	src, ok := offscreen.(*Canvas)
	if !ok {
		return offscreen
	}
	src.mu.Lock()
	frame := append([]wire.Color(nil), src.pixels...)
	src.mu.Unlock()

	c.mu.Lock()
	c.pixels = frame
	c.mu.Unlock()

	c.render(frame)
	return src
}

// CreateFrameCanvas allocates a second buffer of matching dimensions.
func (c *Canvas) CreateFrameCanvas() display.Canvas {
	return &Canvas{w: c.w, h: c.h, pixels: make([]wire.Color, c.w*c.h), brightness: c.brightness, pwmBits: c.pwmBits, out: c.out, colorful: c.colorful}
}

func (c *Canvas) render(frame []wire.Color) {
	var b strings.Builder
	if c.colorful {
		b.WriteString(ansiHome)
	}
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			col := frame[y*c.w+x]
			if c.colorful {
				fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm%s", col.R, col.G, col.B, glyph)
			} else if col.R != 0 || col.G != 0 || col.B != 0 {
				b.WriteString(glyph)
			} else {
				b.WriteString("  ")
			}
		}
		if c.colorful {
			b.WriteString(ansiReset)
		}
		b.WriteByte('\n')
	}
	io.WriteString(c.out, b.String())
}

// EnterAltScreen switches the terminal to its alternate buffer, returning
// a restore function to call on shutdown.
func EnterAltScreen(out io.Writer) func() {
	io.WriteString(out, ansiAltScreenOn)
	return func() { io.WriteString(out, ansiAltScreenOff) }
}
