package display

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/wire"
)

type fakeFont struct{}

func (fakeFont) ID() string              { return "fake" }
func (fakeFont) Baseline() int           { return 10 }
func (fakeFont) Height() int             { return 16 }
func (fakeFont) CharacterWidth(rune) int { return 8 }

type fakeCanvas struct {
	width, height int
	brightness    int
	pwmBits       int
	pixels        map[[2]int]wire.Color
}

func newFakeCanvas() *fakeCanvas {
	return &fakeCanvas{width: 64, height: 32, brightness: 100, pwmBits: 11, pixels: map[[2]int]wire.Color{}}
}

func (c *fakeCanvas) Width() int        { return c.width }
func (c *fakeCanvas) Height() int       { return c.height }
func (c *fakeCanvas) Brightness() int   { return c.brightness }
func (c *fakeCanvas) PWMBits() int      { return c.pwmBits }
func (c *fakeCanvas) SetPWMBits(b int)  { c.pwmBits = b }
func (c *fakeCanvas) Fill(wire.Color)   {}
func (c *fakeCanvas) SetPixel(x, y int, col wire.Color) {
	c.pixels[[2]int{x, y}] = col
}
func (c *fakeCanvas) DrawText(x, y int, font wire.SpacedFont, fg wire.Color, text string) int {
	width := 0
	for _, r := range text {
		width += font.Font.CharacterWidth(r) + font.LetterSpacing
	}
	return width
}
func (c *fakeCanvas) SwapOnVSync(offscreen Canvas) Canvas { return offscreen }
func (c *fakeCanvas) CreateFrameCanvas() Canvas {
	return &fakeCanvas{width: c.width, height: c.height, brightness: c.brightness, pwmBits: c.pwmBits, pixels: map[[2]int]wire.Color{}}
}

func TestStaticOrderIsDoneAfterOneStep(t *testing.T) {
	canvas := newFakeCanvas()
	d := NewDisplayer(canvas, wire.Color{R: 1}, wire.Color{R: 2})
	order := wire.NewTextOrderWithFont(wire.NewSpacedFont(fakeFont{}, 0), "HELLO")

	d.StartOrder(order)
	require.False(t, d.IsDone())
	d.Step()
	assert.True(t, d.IsDone(), "static order must be done after one Step")
}

func TestContinuousScrollWrapsAndReportsDoneOncePerCycle(t *testing.T) {
	canvas := newFakeCanvas()
	d := NewDisplayer(canvas, wire.Color{}, wire.Color{})
	order := wire.NewTextOrderWithFont(wire.NewSpacedFont(fakeFont{}, 0), "HI").
		WithVelocity(1000).
		WithScrollType(wire.Continuous)

	d.StartOrder(order)
	wraps := 0
	for i := 0; i < 400 && wraps < 2; i++ {
		prevX := d.x
		d.Step()
		if d.x < prevX {
			wraps++
			assert.True(t, d.IsDone(), "done is set when a cycle completes")
		} else if wraps == 0 {
			assert.False(t, d.IsDone(), "not done before the first cycle completes")
		}
	}
	assert.Equal(t, 2, wraps, "continuous order should wrap twice within 400 steps")
}

func TestIdempotentStepOnDoneNonContinuousOrder(t *testing.T) {
	canvas := newFakeCanvas()
	d := NewDisplayer(canvas, wire.Color{}, wire.Color{})
	order := wire.NewTextOrderWithFont(wire.NewSpacedFont(fakeFont{}, 0), "X")
	d.StartOrder(order)
	d.Step()
	require.True(t, d.IsDone())

	for i := 0; i < 3; i++ {
		d.Step()
		assert.True(t, d.IsDone())
	}
}

func TestFirstStepDoesNotWaitOnPacing(t *testing.T) {
	canvas := newFakeCanvas()
	d := NewDisplayer(canvas, wire.Color{}, wire.Color{})
	order := wire.NewTextOrderWithFont(wire.NewSpacedFont(fakeFont{}, 0), "SCROLL").
		WithVelocity(1).
		WithScrollType(wire.SingleOnOff)
	d.StartOrder(order)
	assert.True(t, d.nextFrameDeadline.IsZero())
}

// TestBlinkTogglesOncePerWindow exercises S7: a blink-enabled order toggles
// visibility exactly once per elapsed on/off window, independent of whether
// the order itself is still animating.
func TestBlinkTogglesOncePerWindow(t *testing.T) {
	const onMs, offMs = 20, 30
	canvas := newFakeCanvas()
	d := NewDisplayer(canvas, wire.Color{}, wire.Color{})
	order := wire.NewTextOrderWithFont(wire.NewSpacedFont(fakeFont{}, 0), "X").
		WithBlink(onMs, offMs)

	d.StartOrder(order)
	require.True(t, d.blinkVisible, "blink starts visible")

	d.Step()
	assert.True(t, d.blinkVisible, "first Step only arms the deadline, no toggle yet")

	time.Sleep((onMs + 15) * time.Millisecond)
	d.Step()
	assert.False(t, d.blinkVisible, "on-window elapsed, blink toggles off")

	time.Sleep(15 * time.Millisecond)
	d.Step()
	assert.False(t, d.blinkVisible, "off-window not yet elapsed, stays off")

	time.Sleep((offMs - 15 + 15) * time.Millisecond)
	d.Step()
	assert.True(t, d.blinkVisible, "off-window elapsed, blink toggles back on")
}
