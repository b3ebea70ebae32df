// Package display implements the single-owner animation engine that turns
// a wire.TextOrder into a sequence of frames on an externally supplied
// pixel-plane capability.
package display

import "scoreboard/wire"

// Canvas is the narrow capability the Displayer needs from the hardware
// pixel-plane driver. The driver itself (chained-panel wiring, GPIO
// timing, PWM) is out of scope; only this interface is specified.
type Canvas interface {
	Width() int
	Height() int

	// Brightness returns the configured brightness percentage (0-100).
	Brightness() int

	// PWMBits returns the panel's currently configured PWM bit depth.
	PWMBits() int
	SetPWMBits(bits int)

	Fill(c wire.Color)
	SetPixel(x, y int, c wire.Color)

	// DrawText renders text at (x,y) using font and fg, applying the
	// font's configured letter spacing, and returns the rendered width
	// in pixels.
	DrawText(x, y int, font wire.SpacedFont, fg wire.Color, text string) int

	// SwapOnVSync publishes offscreen as the visible frame and returns
	// the buffer that is now free to draw into (double buffering).
	SwapOnVSync(offscreen Canvas) Canvas

	// CreateFrameCanvas allocates a second buffer of matching dimensions
	// for off-screen drawing ahead of the next swap.
	CreateFrameCanvas() Canvas
}

// Font is re-exported for convenience so callers of this package do not
// need to import wire directly just to build a SpacedFont.
type Font = wire.Font
