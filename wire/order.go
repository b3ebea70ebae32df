// Package wire defines TextOrder, the immutable-by-convention value that
// describes what the panel should display, and its compact in-house wire
// form used both by clients requesting a formatted display and by the
// server echoing back whatever is currently shown.
package wire

import "strings"

// Axis selects whether an order scrolls horizontally or vertically.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// ScrollType selects how a scrolling order behaves once it has made a full
// pass across the panel.
type ScrollType int

const (
	Continuous   ScrollType = iota // loops forever
	SingleOn                       // scrolls in and stops at origin
	SingleOnOff                    // scrolls across and off, ending blank
)

// scrollingThreshold is the minimum |velocity| that counts as motion; below
// it an order is treated as static.
const scrollingThreshold = 1e-4

// TextOrder is a fully specified rendering request. Values are passed and
// stored by copy; callers never mutate a shared TextOrder in place, so its
// setters return a new value via the fluent pattern below.
type TextOrder struct {
	Font          SpacedFont
	FgColor       Color
	BgColor       Color
	OutlineColor  Color
	HasOutline    bool
	Velocity      float64
	Axis          Axis
	ScrollType    ScrollType
	OriginX       int
	OriginY       int
	Text          string
	BlinkOnMillis int
	BlinkOffMillis int
}

// NewTextOrder returns the default order: empty text, default font and
// colors, no motion, SINGLE_ONOFF, horizontal.
func NewTextOrder() TextOrder {
	return TextOrder{
		Font:       DefaultSpacedFont(),
		FgColor:    Color{R: 255, G: 255, B: 255},
		BgColor:    Color{R: 0, G: 0, B: 0},
		Velocity:   0,
		Axis:       Horizontal,
		ScrollType: SingleOnOff,
	}
}

// NewTextOrderWithText is the text-only constructor: defaults otherwise.
func NewTextOrderWithText(text string) TextOrder {
	o := NewTextOrder()
	o.Text = sanitizeText(text)
	return o
}

// NewTextOrderWithFont builds an order from a font and text, defaults
// otherwise.
func NewTextOrderWithFont(font SpacedFont, text string) TextOrder {
	o := NewTextOrder()
	o.Font = font
	o.Text = sanitizeText(text)
	return o
}

// sanitizeText replaces every non-printable byte with '&', the display-time
// rule applied once at order-construction/mutation time so the Displayer
// never has to re-scan text it already sanitized.
func sanitizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < 0x20 || c >= 0x7f {
			b.WriteByte('&')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// IsScrolling reports whether the order has non-negligible velocity.
func (o TextOrder) IsScrolling() bool {
	v := o.Velocity
	if v < 0 {
		v = -v
	}
	return v > scrollingThreshold
}

// OrderDoneHasEmptyDisplay reports whether the order's terminal rendered
// state leaves the panel empty: no text, or a SINGLE_ONOFF scroll (which
// always ends parked off-screen).
func (o TextOrder) OrderDoneHasEmptyDisplay() bool {
	if o.Text == "" {
		return true
	}
	return o.IsScrolling() && o.ScrollType == SingleOnOff
}

// HasBlink reports whether the order blinks text visibility on/off.
func (o TextOrder) HasBlink() bool {
	return o.BlinkOnMillis > 0 || o.BlinkOffMillis > 0
}

// WithFont returns a copy of o with its font replaced.
func (o TextOrder) WithFont(font SpacedFont) TextOrder { o.Font = font; return o }

// WithText returns a copy of o with its text replaced, sanitized for
// display.
func (o TextOrder) WithText(text string) TextOrder { o.Text = sanitizeText(text); return o }

// WithColors returns a copy of o with foreground/background colors
// replaced.
func (o TextOrder) WithColors(fg, bg Color) TextOrder { o.FgColor, o.BgColor = fg, bg; return o }

// WithOutline returns a copy of o with an outline color enabled.
func (o TextOrder) WithOutline(c Color) TextOrder { o.OutlineColor, o.HasOutline = c, true; return o }

// WithoutOutline returns a copy of o with outlining disabled.
func (o TextOrder) WithoutOutline() TextOrder { o.HasOutline = false; return o }

// WithVelocity returns a copy of o with velocity replaced (sign = direction,
// magnitude = characters per second).
func (o TextOrder) WithVelocity(v float64) TextOrder { o.Velocity = v; return o }

// WithAxis returns a copy of o with the scroll axis replaced.
func (o TextOrder) WithAxis(a Axis) TextOrder { o.Axis = a; return o }

// WithScrollType returns a copy of o with the scroll type replaced.
func (o TextOrder) WithScrollType(s ScrollType) TextOrder { o.ScrollType = s; return o }

// WithOrigin returns a copy of o with its origin replaced.
func (o TextOrder) WithOrigin(x, y int) TextOrder { o.OriginX, o.OriginY = x, y; return o }

// WithBlink returns a copy of o with blink on/off millisecond intervals
// replaced; (0,0) disables blinking.
func (o TextOrder) WithBlink(onMs, offMs int) TextOrder {
	o.BlinkOnMillis, o.BlinkOffMillis = onMs, offMs
	return o
}
