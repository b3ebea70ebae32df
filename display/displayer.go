package display

import (
	"time"

	"scoreboard/wire"
)

const idleThreshold = 5 * time.Second

// Displayer is the single-owner animation engine. It owns the Canvas for
// the lifetime of the process; no other component may draw to it.
type Displayer struct {
	canvas    Canvas
	offscreen Canvas

	current wire.TextOrder
	done    bool

	x, y      int
	scrollDir int
	textWidth int

	frameDelay        time.Duration
	nextFrameDeadline time.Time

	allowIdleMarkers bool
	idle             bool
	idleColor        wire.Color
	lastChangeTime   time.Time

	disconnect       bool
	markedDisconnect bool
	disconnectColor  wire.Color

	pwmBitsDefault int

	blinkVisible  bool
	blinkDeadline time.Time
}

// NewDisplayer constructs a Displayer that owns canvas for the remainder
// of the process, remembering the canvas's current PWM bit depth as the
// default to restore whenever an order does not warrant the
// extreme-colors optimization.
func NewDisplayer(canvas Canvas, idleColor, disconnectColor wire.Color) *Displayer {
	d := &Displayer{
		canvas:           canvas,
		offscreen:        canvas.CreateFrameCanvas(),
		current:          wire.NewTextOrder(),
		done:             true,
		allowIdleMarkers: true,
		idleColor:        idleColor,
		disconnectColor:  disconnectColor,
		pwmBitsDefault:   canvas.PWMBits(),
		blinkVisible:     true,
	}
	d.lastChangeTime = time.Now()
	return d
}

// IsDone reports whether the current order has reached its terminal state
// for this pass (SINGLE_*), or completed one full wrap (CONTINUOUS).
func (d *Displayer) IsDone() bool { return d.done }

// IsAnimating reports whether the render loop still has work to do this
// frame: either the order hasn't reached its terminal state yet, or it's a
// CONTINUOUS scroll that keeps looping forever regardless of done.
func (d *Displayer) IsAnimating() bool {
	return !d.done || (d.current.IsScrolling() && d.current.ScrollType == wire.Continuous)
}

// SetDisconnect marks whether the active source is currently disconnected,
// controlling the disconnect corner markers on the next Step.
func (d *Displayer) SetDisconnect(disconnected bool) { d.disconnect = disconnected }

// StartOrder replaces the current order and resets scroll/blink/pwm state
// per §4.5.
func (d *Displayer) StartOrder(order wire.TextOrder) {
	d.current = order
	d.done = false
	d.updatePWMBits()

	d.blinkVisible = true
	d.blinkDeadline = time.Time{}
	d.nextFrameDeadline = time.Time{}

	if order.Velocity > 0 {
		d.scrollDir = 1
	} else {
		d.scrollDir = -1
	}

	font := order.Font.Font
	if font != nil && order.IsScrolling() {
		d.frameDelay = time.Duration(1e6 / absF(order.Velocity) / float64(font.CharacterWidth('W'))) * time.Microsecond
	} else {
		d.frameDelay = 0
	}

	d.setInitialCursor(order, font)

	d.idle = false
	d.lastChangeTime = time.Now()
}

func (d *Displayer) setInitialCursor(order wire.TextOrder, font wire.Font) {
	w, h := d.canvas.Width(), d.canvas.Height()
	if !order.IsScrolling() {
		d.x, d.y = order.OriginX, order.OriginY
		return
	}
	switch order.Axis {
	case wire.Horizontal:
		if d.scrollDir > 0 {
			width := d.canvas.DrawText(-10000, order.OriginY, order.Font, order.FgColor, order.Text)
			d.x = -width
		} else {
			d.x = w
		}
		d.y = order.OriginY
	case wire.Vertical:
		fontHeight := 0
		if font != nil {
			fontHeight = font.Height()
		}
		if d.scrollDir > 0 {
			d.y = -fontHeight
		} else {
			d.y = h
		}
		d.x = order.OriginX
	}
}

// updatePWMBits recomputes whether the panel should drop to 1 PWM bit:
// brightness at 100% and both colors fully saturated.
func (d *Displayer) updatePWMBits() {
	if d.canvas.Brightness() == 100 && d.current.FgColor.FullySaturated() && d.current.BgColor.FullySaturated() {
		d.canvas.SetPWMBits(1)
		return
	}
	d.canvas.SetPWMBits(d.pwmBitsDefault)
}

// Step advances the current order by one frame. It is non-blocking except
// for the scroll-pacing sleep, which is bounded by frameDelay.
func (d *Displayer) Step() {
	d.updateBlink()

	if !d.done || (d.current.IsScrolling() && d.current.ScrollType == wire.Continuous) {
		d.offscreen.Fill(d.current.BgColor)
		if d.blinkVisible {
			font := d.current.Font.Font
			baseline := 0
			if font != nil {
				baseline = font.Baseline()
			}
			if d.current.HasOutline {
				d.drawOutline(font, baseline)
			}
			d.textWidth = d.offscreen.DrawText(d.x, d.y+baseline, d.current.Font, d.current.FgColor, d.current.Text)
		}
	}

	d.pace()

	if d.disconnect {
		d.overlayCorners(d.offscreen, d.disconnectColor)
	}

	d.offscreen = d.canvas.SwapOnVSync(d.offscreen)

	d.advanceCursor()

	if !d.current.IsScrolling() {
		d.done = true
	}

	d.applyIdleAndDisconnectMarkers()
}

func (d *Displayer) drawOutline(font wire.Font, baseline int) {
	deltas := [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for _, delta := range deltas {
		d.offscreen.DrawText(d.x+delta[0], d.y+baseline+delta[1], d.current.Font, d.current.OutlineColor, d.current.Text)
	}
}

func (d *Displayer) updateBlink() {
	if !d.current.HasBlink() {
		d.blinkVisible = true
		return
	}
	if d.blinkDeadline.IsZero() {
		d.blinkDeadline = time.Now().Add(onOffDuration(d.blinkVisible, d.current))
		return
	}
	if time.Now().Before(d.blinkDeadline) {
		return
	}
	d.blinkVisible = !d.blinkVisible
	d.blinkDeadline = time.Now().Add(onOffDuration(d.blinkVisible, d.current))
}

func onOffDuration(visible bool, o wire.TextOrder) time.Duration {
	if visible {
		return time.Duration(o.BlinkOnMillis) * time.Millisecond
	}
	return time.Duration(o.BlinkOffMillis) * time.Millisecond
}

// pace blocks until nextFrameDeadline using an absolute monotonic sleep so
// jitter does not accumulate across frames; the first frame after
// StartOrder never waits.
func (d *Displayer) pace() {
	if d.nextFrameDeadline.IsZero() {
		d.nextFrameDeadline = time.Now()
		return
	}
	d.nextFrameDeadline = d.nextFrameDeadline.Add(d.frameDelay)
	if until := time.Until(d.nextFrameDeadline); until > 0 {
		time.Sleep(until)
	}
}

func (d *Displayer) advanceCursor() {
	if !d.current.IsScrolling() {
		return
	}
	w, h := d.canvas.Width(), d.canvas.Height()
	switch d.current.Axis {
	case wire.Horizontal:
		d.x += d.scrollDir
		d.wrapHorizontal(w)
	case wire.Vertical:
		d.y += d.scrollDir
		d.wrapVertical(h)
	}
}

func (d *Displayer) wrapHorizontal(w int) {
	switch d.current.ScrollType {
	case wire.Continuous:
		if (d.scrollDir < 0 && d.x+d.textWidth < 0) || (d.scrollDir > 0 && d.x > w) {
			if d.scrollDir > 0 {
				d.x = d.current.OriginX - d.textWidth
			} else {
				d.x = d.current.OriginX + w
			}
			d.done = true
		}
	case wire.SingleOn:
		if crossedOrigin(d.x, d.scrollDir, d.current.OriginX) {
			d.x = d.current.OriginX
			d.done = true
		}
	case wire.SingleOnOff:
		if (d.scrollDir < 0 && d.x < -d.textWidth) || (d.scrollDir > 0 && d.x > w) {
			d.x = w + 1
			d.done = true
		}
	}
}

func (d *Displayer) wrapVertical(h int) {
	switch d.current.ScrollType {
	case wire.Continuous:
		fontHeight := d.fontHeight()
		if (d.scrollDir < 0 && d.y+fontHeight < 0) || (d.scrollDir > 0 && d.y > h) {
			if d.scrollDir > 0 {
				d.y = d.current.OriginY - fontHeight
			} else {
				d.y = d.current.OriginY + h
			}
			d.done = true
		}
	case wire.SingleOn:
		if crossedOrigin(d.y, d.scrollDir, d.current.OriginY) {
			d.y = d.current.OriginY
			d.done = true
		}
	case wire.SingleOnOff:
		fontHeight := d.fontHeight()
		if (d.scrollDir < 0 && d.y < -fontHeight) || (d.scrollDir > 0 && d.y > h) {
			d.y = h + 1
			d.done = true
		}
	}
}

func (d *Displayer) fontHeight() int {
	if d.current.Font.Font == nil {
		return 0
	}
	return d.current.Font.Font.Height()
}

func crossedOrigin(pos, dir, origin int) bool {
	if dir > 0 {
		return pos >= origin
	}
	return pos <= origin
}

func (d *Displayer) applyIdleAndDisconnectMarkers() {
	if !d.done {
		return
	}
	if d.allowIdleMarkers && d.current.OrderDoneHasEmptyDisplay() && time.Since(d.lastChangeTime) >= idleThreshold {
		if !d.idle {
			d.idle = true
			d.overlayCorners(d.canvas, d.idleColor)
		}
	}
	if d.disconnect != d.markedDisconnect {
		color := wire.Color{}
		if d.disconnect {
			color = d.disconnectColor
		}
		d.overlayCorners(d.canvas, color)
		d.markedDisconnect = d.disconnect
	}
}

func (d *Displayer) overlayCorners(c Canvas, color wire.Color) {
	w, h := c.Width(), c.Height()
	c.SetPixel(0, 0, color)
	c.SetPixel(0, h-1, color)
	c.SetPixel(w-1, 0, color)
	c.SetPixel(w-1, h-1, color)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
