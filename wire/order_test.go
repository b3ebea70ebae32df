package wire

import "testing"

func TestIsScrolling(t *testing.T) {
	cases := []struct {
		velocity float64
		want     bool
	}{
		{0, false},
		{1e-5, false},
		{1e-3, true},
		{-5, true},
	}
	for _, c := range cases {
		o := NewTextOrder().WithVelocity(c.velocity)
		if got := o.IsScrolling(); got != c.want {
			t.Errorf("velocity %v: IsScrolling() = %v, want %v", c.velocity, got, c.want)
		}
	}
}

func TestOrderDoneHasEmptyDisplay(t *testing.T) {
	empty := NewTextOrderWithText("")
	if !empty.OrderDoneHasEmptyDisplay() {
		t.Error("empty text should report empty display")
	}

	onoff := NewTextOrderWithText("hello").WithVelocity(5).WithScrollType(SingleOnOff)
	if !onoff.OrderDoneHasEmptyDisplay() {
		t.Error("SINGLE_ONOFF scroll should report empty display when done")
	}

	on := NewTextOrderWithText("hello").WithVelocity(5).WithScrollType(SingleOn)
	if on.OrderDoneHasEmptyDisplay() {
		t.Error("SINGLE_ON scroll should not report empty display")
	}

	static := NewTextOrderWithText("hello")
	if static.OrderDoneHasEmptyDisplay() {
		t.Error("static non-empty text should not report empty display")
	}
}

func TestSanitizeTextReplacesNonPrintable(t *testing.T) {
	o := NewTextOrderWithText("ab\x01c\x7f")
	if o.Text != "ab&c&" {
		t.Errorf("Text = %q, want %q", o.Text, "ab&c&")
	}
}

func TestFluentSettersReturnCopy(t *testing.T) {
	base := NewTextOrder()
	derived := base.WithVelocity(3).WithAxis(Vertical).WithOrigin(4, 5)

	if base.Velocity != 0 || base.Axis != Horizontal || base.OriginX != 0 {
		t.Error("base order was mutated by fluent setters")
	}
	if derived.Velocity != 3 || derived.Axis != Vertical || derived.OriginX != 4 || derived.OriginY != 5 {
		t.Error("derived order did not pick up fluent changes")
	}
}
