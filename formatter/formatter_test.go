package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/proto"
	"scoreboard/wire"
)

func defaultTemplate() wire.TextOrder {
	return wire.NewTextOrder()
}

func TestS1VendorTotalTime(t *testing.T) {
	f := New(defaultTemplate(), true)
	line := "007D    00:01:23.456 2"
	order, ok := f.Format(proto.RawMessage{Protocol: proto.VendorTiming, Data: line})
	require.True(t, ok)
	assert.Equal(t, "1:23.456(2)", order.Text)
	assert.Equal(t, float64(0), order.Velocity)
}

func TestS2VendorRunningTime(t *testing.T) {
	f := New(defaultTemplate().WithVelocity(7), true)
	line := "   .    00:00:05.67 "
	order, ok := f.Format(proto.RawMessage{Protocol: proto.VendorTiming, Data: line})
	require.True(t, ok)
	assert.Equal(t, "[ 0:05.67 ]", order.Text)
	assert.Equal(t, float64(7), order.Velocity, "running display retains default velocity")
}

func TestS3TwoIntermediatesInSequence(t *testing.T) {
	f := New(defaultTemplate(), true)

	lineA := "001A    0:10.00     "
	order, ok := f.Format(proto.RawMessage{Protocol: proto.VendorTiming, Data: lineA})
	require.True(t, ok)
	assert.Equal(t, "0:10.00 S1", order.Text)

	lineB := "001B    0:20.50     "
	order, ok = f.Format(proto.RawMessage{Protocol: proto.VendorTiming, Data: lineB})
	require.True(t, ok)
	assert.Equal(t, "0:20.50 S2", order.Text)
}

func TestS4BoardIDDuplicateSuppression(t *testing.T) {
	f := New(defaultTemplate(), true)

	lineA := "001A    0:10.00     "
	_, ok := f.Format(proto.RawMessage{Protocol: proto.VendorTiming, Data: lineA})
	require.True(t, ok)
	lineB := "001B    0:20.50     "
	_, ok = f.Format(proto.RawMessage{Protocol: proto.VendorTiming, Data: lineB})
	require.True(t, ok)

	dup := "A001    0:20.50     "
	_, ok = f.Format(proto.RawMessage{Protocol: proto.VendorTiming, Data: dup})
	assert.False(t, ok, "board-ID duplicate of an already-handled rich copy must be dropped")
}

func TestTooShortVendorLineDropped(t *testing.T) {
	f := New(defaultTemplate(), true)
	_, ok := f.Format(proto.RawMessage{Protocol: proto.VendorTiming, Data: "short"})
	assert.False(t, ok)
}

func TestBlankVendorMessageClears(t *testing.T) {
	f := New(defaultTemplate(), true)
	blank := "                       "
	order, ok := f.Format(proto.RawMessage{Protocol: proto.VendorTiming, Data: blank})
	require.True(t, ok)
	assert.Equal(t, " ", order.Text)
}

func TestSimpleTextPassesThroughVerbatim(t *testing.T) {
	f := New(defaultTemplate(), true)
	order, ok := f.Format(proto.RawMessage{Protocol: proto.SimpleText, Data: "hello board"})
	require.True(t, ok)
	assert.Equal(t, "hello board", order.Text)
}

func TestFormattedTextDelegatesToWireDecode(t *testing.T) {
	f := New(defaultTemplate(), true)
	encoded, ok := wire.Encode(wire.NewTextOrderWithText("hi"))
	require.True(t, ok)
	order, ok := f.Format(proto.RawMessage{Protocol: proto.FormattedText, Data: encoded[:len(encoded)-1]})
	require.True(t, ok)
	assert.Equal(t, "hi", order.Text)
}
