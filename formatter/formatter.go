// Package formatter implements the stateful parser that turns a
// proto.RawMessage into a wire.TextOrder ready for the display engine.
package formatter

import (
	"fmt"

	"scoreboard/logs"
	"scoreboard/proto"
	"scoreboard/wire"
)

// Formatter converts RawMessages into TextOrders, tracking intermediate
// split-counter state across a session of vendor-protocol messages. A
// Formatter is owned by a single caller (the render loop) and is not safe
// for concurrent use.
type Formatter struct {
	template               wire.TextOrder // font/colors/axis/scrollType/velocity defaults
	noVelocityForFixedTimes bool
	splits                 splitState
}

// New builds a Formatter. template supplies the styling (font, colors,
// axis, scroll type, default velocity) applied to every order the
// formatter produces; only text and (sometimes) velocity are overridden
// per message.
func New(template wire.TextOrder, noVelocityForFixedTimes bool) *Formatter {
	return &Formatter{template: template, noVelocityForFixedTimes: noVelocityForFixedTimes}
}

// Format converts msg into a TextOrder. ok is false when the message
// yields no display change at all (too-short vendor line, dropped
// board-ID duplicate); callers must not forward the order in that case.
func (f *Formatter) Format(msg proto.RawMessage) (wire.TextOrder, bool) {
	switch msg.Protocol {
	case proto.VendorTiming:
		return f.formatVendor(msg.Data)
	case proto.SimpleText:
		return f.template.WithText(msg.Data), true
	case proto.FormattedText:
		return wire.Decode(msg.Data)
	default:
		return wire.TextOrder{}, false
	}
}

func (f *Formatter) formatVendor(data string) (wire.TextOrder, bool) {
	if len(data) < 20 {
		logs.LogV("[formatter] dropped short vendor line: %s", proto.HexEscape(data))
		return wire.TextOrder{}, false
	}
	rec, ok := parseVendorLine(data)
	if !ok {
		return wire.TextOrder{}, false
	}

	nextSplitID, drop := f.splits.advance(rec)
	if drop {
		return wire.TextOrder{}, false
	}

	if isBlankMessage(rec) {
		return f.template.WithText(" "), true
	}

	t := normalizeTime(rec.time)

	if rec.stillRunning {
		return f.template.WithText(fmt.Sprintf("[ %s ]", t)), true
	}

	class := classifyEventType(rec.eventType, rec.boardID != 0)
	order := f.template
	switch class {
	case classFirstIntermediate, classLaterIntermediate:
		order = order.WithText(fmt.Sprintf("%s S%d", t, nextSplitID))
	case classRunTime:
		order = order.WithText(withRank(t, rec.rank))
	default: // classTotalOrUnknown
		order = order.WithText(withRank(t, rec.rank))
	}
	if f.noVelocityForFixedTimes {
		order = order.WithVelocity(0)
	}
	return order, true
}

func withRank(t, rank string) string {
	if rank == "" {
		return t
	}
	return fmt.Sprintf("%s(%s)", t, rank)
}
