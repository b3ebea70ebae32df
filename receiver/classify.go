package receiver

import (
	"strings"
	"time"

	"scoreboard/formatter"
	"scoreboard/proto"
	"scoreboard/wire"
)

const commandPrefix = "~)'"

// classify runs the fixed classification chain COMMAND -> FORMATTED_TEXT ->
// VENDOR_TIMING over one already EOL-stripped line, per §4.6/§9 ("a small
// fixed chain... encoded as a tagged sum type returned from a single pure
// function"). A line matching none of the three is tagged Unknown; the
// caller decides whether to discard or substitute a clear.
func classify(line string, now time.Time) proto.RawMessage {
	switch {
	case isCommandLine(line):
		return proto.RawMessage{Protocol: proto.Command, Data: line, Timestamp: now}
	case isFormattedTextLine(line):
		return proto.RawMessage{Protocol: proto.FormattedText, Data: line, Timestamp: now}
	case formatter.IsVendorTimingLine(line):
		return proto.RawMessage{Protocol: proto.VendorTiming, Data: line, Timestamp: now}
	default:
		return proto.RawMessage{Protocol: proto.Unknown, Data: line, Timestamp: now}
	}
}

// isCommandLine matches "~)'" followed by at least one printable command
// byte, per §4.4.
func isCommandLine(line string) bool {
	if !strings.HasPrefix(line, commandPrefix) {
		return false
	}
	rest := line[len(commandPrefix):]
	if len(rest) == 0 {
		return false
	}
	return isPrintablePayload(rest)
}

func isPrintablePayload(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] >= 0x7f {
			return false
		}
	}
	return true
}

// isFormattedTextLine matches the full FORMATTED_TEXT grammar by
// delegating to wire.Decode; classification and decoding share the same
// grammar, so there is no separate validity check to drift out of sync.
func isFormattedTextLine(line string) bool {
	_, ok := wire.Decode(line)
	return ok
}
