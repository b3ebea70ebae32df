package receiver

import (
	"fmt"
	"strings"
	"time"

	"scoreboard/logs"
	"scoreboard/proto"
)

// execCommandLocked executes one COMMAND line against the descriptor that
// sent it, per §4.4. Callers must already hold mtxMsgQueue and
// mtxDescriptors in that order; execCommandLocked additionally takes
// mtxReport for the echo-enable command, consistent with the required
// lock order msgQueue -> descriptors -> report.
func (r *Receiver) execCommandLocked(d *descriptorInfo, line string) {
	rest := line[len(commandPrefix):]
	byte0, arg := rest[0], rest[1:]
	switch byte0 {
	case '*':
		r.pendingActiveName = arg
		r.pendingActiveAtNextMessage = false
	case '!':
		r.activeOutbox = append(r.activeOutbox, proto.RawMessage{
			Protocol:  proto.SimpleText,
			Data:      r.formatClientListLocked(),
			Timestamp: time.Now(),
		})
	case '?':
		d.outbound = append(d.outbound, []byte(r.formatClientReplyLocked()))
	case '&':
		r.execEchoToggleLocked(d, arg)
	case '0':
		r.activeOutbox = append(r.activeOutbox, proto.Clear(time.Now()))
	default:
		logs.LogV("[receiver] unknown command byte %q from %s", byte0, d.name)
	}
}

func (r *Receiver) execEchoToggleLocked(d *descriptorInfo, arg string) {
	if len(arg) == 0 || (arg[0] != '0' && arg[0] != '1') {
		logs.LogV("[receiver] malformed echo toggle %q from %s", arg, d.name)
		return
	}
	d.echoEnabled = arg[0] == '1'
	r.recomputeAnyEchoLocked()
	if d.echoEnabled && r.lastReportedWire != "" {
		d.outbound = append(d.outbound, []byte("="+r.lastReportedWire))
	}
}

// formatClientListLocked renders the connected-client roster as one line
// of panel text, names separated by two spaces and the active client
// prefixed "* ", for §4.4's '!' command.
func (r *Receiver) formatClientListLocked() string {
	parts := make([]string, 0, len(r.descriptors))
	for i, d := range r.descriptors {
		if i == r.activeIdx {
			parts = append(parts, "* "+d.name)
			continue
		}
		parts = append(parts, d.name)
	}
	return strings.Join(parts, "  ")
}

// formatClientReplyLocked renders the "~~NN..." client listing reply sent
// directly back to the requesting client over its own connection, per
// §4.4's '?' command and §6's reply grammar.
func (r *Receiver) formatClientReplyLocked() string {
	var b strings.Builder
	fmt.Fprintf(&b, "~~%02d", len(r.descriptors))
	for i, d := range r.descriptors {
		if i == r.activeIdx {
			b.WriteString("~~*!" + d.name)
			continue
		}
		b.WriteString("~~" + d.name)
	}
	b.WriteByte('\r')
	return b.String()
}
