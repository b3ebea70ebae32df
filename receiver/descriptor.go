package receiver

import (
	"bytes"
	"net"

	"scoreboard/proto"
)

// descriptorInfo is one connected client's full record: its socket, the
// unprocessed byte tail that hasn't formed a complete line yet, its
// inbound (inactive-queue) message deque, and its pending outbound write
// queue. It is only ever touched while mtxDescriptors is held.
type descriptorInfo struct {
	name string
	conn net.Conn

	buf []byte

	inbound  []proto.RawMessage
	outbound [][]byte

	echoEnabled bool
}

// maxUnprocessedBytes bounds the unprocessed-byte tail so a client that
// never sends a CR cannot grow its buffer without limit; it is a generous
// multiple of MaxLine, well past any legitimate line.
const maxUnprocessedBytes = proto.MaxLine * 8

// uniqueNameFor computes the unique source name for a newly accepted
// connection: the peer's dotted IPv4 address, or the literal
// "(non-IPV4)", with '*' appended until it is unique within existing.
func uniqueNameFor(conn net.Conn, existing []*descriptorInfo) string {
	base := "(non-IPV4)"
	if ra, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		if v4 := ra.IP.To4(); v4 != nil {
			base = v4.String()
		}
	} else if host, _, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
		if ip := net.ParseIP(host); ip != nil {
			if v4 := ip.To4(); v4 != nil {
				base = v4.String()
			}
		}
	}
	name := base
	for nameTaken(name, existing) {
		name += "*"
	}
	return name
}

func nameTaken(name string, existing []*descriptorInfo) bool {
	for _, d := range existing {
		if d.name == name {
			return true
		}
	}
	return false
}

// extractLines scans buf for CR-terminated lines, stripping an optional
// immediately preceding LF, and returns the decoded lines in order,
// leaving any unterminated tail in buf for the next read. Lines exceeding
// MaxLine (including their EOL) are silently discarded; the caller never
// sees them.
func extractLines(buf *[]byte) []string {
	var lines []string
	data := *buf
	start := 0
	for {
		idx := bytes.IndexByte(data[start:], '\r')
		if idx < 0 {
			break
		}
		end := start + idx
		line := data[start:end]
		if len(line) > 0 && line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}
		if end-start+1 <= proto.MaxLine {
			lines = append(lines, string(line))
		}
		start = end + 1
	}
	rest := data[start:]
	if len(rest) > maxUnprocessedBytes {
		rest = rest[len(rest)-maxUnprocessedBytes:]
	}
	*buf = append([]byte(nil), rest...)
	return lines
}
