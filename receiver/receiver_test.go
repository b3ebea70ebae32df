package receiver

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/proto"
	"scoreboard/wire"
)

func startTestReceiver(t *testing.T) *Receiver {
	t.Helper()
	r := New(Config{Port: 0, ClearOnUnrecognized: true})
	require.NoError(t, r.Start())
	t.Cleanup(r.Stop)
	return r
}

func dial(t *testing.T, r *Receiver) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp4", r.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func formattedLine(t *testing.T, text string) string {
	t.Helper()
	encoded, ok := wire.Encode(wire.NewTextOrderWithText(text))
	require.True(t, ok)
	return encoded
}

func eventuallyClientCount(t *testing.T, r *Receiver, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(r.ClientSummary().Names) == n
	}, time.Second, 5*time.Millisecond)
}

func TestUniqueClientNaming(t *testing.T) {
	r := startTestReceiver(t)

	a := dial(t, r)
	eventuallyClientCount(t, r, 1)
	b := dial(t, r)
	eventuallyClientCount(t, r, 2)
	_ = a
	_ = b

	names := r.ClientSummary().Names
	require.Len(t, names, 2)
	assert.NotEqual(t, names[0], names[1], "unique names must be distinct within the descriptor table")
	assert.Equal(t, "127.0.0.1", names[0])
	assert.Equal(t, "127.0.0.1*", names[1])
}

func TestFirstDisplayableMessageAutoActivates(t *testing.T) {
	r := startTestReceiver(t)
	a := dial(t, r)

	_, err := a.Write([]byte(formattedLine(t, "hello")))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return r.ClientSummary().ActiveName != ""
	}, time.Second, 5*time.Millisecond)

	require.True(t, r.HasPendingMessage())
	msg, ok := r.PopPendingMessage()
	require.True(t, ok)
	assert.Equal(t, proto.SimpleText, msg.Protocol, "auto-activation enqueues a clear before the first real message")

	msg, ok = r.PopPendingMessage()
	require.True(t, ok)
	assert.Equal(t, proto.FormattedText, msg.Protocol)
}

// TestActiveClientSwitch exercises S6: A is active with a displayed
// message, then the controller switches to B, and back to A.
func TestActiveClientSwitch(t *testing.T) {
	r := startTestReceiver(t)
	a := dial(t, r)
	b := dial(t, r)
	eventuallyClientCount(t, r, 2)

	_, err := a.Write([]byte(formattedLine(t, "from-a")))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.ClientSummary().ActiveName != "" }, time.Second, 5*time.Millisecond)
	activeName := r.ClientSummary().ActiveName

	// Drain the clear + M_A that auto-activation produced.
	drainAll(r)

	var bName string
	for _, n := range r.ClientSummary().Names {
		if n != activeName {
			bName = n
		}
	}
	require.NotEmpty(t, bName)

	// Buffer a message on B while it is inactive.
	_, err = b.Write([]byte(formattedLine(t, "from-b")))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	r.RequestActiveClient(bName)
	require.Eventually(t, func() bool { return r.ClientSummary().ActiveName == bName }, time.Second, 5*time.Millisecond)

	msgs := drainAll(r)
	require.NotEmpty(t, msgs)
	assert.Equal(t, proto.SimpleText, msgs[0].Protocol, "switching produces a clear first")
	found := false
	for _, m := range msgs[1:] {
		if m.Protocol == proto.FormattedText {
			found = true
		}
	}
	assert.True(t, found, "B's buffered message must reach the active outbox after the switch")

	// Switch back to A: its last displayed message is redelivered.
	r.RequestActiveClient(activeName)
	require.Eventually(t, func() bool { return r.ClientSummary().ActiveName == activeName }, time.Second, 5*time.Millisecond)
	msgs = drainAll(r)
	require.Len(t, msgs, 2, "switching back reproduces a clear followed by A's last displayed message")
	assert.Equal(t, proto.SimpleText, msgs[0].Protocol)
	assert.Equal(t, proto.FormattedText, msgs[1].Protocol)
}

func drainAll(r *Receiver) []proto.RawMessage {
	var out []proto.RawMessage
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		m, ok := r.PopPendingMessage()
		if !ok {
			if len(out) > 0 {
				return out
			}
			time.Sleep(5 * time.Millisecond)
			continue
		}
		out = append(out, m)
	}
	return out
}

// TestCommandExclusivity checks invariant 8: no COMMAND RawMessage is ever
// observed via PopPendingMessage, even when sent by the active client.
func TestCommandExclusivity(t *testing.T) {
	r := startTestReceiver(t)
	a := dial(t, r)

	_, err := a.Write([]byte(formattedLine(t, "seed")))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.ClientSummary().ActiveName != "" }, time.Second, 5*time.Millisecond)
	drainAll(r)

	_, err = a.Write([]byte("~)'0\r"))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	msgs := drainAll(r)
	require.NotEmpty(t, msgs)
	for _, m := range msgs {
		assert.NotEqual(t, proto.Command, m.Protocol)
	}
}

// TestEchoAndClientListing exercises S5: enabling echo immediately
// replays the last reported display, and '?' enumerates clients with the
// active one prefixed.
func TestEchoAndClientListing(t *testing.T) {
	r := startTestReceiver(t)
	a := dial(t, r)

	_, err := a.Write([]byte(formattedLine(t, "seed")))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.ClientSummary().ActiveName != "" }, time.Second, 5*time.Millisecond)
	_, ok := r.PopPendingMessage()
	require.True(t, ok)
	order, ok := r.PopPendingMessage()
	require.True(t, ok)

	tOrder, ok := wire.Decode(order.Data)
	require.True(t, ok)
	r.ReportDisplayed(tOrder)

	_, err = a.Write([]byte("~)'&1\r"))
	require.NoError(t, err)

	reader := bufio.NewReader(a)
	a.SetReadDeadline(time.Now().Add(time.Second))
	line, err := reader.ReadString('\r')
	require.NoError(t, err)
	assert.Regexp(t, `^=~\+/`, line, "enabling echo replays the last displayed order")

	_, err = a.Write([]byte("~)'?\r"))
	require.NoError(t, err)
	a.SetReadDeadline(time.Now().Add(time.Second))
	line, err = reader.ReadString('\r')
	require.NoError(t, err)
	assert.Regexp(t, `^~~01~~\*!`, line, "sole connected client is active, prefixed with *!")
}

func TestMaxDescriptorsBounded(t *testing.T) {
	r := New(Config{Port: 0, MaxDescriptors: 3})
	require.NoError(t, r.Start())
	t.Cleanup(r.Stop)

	var conns []net.Conn
	for i := 0; i < 3; i++ {
		conns = append(conns, dial(t, r))
	}
	require.Eventually(t, func() bool { return len(r.ClientSummary().Names) == 2 }, time.Second, 5*time.Millisecond,
		"listener occupies a conceptual slot, so only MaxDescriptors-1 clients fit")

	extra, err := net.Dial("tcp4", r.Addr().String())
	require.NoError(t, err)
	defer extra.Close()
	buf := make([]byte, 1)
	extra.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	_, err = extra.Read(buf)
	assert.Error(t, err, "the server closes connections beyond MaxDescriptors")
}
