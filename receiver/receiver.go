// Package receiver implements the concurrent TCP server core described in
// spec §4.6: a fleet of line-oriented clients (at most
// Config.MaxDescriptors-1 at once) is multiplexed
// onto a single active source, whose messages the main (render) goroutine
// drains through PopPendingMessage. Four coarse-grained locks partition
// the shared state, acquired in the strict order mtxMsgQueue ->
// mtxDescriptors -> mtxReport -> mtxRunning whenever more than one is held
// at a time; every exported method takes at most one lock, except the
// network-side coordinator, which is the only caller ever holding two.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"scoreboard/logs"
	"scoreboard/network"
	"scoreboard/proto"
	"scoreboard/wire"
)

// Config holds the Receiver's tunable limits. New replaces a non-positive
// MaxDescriptors with the default of 20; Port 0 lets the OS pick a port,
// and ClearOnUnrecognized is off unless set.
type Config struct {
	Port                int
	MaxDescriptors      int  // including the listener's own conceptual slot; default 20
	ClearOnUnrecognized bool // inject a clear for each unrecognized line
}

const (
	defaultMaxDescriptors = 20
	readDeadlineStep      = 200 * time.Millisecond
	writeDeadlineStep     = 2 * time.Second
	coordinatorTick       = 15 * time.Millisecond
)

// ClientSummary is the copy the Receiver exposes to callers outside the
// network side: a snapshot of connected client names and which, if any,
// is active.
type ClientSummary struct {
	Names      []string
	ActiveName string
}

// Receiver is the concurrent TCP server core. It owns every socket and
// descriptor record for the process lifetime between Start and Stop.
type Receiver struct {
	cfg Config

	muRunning   sync.Mutex
	running     bool
	fatalMarker string

	muMsgQueue              sync.Mutex
	activeOutbox            []proto.RawMessage
	lastDisplayedForActive  proto.RawMessage
	lastDisplayedSet        bool

	muDescriptors              sync.Mutex
	descriptors                []*descriptorInfo
	activeIdx                  int
	pendingActiveName          string
	pendingActiveAtNextMessage bool
	lastReportedWire           string

	muReport         sync.Mutex
	anyEchoRequested bool

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New constructs a Receiver in the stopped state.
func New(cfg Config) *Receiver {
	if cfg.MaxDescriptors <= 0 {
		cfg.MaxDescriptors = defaultMaxDescriptors
	}
	return &Receiver{cfg: cfg, activeIdx: -1}
}

// Running reports whether the network side is active.
func (r *Receiver) Running() bool {
	r.muRunning.Lock()
	defer r.muRunning.Unlock()
	return r.running
}

// Addr returns the listener's bound address, or nil if not running. Tests
// bind Config.Port to 0 and use this to discover the OS-assigned port.
func (r *Receiver) Addr() net.Addr {
	r.muRunning.Lock()
	defer r.muRunning.Unlock()
	if !r.running || r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Start binds the listener and launches the accept and coordinator
// goroutines. Calling Start while already running is a no-op.
func (r *Receiver) Start() error {
	r.muRunning.Lock()
	defer r.muRunning.Unlock()
	if r.running {
		return nil
	}

	lc := net.ListenConfig{Control: controlReuseAddrPort}
	ln, err := lc.Listen(context.Background(), "tcp4", fmt.Sprintf(":%d", r.cfg.Port))
	if err != nil {
		return fmt.Errorf("receiver: listen: %w", err)
	}

	r.listener = ln
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true
	r.fatalMarker = ""

	r.wg.Add(2)
	go r.acceptLoop()
	go r.coordinatorLoop()
	return nil
}

// Stop idempotently tears down the listener, every connection, and waits
// for all goroutines to exit.
func (r *Receiver) Stop() {
	r.muRunning.Lock()
	if !r.running {
		r.muRunning.Unlock()
		return
	}
	r.running = false
	fatal := r.fatalMarker
	r.muRunning.Unlock()

	r.teardown()
	if fatal != "" {
		r.muMsgQueue.Lock()
		r.activeOutbox = append(r.activeOutbox, proto.RawMessage{Protocol: proto.SimpleText, Data: fatal, Timestamp: time.Now()})
		r.muMsgQueue.Unlock()
	}
	r.wg.Wait()
}

func (r *Receiver) teardown() {
	r.cancel()
	if r.listener != nil {
		r.listener.Close()
	}
	r.muDescriptors.Lock()
	for _, d := range r.descriptors {
		d.conn.Close()
	}
	r.descriptors = nil
	r.activeIdx = -1
	r.pendingActiveName = ""
	r.pendingActiveAtNextMessage = false
	r.muDescriptors.Unlock()
}

// handleFatal records a fatal listener failure and tears the receiver
// down, per §7's fatal-listener-failure taxonomy entry. It must never be
// called from a goroutine that Stop's wg.Wait would block on without
// first returning, so it does not itself wait on r.wg.
func (r *Receiver) handleFatal(err error) {
	r.muRunning.Lock()
	if !r.running {
		r.muRunning.Unlock()
		return
	}
	r.running = false
	r.fatalMarker = "listener failure: " + err.Error()
	r.muRunning.Unlock()

	logs.Logf("[receiver] fatal listener error: %v", err)
	r.teardown()

	r.muMsgQueue.Lock()
	r.activeOutbox = append(r.activeOutbox, proto.RawMessage{Protocol: proto.SimpleText, Data: r.fatalMarker, Timestamp: time.Now()})
	r.muMsgQueue.Unlock()
}

func (r *Receiver) acceptLoop() {
	defer r.wg.Done()
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			select {
			case <-r.ctx.Done():
				return
			default:
			}
			r.handleFatal(err)
			return
		}
		r.handleAccept(conn)
	}
}

func (r *Receiver) handleAccept(conn net.Conn) {
	r.muDescriptors.Lock()
	if len(r.descriptors) >= r.cfg.MaxDescriptors-1 {
		r.muDescriptors.Unlock()
		conn.Close()
		return
	}
	name := uniqueNameFor(conn, r.descriptors)
	d := &descriptorInfo{name: name, conn: conn}
	r.descriptors = append(r.descriptors, d)
	if r.activeIdx < 0 && r.pendingActiveName == "" {
		r.pendingActiveAtNextMessage = true
	}
	r.muDescriptors.Unlock()

	logs.LogV("[receiver] accepted %s", name)
	r.wg.Add(1)
	go r.readLoop(d)
}

func (r *Receiver) readLoop(d *descriptorInfo) {
	defer r.wg.Done()
	buf := make([]byte, 4096)
	for {
		select {
		case <-r.ctx.Done():
			r.closeConnection(d.name, "")
			return
		default:
		}
		d.conn.SetReadDeadline(time.Now().Add(readDeadlineStep))
		n, err := d.conn.Read(buf)
		if n > 0 {
			r.ingest(d.name, buf[:n])
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				r.closeConnection(d.name, "")
			} else {
				r.closeConnection(d.name, err.Error())
			}
			return
		}
	}
}

func (r *Receiver) coordinatorLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(coordinatorTick)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.performPendingSwitch()
			r.flushWrites()
		}
	}
}

// flushWrites drains every descriptor's pending-write queue with a
// non-blocking send; a send error discards the rest of that descriptor's
// queue, per §7's send-failure taxonomy entry.
func (r *Receiver) flushWrites() {
	r.muDescriptors.Lock()
	defer r.muDescriptors.Unlock()
	for _, d := range r.descriptors {
		if len(d.outbound) == 0 {
			continue
		}
		pending := d.outbound
		d.outbound = nil
		for _, chunk := range pending {
			d.conn.SetWriteDeadline(time.Now().Add(writeDeadlineStep))
			if _, err := d.conn.Write(chunk); err != nil {
				break
			}
		}
	}
}

func (r *Receiver) indexByNameLocked(name string) int {
	for i, d := range r.descriptors {
		if d.name == name {
			return i
		}
	}
	return -1
}

func (r *Receiver) recomputeAnyEchoLocked() {
	any := false
	for _, d := range r.descriptors {
		if d.echoEnabled {
			any = true
			break
		}
	}
	r.muReport.Lock()
	r.anyEchoRequested = any
	r.muReport.Unlock()
}

// closeConnection removes name from the descriptor table, compacting it,
// and closes its socket. Per §4.6, if the closed descriptor was active,
// the active index is cleared; survivors keep their identity.
func (r *Receiver) closeConnection(name, errMsg string) {
	r.muDescriptors.Lock()
	idx := r.indexByNameLocked(name)
	if idx < 0 {
		r.muDescriptors.Unlock()
		return
	}
	d := r.descriptors[idx]
	d.conn.Close()
	r.descriptors = append(r.descriptors[:idx], r.descriptors[idx+1:]...)
	switch {
	case r.activeIdx == idx:
		r.activeIdx = -1
	case r.activeIdx > idx:
		r.activeIdx--
	}
	r.recomputeAnyEchoLocked()
	r.muDescriptors.Unlock()

	if errMsg != "" {
		logs.Logf("[receiver] connection %s closed: %s", name, errMsg)
	} else {
		logs.LogV("[receiver] connection %s closed", name)
	}
}

// ingest appends chunk to name's unprocessed buffer, extracts and
// classifies every complete line, and routes the resulting messages per
// §4.6's per-descriptor event-processing algorithm. It acquires
// mtxMsgQueue then mtxDescriptors, the only ordering in which more than
// one lock may be held by a single caller.
func (r *Receiver) ingest(name string, chunk []byte) {
	r.muMsgQueue.Lock()
	defer r.muMsgQueue.Unlock()
	r.muDescriptors.Lock()
	defer r.muDescriptors.Unlock()

	idx := r.indexByNameLocked(name)
	if idx < 0 {
		return
	}
	d := r.descriptors[idx]
	d.buf = append(d.buf, chunk...)
	for _, line := range extractLines(&d.buf) {
		msg := classify(line, time.Now())
		if msg.Protocol == proto.Unknown {
			logs.LogV("[receiver] dropped unrecognized line from %s: %s", name, proto.HexEscape(line))
			if r.cfg.ClearOnUnrecognized {
				d.inbound = append(d.inbound, proto.Clear(time.Now()))
			}
			continue
		}
		d.inbound = append(d.inbound, msg)
	}

	if r.pendingActiveAtNextMessage && hasDisplayable(d.inbound) {
		r.activeIdx = idx
		r.pendingActiveAtNextMessage = false
		r.activeOutbox = append(r.activeOutbox, proto.Clear(time.Now()))
	}

	if r.activeIdx != idx {
		r.executeCommandsLocked(d)
		collapseToLastDisplayable(d)
		return
	}
	r.drainToActiveLocked(d)
}

func hasDisplayable(q []proto.RawMessage) bool {
	for _, m := range q {
		if m.IsDisplayable() {
			return true
		}
	}
	return false
}

// executeCommandsLocked runs every COMMAND entry in d.inbound in place and
// removes them, leaving only displayable entries.
func (r *Receiver) executeCommandsLocked(d *descriptorInfo) {
	kept := d.inbound[:0]
	for _, m := range d.inbound {
		if m.Protocol == proto.Command {
			r.execCommandLocked(d, m.Data)
			continue
		}
		kept = append(kept, m)
	}
	d.inbound = kept
}

// collapseToLastDisplayable trims an inactive descriptor's inbound queue
// to at most its most recent message, so reactivating the source later
// has sane, bounded restoration behavior.
func collapseToLastDisplayable(d *descriptorInfo) {
	if len(d.inbound) <= 1 {
		return
	}
	d.inbound = d.inbound[len(d.inbound)-1:]
}

// drainToActiveLocked forwards every displayable entry in d.inbound to
// the active outbox, executing any COMMAND entries in place without
// forwarding them, per §4.6.
func (r *Receiver) drainToActiveLocked(d *descriptorInfo) {
	for _, m := range d.inbound {
		if m.Protocol == proto.Command {
			r.execCommandLocked(d, m.Data)
			continue
		}
		r.activeOutbox = append(r.activeOutbox, m)
		r.lastDisplayedForActive = m
		r.lastDisplayedSet = true
	}
	d.inbound = nil
}

// performPendingSwitch applies a pending RequestActiveClient request, if
// any, under the full msgQueue -> descriptors lock order; this is step 1
// of the spec's main network loop, run once per coordinator tick.
func (r *Receiver) performPendingSwitch() {
	r.muMsgQueue.Lock()
	r.muDescriptors.Lock()
	if r.pendingActiveName != "" {
		r.switchActiveLocked(r.pendingActiveName)
	}
	r.muDescriptors.Unlock()
	r.muMsgQueue.Unlock()
}

func (r *Receiver) switchActiveLocked(name string) {
	newIdx := r.indexByNameLocked(name)
	r.pendingActiveName = ""
	if newIdx < 0 || newIdx == r.activeIdx {
		return
	}

	if r.activeIdx >= 0 {
		old := r.descriptors[r.activeIdx]
		switch {
		case len(r.activeOutbox) > 0:
			old.inbound = append(old.inbound, r.activeOutbox...)
		case r.lastDisplayedSet:
			old.inbound = append(old.inbound, r.lastDisplayedForActive)
		}
	}

	r.activeOutbox = r.activeOutbox[:0]
	r.activeIdx = newIdx
	r.pendingActiveAtNextMessage = false

	newD := r.descriptors[newIdx]
	r.activeOutbox = append(r.activeOutbox, proto.Clear(time.Now()))
	for _, m := range newD.inbound {
		if m.Protocol == proto.Command {
			continue
		}
		r.activeOutbox = append(r.activeOutbox, m)
		r.lastDisplayedForActive = m
		r.lastDisplayedSet = true
	}
	newD.inbound = nil
}

// HasPendingMessage reports whether the active outbox has a message ready
// for the render side to pop.
func (r *Receiver) HasPendingMessage() bool {
	r.muMsgQueue.Lock()
	defer r.muMsgQueue.Unlock()
	return len(r.activeOutbox) > 0
}

// PopPendingMessage removes and returns the oldest queued active message,
// if any. COMMAND messages are never observed here (invariant 8): they
// are always executed in place before reaching the outbox.
func (r *Receiver) PopPendingMessage() (proto.RawMessage, bool) {
	r.muMsgQueue.Lock()
	defer r.muMsgQueue.Unlock()
	if len(r.activeOutbox) == 0 {
		return proto.RawMessage{}, false
	}
	m := r.activeOutbox[0]
	r.activeOutbox = r.activeOutbox[1:]
	return m, true
}

// NoActiveSourceOrPending reports whether the render side should show
// disconnect markers: no client is connected at all, or no client is
// active and none is about to become active on its next message.
func (r *Receiver) NoActiveSourceOrPending() bool {
	r.muDescriptors.Lock()
	defer r.muDescriptors.Unlock()
	return len(r.descriptors) == 0 || (r.activeIdx < 0 && !r.pendingActiveAtNextMessage)
}

// ClientSummary snapshots the connected-client roster and active name.
func (r *Receiver) ClientSummary() ClientSummary {
	r.muDescriptors.Lock()
	defer r.muDescriptors.Unlock()
	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.name
	}
	active := ""
	if r.activeIdx >= 0 {
		active = r.descriptors[r.activeIdx].name
	}
	return ClientSummary{Names: names, ActiveName: active}
}

// RequestActiveClient records name as the client that should become
// active on the next coordinator tick, clearing any auto-promotion.
func (r *Receiver) RequestActiveClient(name string) {
	r.muDescriptors.Lock()
	defer r.muDescriptors.Unlock()
	r.pendingActiveName = name
	r.pendingActiveAtNextMessage = false
}

// ReportDisplayed tells the Receiver what the render side actually drew,
// so that '&'-triggered echo-enable replies and live echo streaming have
// something current to send. Only the render side calls this; it never
// interleaves with the network side's writes to the same descriptor
// queues because both paths take mtxDescriptors.
func (r *Receiver) ReportDisplayed(order wire.TextOrder) {
	encoded, ok := wire.Encode(order)
	if !ok {
		return
	}

	r.muReport.Lock()
	anyEcho := r.anyEchoRequested
	r.muReport.Unlock()

	r.muDescriptors.Lock()
	r.lastReportedWire = encoded
	if anyEcho {
		payload := []byte("=" + encoded)
		for _, d := range r.descriptors {
			if d.echoEnabled {
				d.outbound = append(d.outbound, payload)
			}
		}
	}
	r.muDescriptors.Unlock()
}

// LocalAddresses does a best-effort enumeration of the host's addresses
// for an operator to locate the scoreboard on the network.
func (r *Receiver) LocalAddresses() []string {
	return network.LocalAddresses()
}
