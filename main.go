// Command scoreboard is the render-thread bootstrap described in spec
// §4.8: it parses the CLI, brings up the Canvas/Displayer, starts the
// Receiver's network side, and drives the main render loop that pops
// messages from the active outbox, formats them, and steps the Displayer.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scoreboard/conf"
	"scoreboard/display"
	"scoreboard/display/termcanvas"
	"scoreboard/formatter"
	"scoreboard/logs"
	"scoreboard/network"
	"scoreboard/receiver"
	"scoreboard/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[scoreboard] %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	opts, err := conf.ParseCLI(os.Args[1:])
	if err != nil {
		return err
	}

	logWriter, closeLog, logPath, logErr := initLogSink()
	if closeLog != nil {
		defer closeLog()
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if logErr == nil {
		log.SetOutput(io.MultiWriter(os.Stderr, logWriter))
		logs.Logf("[scoreboard] logs: %s", logPath)
	} else {
		fmt.Fprintf(os.Stderr, "[scoreboard] log file disabled (%v)\n", logErr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	restoreScreen := termcanvas.EnterAltScreen(os.Stdout)
	defer restoreScreen()

	width := opts.Canvas.Cols * opts.Canvas.Chain
	height := opts.Canvas.Rows * opts.Canvas.Parallel
	if width <= 0 {
		width = 32
	}
	if height <= 0 {
		height = 32
	}
	canvas := termcanvas.New(os.Stdout, width, height, 100)

	idleColor := wire.Color{R: 0, G: 255, B: 0}
	disconnectColor := wire.Color{R: 255, G: 0, B: 0}
	displayer := display.NewDisplayer(canvas, idleColor, disconnectColor)

	fontIdx, ok := wire.RegisterFont(wire.NewSpacedFont(nil, opts.LetterSpacing))
	if !ok {
		return fmt.Errorf("scoreboard: font registry exhausted")
	}
	spacedFont, _ := wire.FontAt(fontIdx)

	template := wire.NewTextOrder().
		WithFont(spacedFont).
		WithColors(opts.FgColor, opts.BgColor).
		WithVelocity(opts.Speed).
		WithAxis(opts.Axis).
		WithScrollType(opts.ScrollType).
		WithOrigin(opts.X, opts.Y)
	if opts.HasOutline {
		template = template.WithOutline(opts.OutlineColor)
	}
	if opts.BlinkOnMs > 0 || opts.BlinkOffMs > 0 {
		template = template.WithBlink(opts.BlinkOnMs, opts.BlinkOffMs)
	}

	// The vendor protocol's timing feed forces velocity to zero on
	// fixed-time displays (§4.3); the CLI's own static/scrolling banner
	// keeps whatever speed the operator asked for.
	fmtr := formatter.New(template, true)

	rcv := receiver.New(receiver.Config{Port: opts.Port, ClearOnUnrecognized: true})
	if err := rcv.Start(); err != nil {
		return fmt.Errorf("scoreboard: %w", err)
	}
	defer rcv.Stop()

	for _, addr := range rcv.LocalAddresses() {
		logs.Logf("[net] listening on %s", network.PrettyAddr(addr, opts.Port))
	}

	if opts.InitialText != "" {
		displayer.StartOrder(template.WithText(opts.InitialText))
	}

	runRenderLoop(ctx, rcv, fmtr, displayer)
	return nil
}

// runRenderLoop is the render (main) thread's cooperative loop per §5:
// it never blocks longer than the frame pacing inside Displayer.Step,
// and idles at 15ms (or ~3s when no source is active or about to become
// active and the display has nothing left to scroll) when there is no
// work to do.
func runRenderLoop(ctx context.Context, rcv *receiver.Receiver, fmtr *formatter.Formatter, d *display.Displayer) {
	const (
		busyIdle  = 15 * time.Millisecond
		quietIdle = 3 * time.Second
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		d.SetDisconnect(rcv.NoActiveSourceOrPending())

		if msg, ok := rcv.PopPendingMessage(); ok {
			order, ok := fmtr.Format(msg)
			if ok {
				d.StartOrder(order)
				rcv.ReportDisplayed(order)
			}
			d.Step()
			continue
		}

		if d.IsAnimating() {
			d.Step()
			continue
		}

		d.Step()

		if rcv.NoActiveSourceOrPending() {
			sleepOrDone(ctx, quietIdle)
		} else {
			sleepOrDone(ctx, busyIdle)
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func initLogSink() (*logs.RotatingFile, func() error, string, error) {
	logPath := "scoreboard.log"
	rf, err := logs.OpenRotatingFile(logPath, logs.DefaultMaxBytes)
	if err != nil {
		return nil, nil, logPath, err
	}
	return rf, rf.Close, logPath, nil
}
