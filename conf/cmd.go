// Package conf parses the scoreboard's flat, getopt-style command line into
// a typed AppOptions value, named after the teacher's own conf.AppOptions /
// conf.ParseCLI shape but with a much smaller flag surface.
package conf

import (
	"flag"
	"fmt"
	"strings"

	"scoreboard/network"
	"scoreboard/wire"
)

// Verbose gates logs.LogV, exactly as the teacher's conf.Verbose gates
// logs.LogV in the teacher repo.
var Verbose bool

// CanvasOptions carries the hardware pixel-plane parameters the CLI accepts
// on behalf of the out-of-scope Canvas driver (chain length, GPIO mapping,
// panel geometry). The scoreboard core never interprets these fields
// itself; it only forwards them to whatever constructs the real Canvas.
type CanvasOptions struct {
	Rows            int
	Cols            int
	Chain           int
	Parallel        int
	GPIOSlowdown    int
	HardwareMapping string
}

// AppOptions is the fully parsed CLI surface for the render-thread
// bootstrap (§4.8).
type AppOptions struct {
	Speed         float64
	X, Y          int
	FontFile      string
	LetterSpacing int
	Axis          wire.Axis
	ScrollType    wire.ScrollType

	FgColor      wire.Color
	BgColor      wire.Color
	OutlineColor wire.Color
	HasOutline   bool

	BlinkOnMs  int
	BlinkOffMs int

	Port int

	Quick   bool
	Verbose bool

	InitialText string

	Canvas CanvasOptions
}

// defaultAppOptions mirrors the DATA MODEL table's defaults: empty text,
// static SINGLE_ONOFF display, horizontal axis, default port.
func defaultAppOptions() *AppOptions {
	return &AppOptions{
		Speed:      0,
		X:          0,
		Y:          0,
		Axis:       wire.Horizontal,
		ScrollType: wire.SingleOnOff,
		FgColor:    wire.Color{R: 255, G: 255, B: 255},
		BgColor:    wire.Color{R: 0, G: 0, B: 0},
		Port:       network.DefaultListenPort,
		Canvas: CanvasOptions{
			Rows:     32,
			Cols:     32,
			Chain:    1,
			Parallel: 1,
		},
	}
}

// ParseCLI parses args (excluding the program name) into an AppOptions.
// Positional arguments after the flags become the initial displayed
// string (space-joined).
func ParseCLI(args []string) (*AppOptions, error) {
	opts := defaultAppOptions()

	fs := flag.NewFlagSet("scoreboard", flag.ContinueOnError)
	var fgStr, bgStr, outlineStr, blinkStr, axisFlag, scrollFlag string

	fs.Float64Var(&opts.Speed, "s", opts.Speed, "scroll speed, characters per second (sign = direction)")
	fs.IntVar(&opts.X, "x", opts.X, "initial x origin")
	fs.IntVar(&opts.Y, "y", opts.Y, "initial y origin")
	fs.StringVar(&opts.FontFile, "f", "", "bitmap font file (loaded by the external font driver)")
	fs.IntVar(&opts.LetterSpacing, "t", opts.LetterSpacing, "letter spacing, pixels")
	fs.StringVar(&axisFlag, "v", "0", "axis: 0 = horizontal, 1 = vertical")
	fs.StringVar(&scrollFlag, "i", "2", "scroll type: 0=CONTINUOUS, 1=SINGLE_ON, 2=SINGLE_ONOFF")
	fs.StringVar(&fgStr, "C", "", "foreground color r,g,b")
	fs.StringVar(&bgStr, "B", "", "background color r,g,b")
	fs.StringVar(&outlineStr, "O", "", "outline color r,g,b")
	fs.StringVar(&blinkStr, "k", "", "blink on,off milliseconds")
	fs.IntVar(&opts.Port, "p", opts.Port, "TCP listen port")
	fs.BoolVar(&opts.Quick, "Q", false, "quick preset: 16x32 panels, chain 3, adafruit-hat-pwm, static red text")
	fs.BoolVar(&opts.Verbose, "V", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := applyAxisFlag(opts, axisFlag); err != nil {
		return nil, err
	}
	if err := applyScrollFlag(opts, scrollFlag); err != nil {
		return nil, err
	}
	if fgStr != "" {
		c, err := wire.ParseColorTriplet(fgStr)
		if err != nil {
			return nil, fmt.Errorf("conf: -C: %w", err)
		}
		opts.FgColor = c
	}
	if bgStr != "" {
		c, err := wire.ParseColorTriplet(bgStr)
		if err != nil {
			return nil, fmt.Errorf("conf: -B: %w", err)
		}
		opts.BgColor = c
	}
	if outlineStr != "" {
		c, err := wire.ParseColorTriplet(outlineStr)
		if err != nil {
			return nil, fmt.Errorf("conf: -O: %w", err)
		}
		opts.OutlineColor, opts.HasOutline = c, true
	}
	if blinkStr != "" {
		on, off, err := parseBlinkPair(blinkStr)
		if err != nil {
			return nil, fmt.Errorf("conf: -k: %w", err)
		}
		opts.BlinkOnMs, opts.BlinkOffMs = on, off
	}
	if opts.Port < 1 || opts.Port > 65535 {
		return nil, fmt.Errorf("conf: port %d out of range", opts.Port)
	}

	if opts.Quick {
		applyQuickPreset(opts)
	}

	opts.InitialText = strings.Join(fs.Args(), " ")
	Verbose = opts.Verbose
	return opts, nil
}

// applyAxisFlag resolves -v per the spec's resolved reading: "-v 0" =
// horizontal, "-v 1" = vertical (§9 resolved open question).
func applyAxisFlag(opts *AppOptions, s string) error {
	switch s {
	case "0":
		opts.Axis = wire.Horizontal
	case "1":
		opts.Axis = wire.Vertical
	default:
		return fmt.Errorf("conf: -v: want 0 or 1, got %q", s)
	}
	return nil
}

func applyScrollFlag(opts *AppOptions, s string) error {
	switch s {
	case "0":
		opts.ScrollType = wire.Continuous
	case "1":
		opts.ScrollType = wire.SingleOn
	case "2":
		opts.ScrollType = wire.SingleOnOff
	default:
		return fmt.Errorf("conf: -i: want 0, 1 or 2, got %q", s)
	}
	return nil
}

func parseBlinkPair(s string) (int, int, error) {
	var on, off int
	n, err := fmt.Sscanf(s, "%d,%d", &on, &off)
	if err != nil || n != 2 {
		return 0, 0, fmt.Errorf("want on,off milliseconds, got %q", s)
	}
	return on, off, nil
}

// applyQuickPreset applies the -Q shortcut exactly as described in §6 and
// grounded on original_source's led-timer-display.cc -Q block: 16x32
// panels, chain 3, adafruit-hat-pwm, red text, letter spacing -1,
// y-origin -2, static (speed 0) display.
func applyQuickPreset(opts *AppOptions) {
	opts.Canvas = CanvasOptions{
		Rows:            16,
		Cols:            32,
		Chain:           3,
		Parallel:        1,
		GPIOSlowdown:    2,
		HardwareMapping: "adafruit-hat-pwm",
	}
	opts.FgColor = wire.Color{R: 255, G: 0, B: 0}
	opts.LetterSpacing = -1
	opts.Y = -2
	opts.Speed = 0
}
