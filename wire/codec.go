package wire

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	formattedTextPrefix = "~+/"
	textSep             = '='
	eol                 = '\r'
)

// Encode renders o as a FORMATTED_TEXT wire message, registering o.Font in
// the process font registry if it is not already present. It returns
// false if the registry is full and o.Font could not be assigned a slot.
func Encode(o TextOrder) (string, bool) {
	idx, ok := RegisterFont(o.Font)
	if !ok {
		return "", false
	}

	var b strings.Builder
	b.WriteString(formattedTextPrefix)
	fmt.Fprintf(&b, "!%d", idx)
	fmt.Fprintf(&b, "F%s", o.FgColor.hex())
	fmt.Fprintf(&b, "B%s", o.BgColor.hex())
	if o.HasOutline {
		fmt.Fprintf(&b, "O%s", o.OutlineColor.hex())
	}
	b.WriteString(encodeVelocity(o.Velocity))
	if o.Axis == Horizontal {
		b.WriteString("D1")
	} else {
		b.WriteString("D0")
	}
	fmt.Fprintf(&b, "S%d", int(o.ScrollType))
	if o.HasBlink() {
		fmt.Fprintf(&b, "K%d,%d", o.BlinkOnMillis, o.BlinkOffMillis)
	}
	b.WriteByte(textSep)
	b.WriteString(o.Text)
	b.WriteByte(eol)
	return b.String(), true
}

func encodeVelocity(v float64) string {
	sign := byte('+')
	mag := v
	if mag < 0 {
		sign = '-'
		mag = -mag
	}
	if mag > 99.9 {
		mag = 99.9
	}
	return fmt.Sprintf("V%c%04.1f", sign, mag)
}

// Decode parses a FORMATTED_TEXT wire message (without requiring the
// trailing CR, which the line extractor has already stripped) into a
// TextOrder. Per the wire grammar, an unrecognized token or a malformed
// known token invalidates the whole message; Decode returns ok=false in
// either case.
func Decode(line string) (TextOrder, bool) {
	if !strings.HasPrefix(line, formattedTextPrefix) {
		return TextOrder{}, false
	}
	rest := line[len(formattedTextPrefix):]
	sepIdx := strings.IndexByte(rest, textSep)
	if sepIdx < 0 {
		return TextOrder{}, false
	}
	tokens, text := rest[:sepIdx], rest[sepIdx+1:]

	o := NewTextOrder()
	for len(tokens) > 0 {
		code := tokens[0]
		tokens = tokens[1:]
		var consumed int
		var ok bool
		switch code {
		case '!':
			consumed, ok = decodeFontToken(tokens, &o)
		case 'F':
			consumed, ok = decodeColorToken(tokens, &o.FgColor)
		case 'B':
			consumed, ok = decodeColorToken(tokens, &o.BgColor)
		case 'O':
			var c Color
			consumed, ok = decodeColorToken(tokens, &c)
			if ok {
				o.OutlineColor, o.HasOutline = c, true
			}
		case 'V':
			consumed, ok = decodeVelocityToken(tokens, &o.Velocity)
		case 'D':
			consumed, ok = decodeAxisToken(tokens, &o.Axis)
		case 'S':
			consumed, ok = decodeScrollTypeToken(tokens, &o.ScrollType)
		case 'K':
			consumed, ok = decodeBlinkToken(tokens, &o)
		default:
			return TextOrder{}, false
		}
		if !ok {
			return TextOrder{}, false
		}
		tokens = tokens[consumed:]
	}
	o.Text = sanitizeText(text)
	return o, true
}

func decodeFontToken(s string, o *TextOrder) (int, bool) {
	if len(s) < 1 {
		return 0, false
	}
	d, err := strconv.Atoi(s[:1])
	if err != nil || d < 0 || d > 9 {
		return 0, false
	}
	sf, ok := FontAt(d)
	if !ok {
		return 0, false
	}
	o.Font = sf
	return 1, true
}

func decodeColorToken(s string, c *Color) (int, bool) {
	if len(s) < 6 {
		return 0, false
	}
	parsed, ok := parseColorHex(s[:6])
	if !ok {
		return 0, false
	}
	*c = parsed
	return 6, true
}

func decodeVelocityToken(s string, v *float64) (int, bool) {
	if len(s) < 5 {
		return 0, false
	}
	sign := s[0]
	if sign != '+' && sign != '-' {
		return 0, false
	}
	mag, err := strconv.ParseFloat(s[1:5], 64)
	if err != nil {
		return 0, false
	}
	if sign == '-' {
		mag = -mag
	}
	*v = mag
	return 5, true
}

func decodeAxisToken(s string, a *Axis) (int, bool) {
	if len(s) < 1 {
		return 0, false
	}
	switch s[0] {
	case '1':
		*a = Horizontal
	case '0':
		*a = Vertical
	default:
		return 0, false
	}
	return 1, true
}

func decodeScrollTypeType(b byte) (ScrollType, bool) {
	switch b {
	case '0':
		return Continuous, true
	case '1':
		return SingleOn, true
	case '2':
		return SingleOnOff, true
	default:
		return 0, false
	}
}

func decodeScrollTypeToken(s string, st *ScrollType) (int, bool) {
	if len(s) < 1 {
		return 0, false
	}
	v, ok := decodeScrollTypeType(s[0])
	if !ok {
		return 0, false
	}
	*st = v
	return 1, true
}

// decodeBlinkToken parses "K<on>,<off>", consuming digits up through the
// comma and the trailing off-duration digits.
func decodeBlinkToken(s string, o *TextOrder) (int, bool) {
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return 0, false
	}
	onStr := s[:comma]
	rest := s[comma+1:]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 || onStr == "" {
		return 0, false
	}
	on, err1 := strconv.Atoi(onStr)
	off, err2 := strconv.Atoi(rest[:end])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	o.BlinkOnMillis, o.BlinkOffMillis = on, off
	return comma + 1 + end, true
}
