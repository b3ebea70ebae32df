package wire

import "sync"

// Font is the narrow capability the display owner needs from the bitmap
// font loader: glyph metrics and a stable identity used for registry
// deduplication. The loader itself (BDF parsing, glyph bitmaps) lives
// outside this module's scope.
type Font interface {
	// ID is a stable identity for the underlying glyph set, used so two
	// SpacedFont registrations of the same font/spacing compare equal.
	ID() string
	Baseline() int
	Height() int
	CharacterWidth(r rune) int
}

// defaultFont is the built-in fallback used whenever a SpacedFont is built
// with a nil handle, mirroring the "font handle non-null after construction"
// invariant without requiring every caller to supply one.
var defaultFont Font = builtinFont{}

// SpacedFont pairs a Font with the letter spacing to apply between glyphs.
type SpacedFont struct {
	Font          Font
	LetterSpacing int
}

// NewSpacedFont builds a SpacedFont, substituting the process default font
// when handle is nil.
func NewSpacedFont(handle Font, letterSpacing int) SpacedFont {
	if handle == nil {
		handle = defaultFont
	}
	return SpacedFont{Font: handle, LetterSpacing: letterSpacing}
}

// DefaultSpacedFont is the zero-configuration SpacedFont used by a default
// TextOrder.
func DefaultSpacedFont() SpacedFont {
	return NewSpacedFont(defaultFont, 0)
}

// registry is the process-wide, append-only font table referenced by
// FORMATTED_TEXT's !d token. It is bounded to 10 slots.
type registry struct {
	mu    sync.Mutex
	fonts [10]SpacedFont
	used  int
}

var fontRegistry registry

// RegisterFont appends sf to the process font registry, reusing an existing
// slot when one already holds an equal (font identity, letter spacing)
// pair, and returns its index. It fails once 10 distinct fonts have been
// registered.
func RegisterFont(sf SpacedFont) (int, bool) {
	fontRegistry.mu.Lock()
	defer fontRegistry.mu.Unlock()
	for i := 0; i < fontRegistry.used; i++ {
		if fontsEqual(fontRegistry.fonts[i], sf) {
			return i, true
		}
	}
	if fontRegistry.used >= len(fontRegistry.fonts) {
		return 0, false
	}
	idx := fontRegistry.used
	fontRegistry.fonts[idx] = sf
	fontRegistry.used++
	return idx, true
}

// FontAt returns the registered SpacedFont at idx, if any.
func FontAt(idx int) (SpacedFont, bool) {
	fontRegistry.mu.Lock()
	defer fontRegistry.mu.Unlock()
	if idx < 0 || idx >= fontRegistry.used {
		return SpacedFont{}, false
	}
	return fontRegistry.fonts[idx], true
}

func fontsEqual(a, b SpacedFont) bool {
	if a.LetterSpacing != b.LetterSpacing {
		return false
	}
	if a.Font == b.Font {
		return true
	}
	if a.Font == nil || b.Font == nil {
		return false
	}
	return a.Font.ID() == b.Font.ID()
}

// builtinFont is a minimal stand-in metrics table used only when no real
// Font capability has been wired in, e.g. in tests that exercise TextOrder
// logic without a live Canvas/Font pair.
type builtinFont struct{}

func (builtinFont) ID() string             { return "builtin-10x20" }
func (builtinFont) Baseline() int          { return 15 }
func (builtinFont) Height() int            { return 20 }
func (builtinFont) CharacterWidth(rune) int { return 10 }
