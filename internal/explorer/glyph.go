package explorer

import (
	"strings"

	"github.com/codefionn/fileexplorer/internal/bridge"
)

// Display glyphs
const (
	GlyphUp        = "⬆️"
	GlyphDirectory = "📁"
	GlyphNote      = "📝"
	GlyphTool      = "🔧"
	GlyphChart     = "📊"
	GlyphImage     = "🖼️"
	GlyphDocument  = "📄"
)

// extensionGlyphs is checked in order; the first matching suffix wins.
var extensionGlyphs = []struct {
	suffix string
	glyph  string
}{
	{".md", GlyphNote},
	{".json", GlyphTool},
	{".csv", GlyphChart},
	{".png", GlyphImage},
	{".jpg", GlyphImage},
}

// GlyphFor picks the glyph for an entry. Suffix matching is case-sensitive.
func GlyphFor(name, entryType string) string {
	if entryType == bridge.EntryDirectory {
		return GlyphDirectory
	}
	for _, eg := range extensionGlyphs {
		if strings.HasSuffix(name, eg.suffix) {
			return eg.glyph
		}
	}
	return GlyphDocument
}
