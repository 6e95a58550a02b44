package explorer

import (
	"sort"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortEntries returns a sorted copy of entries: directories first, then
// files, each group ordered by name with locale-aware collation.
func SortEntries(entries []bridge.DirectoryEntry) []bridge.DirectoryEntry {
	sorted := make([]bridge.DirectoryEntry, len(entries))
	copy(sorted, entries)

	// A Collator keeps internal buffers, so each sort gets its own.
	c := collate.New(language.Und)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return c.CompareString(a.Name, b.Name) < 0
	})
	return sorted
}
