// Package unirange classifies a font's code-point repertoire and partitions
// it into size-bounded subsets suitable for unicode-range based delivery.
package unirange

import (
	"sort"
	"unicode"
)

// Class labels a code point as either renderable or not.
type Class int

// The two classification outcomes. Every code point of a repertoire belongs
// to exactly one of them.
const (
	Visible Class = iota
	Invisible
)

// String returns the class name used in generated file names.
func (c Class) String() string {
	if c == Invisible {
		return "invis"
	}
	return "vis"
}

// Classify splits a repertoire into visible and invisible code points.
// Control, format, surrogate, private-use and unassigned code points are
// invisible; everything else is visible. Both result slices are sorted
// in ascending order and duplicate free.
func Classify(repertoire []rune) (visible, invisible []rune) {
	seen := make(map[rune]struct{}, len(repertoire))
	for _, cp := range repertoire {
		if _, ok := seen[cp]; ok {
			continue
		}
		seen[cp] = struct{}{}

		if IsInvisible(cp) {
			invisible = append(invisible, cp)
		} else {
			visible = append(visible, cp)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i] < visible[j] })
	sort.Slice(invisible, func(i, j int) bool { return invisible[i] < invisible[j] })

	return visible, invisible
}

// IsInvisible reports whether a code point carries no renderable glyph
// semantics. The unicode package range tables act as the versioned
// classification data: IsGraphic covers the L, M, N, P, S and Zs categories,
// which leaves the Cc, Cf, Cs, Co and Cn categories together with the line
// and paragraph separators on the invisible side.
func IsInvisible(cp rune) bool {
	if cp < 0 || cp > unicode.MaxRune {
		return true
	}
	return !unicode.IsGraphic(cp)
}
