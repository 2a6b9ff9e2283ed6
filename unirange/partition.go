package unirange

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Strategy selects how a classified repertoire is grouped into subsets.
type Strategy int

// The supported partitioning strategies.
const (
	// StrategyAuto keeps naturally contiguous runs of the common Latin and
	// Han blocks together and falls back to By256 for everything else.
	StrategyAuto Strategy = iota
	// StrategyNone emits a single subset per class.
	StrategyNone
	// StrategyBy256 slices each class into windows of at most 256 members.
	StrategyBy256
)

// Partitioning bounds used by the auto strategy.
const (
	// MaxChunkSize is the default hard inclusive ceiling on the member
	// count of an auto subset.
	MaxChunkSize = 300
	// MinMergeSize is the default preferred lower bound; adjacent small
	// runs are merged until they reach it, as far as the ceiling allows.
	MinMergeSize = 128

	// by256Window is the member count of a By256 slice.
	by256Window = 256
)

// ErrInvalidStrategy is returned for an empty repertoire, an unknown
// strategy name or conflicting size bounds.
var ErrInvalidStrategy = errors.New("unirange: invalid strategy input")

// ParseStrategy converts a CLI strategy name to a Strategy value.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "auto":
		return StrategyAuto, nil
	case "none":
		return StrategyNone, nil
	case "by-256":
		return StrategyBy256, nil
	}
	return 0, fmt.Errorf("%w: unknown strategy %q", ErrInvalidStrategy, name)
}

// String returns the CLI name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyBy256:
		return "by-256"
	}
	return "auto"
}

// Subset is one deliverable group of code points. A subset never mixes
// visible and invisible code points.
type Subset struct {
	Class      Class
	CodePoints []rune // sorted ascending
}

// Range returns the lowest and highest code point of the subset.
func (s Subset) Range() (lo, hi rune) {
	return s.CodePoints[0], s.CodePoints[len(s.CodePoints)-1]
}

// Label returns a stable identifier used in generated file names.
func (s Subset) Label() string {
	lo, hi := s.Range()
	return fmt.Sprintf("%s-u%04X-%04X", s.Class, lo, hi)
}

// CSSRange renders the subset coverage as a CSS unicode-range value,
// collapsing consecutive code points into start-end spans.
func (s Subset) CSSRange() string {
	var parts []string
	cps := s.CodePoints
	for i := 0; i < len(cps); {
		j := i
		for j+1 < len(cps) && cps[j+1] == cps[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, fmt.Sprintf("U+%04X", cps[i]))
		} else {
			parts = append(parts, fmt.Sprintf("U+%04X-%04X", cps[i], cps[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}

// Plan is the ordered chunk plan consumed by the font subsetter. Subsets
// partition the classified repertoire: each code point of the input belongs
// to exactly one subset.
type Plan []Subset

// Partition groups a repertoire into a chunk plan using the given strategy
// and the default size bounds.
func Partition(repertoire []rune, strategy Strategy) (Plan, error) {
	return PartitionSized(repertoire, strategy, MaxChunkSize, MinMergeSize)
}

// PartitionSized is Partition with explicit auto-strategy bounds: maxChunk
// is the hard member-count ceiling, minMerge the preferred lower bound the
// merge pass aims for. The plan lists visible subsets first, then invisible
// ones, each group in ascending code-point order. The result is
// deterministic for identical inputs.
func PartitionSized(repertoire []rune, strategy Strategy, maxChunk, minMerge int) (Plan, error) {
	if len(repertoire) == 0 {
		return nil, fmt.Errorf("%w: empty repertoire", ErrInvalidStrategy)
	}
	if maxChunk < 1 || minMerge < 1 || minMerge > maxChunk {
		return nil, fmt.Errorf("%w: bounds min=%d max=%d", ErrInvalidStrategy, minMerge, maxChunk)
	}
	visible, invisible := Classify(repertoire)

	var plan Plan
	switch strategy {
	case StrategyNone:
		if len(visible) > 0 {
			plan = append(plan, Subset{Class: Visible, CodePoints: visible})
		}
		if len(invisible) > 0 {
			plan = append(plan, Subset{Class: Invisible, CodePoints: invisible})
		}
	case StrategyBy256:
		plan = append(plan, chunkByCount(visible, Visible)...)
		plan = append(plan, chunkByCount(invisible, Invisible)...)
	case StrategyAuto:
		plan = append(plan, autoVisible(visible, maxChunk, minMerge)...)
		// Invisible code points never join the auto grouping; keeping them
		// on the fixed-window path enforces the no-mixing invariant.
		plan = append(plan, chunkByCount(invisible, Invisible)...)
	default:
		return nil, fmt.Errorf("%w: strategy %d", ErrInvalidStrategy, strategy)
	}
	return plan, nil
}

// chunkByCount slices a sorted code-point sequence into windows of at most
// by256Window members. The final window holds the division remainder.
func chunkByCount(cps []rune, class Class) []Subset {
	var subsets []Subset
	for len(cps) > 0 {
		n := by256Window
		if len(cps) < n {
			n = len(cps)
		}
		subsets = append(subsets, Subset{Class: class, CodePoints: cps[:n:n]})
		cps = cps[n:]
	}
	return subsets
}

// Common Latin blocks kept together by the auto strategy.
var latinBlocks = [][2]rune{
	{0x0020, 0x007E}, // ASCII printable
	{0x00A0, 0x00FF}, // Latin-1 Supplement
	{0x0100, 0x017F}, // Latin Extended-A
}

// Han ideograph blocks kept together by the auto strategy.
var hanBlocks = [][2]rune{
	{0x3400, 0x4DBF},   // CJK Extension A
	{0x4E00, 0x9FFF},   // CJK Unified Ideographs
	{0x20000, 0x2A6DF}, // Extension B
	{0x2A700, 0x2B73F}, // Extension C
	{0x2B740, 0x2B81F}, // Extension D
	{0x2B820, 0x2CEAF}, // Extension E
	{0x2CEB0, 0x2EBEF}, // Extension F
	{0x30000, 0x3134F}, // Extension G
}

func inBlocks(cp rune, blocks [][2]rune) bool {
	for _, b := range blocks {
		if cp >= b[0] && cp <= b[1] {
			return true
		}
	}
	return false
}

// autoVisible applies the two-tier auto rule to the visible class: the Latin
// and Han blocks are grouped by contiguous runs with a best-effort merge
// pass, the remaining scripts fall back to fixed-window chunking.
func autoVisible(visible []rune, maxChunk, minMerge int) []Subset {
	var latin, han, rest []rune
	for _, cp := range visible {
		switch {
		case inBlocks(cp, latinBlocks):
			latin = append(latin, cp)
		case inBlocks(cp, hanBlocks):
			han = append(han, cp)
		default:
			rest = append(rest, cp)
		}
	}

	var subsets []Subset
	subsets = append(subsets, mergeRuns(contiguousRuns(latin, maxChunk), maxChunk, minMerge)...)
	subsets = append(subsets, mergeRuns(contiguousRuns(han, maxChunk), maxChunk, minMerge)...)
	subsets = append(subsets, chunkByCount(rest, Visible)...)

	sort.SliceStable(subsets, func(i, j int) bool {
		return subsets[i].CodePoints[0] < subsets[j].CodePoints[0]
	})
	return subsets
}

// contiguousRuns splits a sorted code-point sequence into maximal gap-free
// runs, capping each run at maxChunk members.
func contiguousRuns(cps []rune, maxChunk int) [][]rune {
	var runs [][]rune
	var cur []rune
	for _, cp := range cps {
		if len(cur) > 0 && (cp != cur[len(cur)-1]+1 || len(cur) == maxChunk) {
			runs = append(runs, cur)
			cur = nil
		}
		cur = append(cur, cp)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// mergeRuns joins adjacent small runs in a single left-to-right pass.
// A run below minMerge absorbs its right neighbors while the merged size
// stays within maxChunk. Runs already at the ceiling are never touched,
// since absorbing anything would exceed it.
func mergeRuns(runs [][]rune, maxChunk, minMerge int) []Subset {
	var subsets []Subset
	for i := 0; i < len(runs); i++ {
		group := runs[i]
		for len(group) < minMerge && i+1 < len(runs) {
			next := runs[i+1]
			if len(group)+len(next) > maxChunk {
				break
			}
			group = append(group[:len(group):len(group)], next...)
			i++
		}
		subsets = append(subsets, Subset{Class: Visible, CodePoints: group})
	}
	return subsets
}
