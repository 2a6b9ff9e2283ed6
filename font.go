package optifuse

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/glyph"

	"github.com/optifuse/optifuse/unirange"
	"github.com/optifuse/optifuse/woff"
)

// SubsetFile is one encoded font subset, delivered as an independently
// loadable pair of web font files.
type SubsetFile struct {
	// Name is the file stem shared by the .woff2 and .woff outputs.
	Name string
	// CSSRange is the unicode-range value covering the subset.
	CSSRange string

	WOFF2 []byte
	WOFF  []byte
}

// FontSubsets holds the outputs of the font pipeline for one font.
type FontSubsets struct {
	// Plan is the chunk plan the subsets were built from.
	Plan unirange.Plan
	// Subsets follow the plan order.
	Subsets []SubsetFile
	// CSS is the @font-face stylesheet referencing every subset.
	CSS []byte
}

// Coverage extracts the code-point repertoire of a font: every code point
// the best cmap subtable maps to a glyph.
func Coverage(data []byte) ([]rune, error) {
	font, err := sfnt.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAsset, err)
	}
	cm, err := font.CMapTable.GetBest()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAsset, err)
	}
	return coverage(cm), nil
}

func coverage(cm cmap.Subtable) []rune {
	var repertoire []rune
	low, high := cm.CodeRange()
	for cp := low; cp <= high; cp++ {
		if cm.Lookup(cp) != 0 {
			repertoire = append(repertoire, cp)
		}
	}
	return repertoire
}

// PlanFontSubsets partitions a repertoire using the processor's strategy
// and size bounds.
func (p *Processor) PlanFontSubsets(repertoire []rune) (unirange.Plan, error) {
	maxChunk := p.MaxChunk
	if maxChunk == 0 {
		maxChunk = unirange.MaxChunkSize
	}
	minMerge := p.MinMerge
	if minMerge == 0 {
		minMerge = unirange.MinMergeSize
	}
	return unirange.PartitionSized(repertoire, p.Strategy, maxChunk, minMerge)
}

// SubsetFont splits a font binary into size-bounded subsets and encodes
// each of them as WOFF2 plus WOFF. The per-subset encodes are pure
// functions of (font, subset) and run on a worker pool sized by the
// FontJobs option; results are collected by plan position, so the output
// order is deterministic regardless of completion order.
func (p *Processor) SubsetFont(data []byte, family string) (*FontSubsets, error) {
	repertoire, err := Coverage(data)
	if err != nil {
		return nil, err
	}
	plan, err := p.PlanFontSubsets(repertoire)
	if err != nil {
		return nil, err
	}

	jobs := p.FontJobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(plan) {
		jobs = len(plan)
	}

	stem := strings.ReplaceAll(family, " ", "-")
	subsets := make([]SubsetFile, len(plan))
	errs := make([]error, len(plan))
	tasks := make(chan int)

	var wg sync.WaitGroup
	wg.Add(jobs)
	for w := 0; w < jobs; w++ {
		go func() {
			defer wg.Done()

			// Each worker parses its own copy of the font, so subset
			// encodes share no mutable state.
			base, err := sfnt.Read(bytes.NewReader(data))
			var cm cmap.Subtable
			if err == nil {
				cm, err = base.CMapTable.GetBest()
			}
			for i := range tasks {
				if err != nil {
					errs[i] = err
					continue
				}
				subsets[i], errs[i] = encodeSubset(base, cm, plan[i], stem)
			}
		}()
	}
	for i := range plan {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return &FontSubsets{
		Plan:    plan,
		Subsets: subsets,
		CSS:     fontFaceCSS(family, p.FontWeight, p.FontStyle, subsets),
	}, nil
}

// encodeSubset builds the glyph set of one subset, cuts the font down to it
// and wraps the result into both container formats.
func encodeSubset(base *sfnt.Font, cm cmap.Subtable, sub unirange.Subset, stem string) (SubsetFile, error) {
	// GID 0 (.notdef) always leads the subset.
	glyphs := []glyph.ID{0}
	newGID := map[glyph.ID]glyph.ID{0: 0}
	mapping := make(map[rune]glyph.ID, len(sub.CodePoints))
	for _, cp := range sub.CodePoints {
		orig := cm.Lookup(cp)
		if orig == 0 {
			continue
		}
		gid, ok := newGID[orig]
		if !ok {
			gid = glyph.ID(len(glyphs))
			glyphs = append(glyphs, orig)
			newGID[orig] = gid
		}
		mapping[cp] = gid
	}

	subFont := base.Subset(glyphs)
	subFont.CMapTable = subsetCMap(mapping)

	var ttf bytes.Buffer
	if _, err := subFont.Write(&ttf); err != nil {
		return SubsetFile{}, err
	}

	var woff2Buf, woffBuf bytes.Buffer
	if err := woff.EncodeWOFF2(&woff2Buf, ttf.Bytes()); err != nil {
		return SubsetFile{}, err
	}
	if err := woff.Encode(&woffBuf, ttf.Bytes()); err != nil {
		return SubsetFile{}, err
	}

	return SubsetFile{
		Name:     fmt.Sprintf("%s-%s", stem, sub.Label()),
		CSSRange: sub.CSSRange(),
		WOFF2:    woff2Buf.Bytes(),
		WOFF:     woffBuf.Bytes(),
	}, nil
}

// subsetCMap builds the character map of a subset font as a Windows
// Unicode BMP subtable. Code points beyond the BMP keep their glyphs but
// are not remapped.
func subsetCMap(mapping map[rune]glyph.ID) cmap.Table {
	f4 := cmap.Format4{}
	for cp, gid := range mapping {
		if cp > 0xFFFF {
			continue
		}
		f4[uint16(cp)] = gid
	}

	table := make(cmap.Table)
	table[cmap.Key{PlatformID: 3, EncodingID: 1}] = f4.Encode(0)
	return table
}

// fontFaceCSS renders one @font-face rule per subset, scoped by
// unicode-range so browsers only fetch the files they need.
func fontFaceCSS(family, weight, style string, subsets []SubsetFile) []byte {
	var b strings.Builder
	for _, sub := range subsets {
		fmt.Fprintf(&b, "@font-face {\n"+
			"  font-family: '%s';\n"+
			"  font-style: %s;\n"+
			"  font-weight: %s;\n"+
			"  font-display: swap;\n"+
			"  src: url('%s.woff2') format('woff2'), url('%s.woff') format('woff');\n"+
			"  unicode-range: %s;\n"+
			"}\n\n",
			family, style, weight, sub.Name, sub.Name, sub.CSSRange)
	}
	return []byte(b.String())
}
