package optifuse

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"
)

func TestCoverage_ReadsRepertoire(t *testing.T) {
	repertoire, err := Coverage(goregular.TTF)
	if err != nil {
		t.Fatalf("could not read the font coverage: %v", err)
	}
	if len(repertoire) == 0 {
		t.Fatalf("an empty repertoire was reported")
	}

	has := func(cp rune) bool {
		for _, r := range repertoire {
			if r == cp {
				return true
			}
		}
		return false
	}
	for _, cp := range []rune{'A', 'z', '0', ' '} {
		if !has(cp) {
			t.Errorf("U+%04X should be covered", cp)
		}
	}
}

func TestSubsetFont_CoversPlanAndEncodesBothContainers(t *testing.T) {
	proc := NewProcessor()

	subsets, err := proc.SubsetFont(goregular.TTF, "Go Regular")
	if err != nil {
		t.Fatalf("the font pipeline failed: %v", err)
	}
	if len(subsets.Subsets) != len(subsets.Plan) {
		t.Fatalf("got %d subsets for a plan of %d", len(subsets.Subsets), len(subsets.Plan))
	}

	for i, sub := range subsets.Subsets {
		if !strings.HasPrefix(sub.Name, "Go-Regular-") {
			t.Errorf("subset %d has an unexpected name: %q", i, sub.Name)
		}
		if !bytes.HasPrefix(sub.WOFF2, []byte("wOF2")) {
			t.Errorf("subset %q did not produce a WOFF2 container", sub.Name)
		}
		if !bytes.HasPrefix(sub.WOFF, []byte("wOFF")) {
			t.Errorf("subset %q did not produce a WOFF container", sub.Name)
		}
		if sub.CSSRange == "" {
			t.Errorf("subset %q has no unicode-range", sub.Name)
		}
	}

	css := string(subsets.CSS)
	if got, want := strings.Count(css, "@font-face"), len(subsets.Subsets); got != want {
		t.Errorf("the stylesheet holds %d @font-face rules for %d subsets", got, want)
	}
	if !strings.Contains(css, "font-family: 'Go Regular';") {
		t.Errorf("the stylesheet does not carry the family name")
	}
	if !strings.Contains(css, "font-display: swap;") {
		t.Errorf("the stylesheet does not set font-display")
	}
	if !strings.Contains(css, "unicode-range:") {
		t.Errorf("the stylesheet does not scope the subsets by unicode-range")
	}
}

func TestSubsetFont_ParallelismDoesNotChangeOutputs(t *testing.T) {
	serial := NewProcessor()
	serial.FontJobs = 1
	parallel := NewProcessor()
	parallel.FontJobs = 4

	a, err := serial.SubsetFont(goregular.TTF, "Go Regular")
	if err != nil {
		t.Fatalf("the serial run failed: %v", err)
	}
	b, err := parallel.SubsetFont(goregular.TTF, "Go Regular")
	if err != nil {
		t.Fatalf("the parallel run failed: %v", err)
	}

	if diff := cmp.Diff(a.Plan, b.Plan); diff != "" {
		t.Errorf("the plans differ (-serial +parallel):\n%s", diff)
	}
	var namesA, namesB []string
	for _, s := range a.Subsets {
		namesA = append(namesA, s.Name)
	}
	for _, s := range b.Subsets {
		namesB = append(namesB, s.Name)
	}
	if diff := cmp.Diff(namesA, namesB); diff != "" {
		t.Errorf("the subset order differs (-serial +parallel):\n%s", diff)
	}
	if !bytes.Equal(a.CSS, b.CSS) {
		t.Errorf("the stylesheets differ between serial and parallel runs")
	}
}

func TestSubsetFont_RejectsGarbage(t *testing.T) {
	proc := NewProcessor()

	if _, err := proc.SubsetFont([]byte("not a font"), "Broken"); !errors.Is(err, ErrUnsupportedAsset) {
		t.Errorf("expected ErrUnsupportedAsset, got %v", err)
	}
}
