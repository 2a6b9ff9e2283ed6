package optifuse

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/optifuse/optifuse/unirange"
)

// AssetType tags an input file with the pipeline that handles it.
type AssetType int

// The supported asset categories.
const (
	AssetUnknown AssetType = iota
	AssetRaster
	AssetVector
	AssetFont
)

// ErrUnsupportedAsset is returned when an input cannot be decoded by any of
// the asset pipelines. The error is fatal for the asset but a batch run
// continues with the remaining files.
var ErrUnsupportedAsset = errors.New("optifuse: unsupported asset")

var rasterExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}
var vectorExtensions = []string{".svg"}
var fontExtensions = []string{".ttf", ".otf"}

// DetectAssetType routes a file name to a pipeline based on its extension.
func DetectAssetType(path string) AssetType {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range rasterExtensions {
		if e == ext {
			return AssetRaster
		}
	}
	for _, e := range vectorExtensions {
		if e == ext {
			return AssetVector
		}
	}
	for _, e := range fontExtensions {
		if e == ext {
			return AssetFont
		}
	}
	return AssetUnknown
}

// SupportedExtensions lists every file extension the processor accepts.
func SupportedExtensions() []string {
	var exts []string
	exts = append(exts, rasterExtensions...)
	exts = append(exts, vectorExtensions...)
	exts = append(exts, fontExtensions...)
	return exts
}

// Processor options
type Processor struct {
	// Image options
	Lossless    bool
	Quality     int
	TargetRatio float64
	MaxSide     int
	AltText     string

	// SVG options
	SvgPretty bool

	// Font options
	FontFamily string
	FontWeight string
	FontStyle  string
	Strategy   unirange.Strategy
	MaxChunk   int
	MinMerge   int
	FontJobs   int
}

// NewProcessor returns a Processor with the compatibility-first defaults.
func NewProcessor() *Processor {
	return &Processor{
		Quality:     DefaultQuality,
		TargetRatio: DefaultTargetRatio,
		FontWeight:  "normal",
		FontStyle:   "normal",
		Strategy:    unirange.StrategyAuto,
		MaxChunk:    unirange.MaxChunkSize,
		MinMerge:    unirange.MinMergeSize,
	}
}

// ProcessFile runs the pipeline matching the source file type and writes the
// optimized outputs into destDir. It returns the paths of the created files.
func (p *Processor) ProcessFile(src, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create the destination dir: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("unable to read the source file: %w", err)
	}

	switch DetectAssetType(src) {
	case AssetRaster:
		return p.processRaster(data, destDir, stem)
	case AssetVector:
		return p.processVector(data, destDir, stem)
	case AssetFont:
		return p.processFont(data, destDir, stem)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, filepath.Base(src))
}

// processRaster writes the WebP, the interlaced fallback and the <picture>
// snippet for a raster source.
func (p *Processor) processRaster(data []byte, destDir, stem string) ([]string, error) {
	res, err := p.OptimizeRaster(data)
	if err != nil {
		return nil, err
	}

	webpPath := filepath.Join(destDir, stem+".webp")
	fallbackPath := filepath.Join(destDir, stem+"."+res.FallbackFormat)
	htmlPath := filepath.Join(destDir, stem+".html")

	if err := os.WriteFile(webpPath, res.WebP, 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(fallbackPath, res.Fallback, 0644); err != nil {
		return nil, err
	}
	alt := p.AltText
	if alt == "" {
		alt = stem
	}
	snippet := PictureSnippet(stem, alt, "."+res.FallbackFormat)
	if err := os.WriteFile(htmlPath, []byte(snippet), 0644); err != nil {
		return nil, err
	}
	return []string{webpPath, fallbackPath, htmlPath}, nil
}

// processVector writes the minified SVG.
func (p *Processor) processVector(data []byte, destDir, stem string) ([]string, error) {
	out := OptimizeSVG(data, p.SvgPretty)
	dest := filepath.Join(destDir, stem+".svg")
	if err := os.WriteFile(dest, out, 0644); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

// processFont writes one WOFF2 and one WOFF file per planned subset plus the
// @font-face stylesheet referencing them.
func (p *Processor) processFont(data []byte, destDir, stem string) ([]string, error) {
	family := p.FontFamily
	if family == "" {
		family = stem
	}
	subsets, err := p.SubsetFont(data, family)
	if err != nil {
		return nil, err
	}

	var created []string
	for _, sub := range subsets.Subsets {
		base := filepath.Join(destDir, sub.Name)
		woff2Path := base + ".woff2"
		woffPath := base + ".woff"
		if err := os.WriteFile(woff2Path, sub.WOFF2, 0644); err != nil {
			return nil, err
		}
		if err := os.WriteFile(woffPath, sub.WOFF, 0644); err != nil {
			return nil, err
		}
		created = append(created, woff2Path, woffPath)
	}

	cssPath := filepath.Join(destDir, strings.ReplaceAll(family, " ", "-")+".css")
	if err := os.WriteFile(cssPath, subsets.CSS, 0644); err != nil {
		return nil, err
	}
	return append(created, cssPath), nil
}
