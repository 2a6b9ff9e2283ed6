package optifuse

import (
	"regexp"
	"strings"
)

// Patterns stripping the editor noise SVG authoring tools leave behind.
var (
	svgCommentRe  = regexp.MustCompile(`(?s)<!--.*?-->`)
	svgMetadataRe = regexp.MustCompile(`(?s)<metadata\b[^>]*>.*?</metadata>`)
	svgTitleRe    = regexp.MustCompile(`(?s)<title\b[^>]*>.*?</title>`)
	svgDescRe     = regexp.MustCompile(`(?s)<desc\b[^>]*>.*?</desc>`)
	svgDoctypeRe  = regexp.MustCompile(`(?s)<!DOCTYPE\b[^>]*>`)
	svgXMLDeclRe  = regexp.MustCompile(`(?s)<\?xml\b.*?\?>`)
	svgClassRe    = regexp.MustCompile(`\s+class="[^"]*"`)
	svgTagGapRe   = regexp.MustCompile(`>\s+<`)
	svgSpaceRe    = regexp.MustCompile(`\s+`)
)

// OptimizeSVG strips non-rendering content and class attributes from an SVG
// document and collapses the remaining whitespace. With pretty set the
// inter-tag line breaks are kept so the output stays diffable.
func OptimizeSVG(data []byte, pretty bool) []byte {
	out := string(data)
	out = svgCommentRe.ReplaceAllString(out, "")
	out = svgMetadataRe.ReplaceAllString(out, "")
	out = svgTitleRe.ReplaceAllString(out, "")
	out = svgDescRe.ReplaceAllString(out, "")
	out = svgDoctypeRe.ReplaceAllString(out, "")
	out = svgXMLDeclRe.ReplaceAllString(out, "")
	out = svgClassRe.ReplaceAllString(out, "")

	if pretty {
		out = svgTagGapRe.ReplaceAllString(out, ">\n<")
	} else {
		out = svgTagGapRe.ReplaceAllString(out, "><")
	}
	out = svgSpaceRe.ReplaceAllStringFunc(out, func(s string) string {
		if pretty && strings.Contains(s, "\n") {
			return "\n"
		}
		return " "
	})
	return []byte(strings.TrimSpace(out))
}
