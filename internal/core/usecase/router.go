package usecase

import (
	"fmt"
	"regexp"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

var (
	// Explicit section references take priority over bare dotted codes.
	sectionPattern = regexp.MustCompile(`(?i)\b(?:section|bölüm|madde)\s*(\d+(?:\.\d+)*)\b`)
	codePattern    = regexp.MustCompile(`\b(\d+(?:\.\d+)+)\b`)

	gazettePattern  = regexp.MustCompile(`(?i)\bR\.?G\.?\s*(\d+)\b`)
	decisionPattern = regexp.MustCompile(`(?i)\bA\.?E\.?\s*(\d+)\b`)
	appendixPattern = regexp.MustCompile(`(?i)\bEK\s*([IVXLCDM]+)\b`)
	datePattern     = regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{4}\b`)
)

// Router classifies a raw query into a search strategy using pattern
// matching only. Classification is fully reproducible from the query text;
// no model call is involved.
type Router struct{}

func NewRouter() Router {
	return Router{}
}

func (Router) Route(query string) domain.RoutingDecision {
	if code := detectCode(query); code != "" {
		return domain.RoutingDecision{
			QueryType:     domain.QueryTypeCode,
			ExtractedCode: code,
			Reasoning:     fmt.Sprintf("detected regulation code pattern: %s", code),
		}
	}

	if meta := detectMetadata(query); meta != "" {
		return domain.RoutingDecision{
			QueryType:         domain.QueryTypeMetadata,
			ExtractedMetadata: meta,
			Reasoning:         fmt.Sprintf("detected metadata pattern: %s", meta),
		}
	}

	return domain.RoutingDecision{
		QueryType: domain.QueryTypeVector,
		Reasoning: "natural language query, using semantic search",
	}
}

func detectCode(query string) string {
	if m := sectionPattern.FindStringSubmatch(query); m != nil {
		return m[1]
	}
	if m := codePattern.FindStringSubmatch(query); m != nil {
		return m[1]
	}
	return ""
}

// detectMetadata checks the metadata patterns in fixed priority order, so
// only the first matching label is reported.
func detectMetadata(query string) string {
	patterns := []struct {
		re    *regexp.Regexp
		label string
	}{
		{gazettePattern, "R.G."},
		{decisionPattern, "A.E."},
		{appendixPattern, "EK"},
		{datePattern, "date"},
	}

	for _, p := range patterns {
		if m := p.re.FindString(query); m != "" {
			return p.label + " " + m
		}
	}
	return ""
}
