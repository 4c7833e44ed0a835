package extractor

import (
	"time"

	"golang.org/x/net/html"
)

// ExtractionMethod records which strategy produced the extracted text,
// per spec §4.2 step 4: the scheduler persists this alongside the
// article so later re-fetches of the same host can skip straight to a
// known-good XPath.
type ExtractionMethod string

const (
	MethodXPathHeuristics ExtractionMethod = "xpath+heuristics@v1"
	MethodXPathLearned    ExtractionMethod = "xpath-learned+heuristics@v1"
	MethodReadabilityOnly ExtractionMethod = "readability+heuristics@v1"
)

// ExtractParam tunes the heuristic scoring layer used both by the
// Readability-style fallback and by the persisted-XPath acceptance
// threshold (spec §4.2 step 4, `min_xpath_text`).
type ExtractParam struct {
	LinkDensityThreshold float64
	BodySpecificityBias  float64
	MinXPathText         int
}

func DefaultExtractParam() ExtractParam {
	return ExtractParam{
		LinkDensityThreshold: 0.5,
		BodySpecificityBias:  0.8,
		MinXPathText:         200,
	}
}

// PersistedXPath is a previously learned, host-scoped extraction path
// (spec §4.2 step 4: "If a persisted XPath exists for this host and
// yields text of length >= min_xpath_text, use it").
type PersistedXPath struct {
	Host      string
	Expr      string
	LearnedAt time.Time
}

// ExtractionResult holds the extraction outcome.
//
//   - DocumentRoot is the parsed HTML document.
//   - ContentNode is the node the winning strategy selected as the article body.
//   - Text is the flattened, whitespace-normalised article body.
//   - Method records which of the three strategies in spec §4.2 step 4 won.
//   - LearnedXPath is non-empty when this run learned and validated a new
//     XPath expression the caller should persist for the host, or when a
//     Readability-only fallback preserved a pre-existing persisted XPath
//     rather than erasing it.
type ExtractionResult struct {
	DocumentRoot *html.Node
	ContentNode  *html.Node
	Text         string
	Method       ExtractionMethod
	LearnedXPath string
}
