// Package classify turns the DOM signals sanitizer.ComputeLinkStats
// produces into the page-kind and page-category labels the rest of the
// pipeline keys off: article vs nav vs minimal, and the optional
// in-depth/opinion/live/explainer/multimedia category list.
package classify

import (
	"net/url"

	"github.com/rohmanhakim/newscrawl/internal/sanitizer"
)

// PageKind is the coarse outcome of §4.2 step 3 classification.
type PageKind string

const (
	KindArticle PageKind = "article"
	KindNav     PageKind = "nav"
	KindMinimal PageKind = "minimal"
)

// PageCategory refines an article's kind with a secondary label derived
// from URL shape and, optionally, section word-count statistics.
type PageCategory string

const (
	CategoryInDepth    PageCategory = "in-depth"
	CategoryOpinion    PageCategory = "opinion"
	CategoryLive       PageCategory = "live"
	CategoryExplainer  PageCategory = "explainer"
	CategoryMultimedia PageCategory = "multimedia"
)

// ClassifyParam holds the classification thresholds. Mirrors the
// teacher's With*-builder config shape so callers can override defaults
// without a struct literal with private fields.
type ClassifyParam struct {
	minArticleWords    int
	minNavArticleLinks int
}

func DefaultClassifyParam() ClassifyParam {
	return ClassifyParam{
		minArticleWords:    300,
		minNavArticleLinks: 8,
	}
}

func (p ClassifyParam) WithMinArticleWords(n int) ClassifyParam {
	p.minArticleWords = n
	return p
}

func (p ClassifyParam) WithMinNavArticleLinks(n int) ClassifyParam {
	p.minNavArticleLinks = n
	return p
}

// SectionStats carries prior-article word-count statistics for a host's
// section, joined in optionally to sharpen in-depth detection (spec §4.2
// step 5: "optionally, section-level word-count statistics joined from
// prior articles on the same host").
type SectionStats struct {
	Host            string
	Section         string
	MedianWordCount int
	SampleSize      int
}

// ClassificationInput is everything the classifier needs: it never
// touches the network or the DOM directly, only the signals already
// extracted upstream.
type ClassificationInput struct {
	FinalURL    url.URL
	ContentType string
	LinkStats   sanitizer.LinkStats
	Section     *SectionStats
}

type ClassificationResult struct {
	Kind       PageKind
	Categories []PageCategory
}
