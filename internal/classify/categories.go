package classify

import (
	"strings"

	"github.com/rohmanhakim/newscrawl/internal/sanitizer"
)

// categoryOrder fixes the output order so callers get a stable slice
// regardless of map iteration order.
var categoryOrder = []PageCategory{
	CategoryInDepth,
	CategoryOpinion,
	CategoryLive,
	CategoryExplainer,
	CategoryMultimedia,
}

var categoryPathHints = map[PageCategory][]string{
	CategoryInDepth:    {"in-depth", "indepth", "long-read", "longread", "investigation", "feature"},
	CategoryOpinion:    {"opinion", "comment", "commentisfree", "editorial", "column"},
	CategoryLive:       {"live", "liveblog", "live-blog"},
	CategoryExplainer:  {"explainer", "explained", "what-is", "q-and-a", "qanda"},
	CategoryMultimedia: {"video", "gallery", "audio", "podcast"},
}

// inferCategories derives the page-category list spec §4.2 step 5 names
// from URL path segments, falling back to a content-type check for
// multimedia and an optional section word-count comparison for in-depth.
func inferCategories(path, contentType string, stats sanitizer.LinkStats, section *SectionStats) []PageCategory {
	segments := pathSegments(path)
	var found []PageCategory
	for _, cat := range categoryOrder {
		if hasSegmentHint(segments, categoryPathHints[cat]) {
			found = append(found, cat)
		}
	}

	if isMultimediaContentType(contentType) && !containsCategory(found, CategoryMultimedia) {
		found = append(found, CategoryMultimedia)
	}

	if section != nil && section.SampleSize > 0 && section.MedianWordCount > 0 &&
		stats.WordCount > section.MedianWordCount*2 && !containsCategory(found, CategoryInDepth) {
		found = append(found, CategoryInDepth)
	}

	return found
}

func pathSegments(path string) []string {
	raw := strings.Split(strings.Trim(path, "/"), "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segments = append(segments, strings.ToLower(s))
		}
	}
	return segments
}

func hasSegmentHint(segments, hints []string) bool {
	for _, seg := range segments {
		for _, hint := range hints {
			if seg == hint {
				return true
			}
		}
	}
	return false
}

func isMultimediaContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/")
}

func containsCategory(categories []PageCategory, target PageCategory) bool {
	for _, c := range categories {
		if c == target {
			return true
		}
	}
	return false
}
