package sanitizer

import (
	"net/url"

	"golang.org/x/net/html"
)

type SanitizedHTMLDoc struct {
	contentNode    *html.Node
	discoveredUrls []url.URL
}

func (s *SanitizedHTMLDoc) GetContentNode() *html.Node {
	return s.contentNode
}

func (s *SanitizedHTMLDoc) GetDiscoveredURLs() []url.URL {
	return s.discoveredUrls
}

// LinkStats counts the nav/article-pattern link density signals spec
// §4.2 step 3 feeds to classification, plus the structural markers
// (<article>, article-like microdata) that gate the "article" outcome.
type LinkStats struct {
	NavLinkCount     int
	ArticleLinkCount int
	WordCount        int
	HasArticleTag    bool
	HasArticleSchema bool
}
