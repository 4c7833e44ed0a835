package classify

import "github.com/rohmanhakim/newscrawl/internal/sanitizer"

// Classifier applies the thresholds in ClassifyParam to DOM signals.
// Classification is pure and cannot fail: every input maps to some
// PageKind, so there is no error return here.
type Classifier struct {
	params ClassifyParam
}

func NewClassifier(params ClassifyParam) Classifier {
	return Classifier{params: params}
}

func (c Classifier) Classify(input ClassificationInput) ClassificationResult {
	kind := c.classifyKind(input.LinkStats)
	categories := inferCategories(input.FinalURL.Path, input.ContentType, input.LinkStats, input.Section)
	return ClassificationResult{
		Kind:       kind,
		Categories: categories,
	}
}

// classifyKind implements spec §4.2 step 3's decision order: article
// first (word count plus an explicit article signal), then nav (link
// density without enough prose), else minimal.
func (c Classifier) classifyKind(stats sanitizer.LinkStats) PageKind {
	articleSignal := stats.HasArticleTag || stats.HasArticleSchema
	if stats.WordCount >= c.params.minArticleWords && articleSignal {
		return KindArticle
	}
	if stats.ArticleLinkCount >= c.params.minNavArticleLinks && stats.WordCount < c.params.minArticleWords {
		return KindNav
	}
	return KindMinimal
}
