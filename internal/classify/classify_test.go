package classify_test

import (
	"net/url"
	"testing"

	"github.com/rohmanhakim/newscrawl/internal/classify"
	"github.com/rohmanhakim/newscrawl/internal/sanitizer"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestClassify_ArticleWhenWordCountAndSignalPresent(t *testing.T) {
	c := classify.NewClassifier(classify.DefaultClassifyParam())

	result := c.Classify(classify.ClassificationInput{
		FinalURL: mustParse(t, "https://example.com/world/story"),
		LinkStats: sanitizer.LinkStats{
			WordCount:     500,
			HasArticleTag: true,
		},
	})

	require.Equal(t, classify.KindArticle, result.Kind)
}

func TestClassify_NotArticleWithoutSignalEvenWithWords(t *testing.T) {
	c := classify.NewClassifier(classify.DefaultClassifyParam())

	result := c.Classify(classify.ClassificationInput{
		FinalURL: mustParse(t, "https://example.com/world/story"),
		LinkStats: sanitizer.LinkStats{
			WordCount: 500,
		},
	})

	require.NotEqual(t, classify.KindArticle, result.Kind)
}

func TestClassify_NavWhenHighLinkDensityLowWords(t *testing.T) {
	c := classify.NewClassifier(classify.DefaultClassifyParam())

	result := c.Classify(classify.ClassificationInput{
		FinalURL: mustParse(t, "https://example.com/world"),
		LinkStats: sanitizer.LinkStats{
			WordCount:        40,
			ArticleLinkCount: 20,
		},
	})

	require.Equal(t, classify.KindNav, result.Kind)
}

func TestClassify_MinimalOtherwise(t *testing.T) {
	c := classify.NewClassifier(classify.DefaultClassifyParam())

	result := c.Classify(classify.ClassificationInput{
		FinalURL:  mustParse(t, "https://example.com/about"),
		LinkStats: sanitizer.LinkStats{WordCount: 20},
	})

	require.Equal(t, classify.KindMinimal, result.Kind)
}

func TestClassify_CategoriesFromURLPattern(t *testing.T) {
	c := classify.NewClassifier(classify.DefaultClassifyParam())

	result := c.Classify(classify.ClassificationInput{
		FinalURL: mustParse(t, "https://example.com/world/explainer/what-happened"),
		LinkStats: sanitizer.LinkStats{
			WordCount:     500,
			HasArticleTag: true,
		},
	})

	require.Contains(t, result.Categories, classify.PageCategory("explainer"))
}

func TestClassify_InDepthFromSectionWordCountComparison(t *testing.T) {
	c := classify.NewClassifier(classify.DefaultClassifyParam())

	result := c.Classify(classify.ClassificationInput{
		FinalURL: mustParse(t, "https://example.com/world/story"),
		LinkStats: sanitizer.LinkStats{
			WordCount:     2500,
			HasArticleTag: true,
		},
		Section: &classify.SectionStats{
			Host:            "example.com",
			Section:         "world",
			MedianWordCount: 600,
			SampleSize:      50,
		},
	})

	require.Contains(t, result.Categories, classify.CategoryInDepth)
}

func TestClassify_MultimediaFromContentType(t *testing.T) {
	c := classify.NewClassifier(classify.DefaultClassifyParam())

	result := c.Classify(classify.ClassificationInput{
		FinalURL:    mustParse(t, "https://example.com/world/clip"),
		ContentType: "video/mp4",
		LinkStats:   sanitizer.LinkStats{},
	})

	require.Contains(t, result.Categories, classify.CategoryMultimedia)
}
