// Package extractor implements the article-body extraction step of
// spec §4.2 step 4: a persisted, host-scoped XPath first, then a
// Readability-style fallback with an XPath-learn pass on top.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
	"github.com/rohmanhakim/newscrawl/pkg/failure"
	"golang.org/x/net/html"
)

/*
Responsibilities
- Parse HTML into a DOM tree
- Isolate the article body
- Remove site chrome and noise before scoring

Strategy, in order (spec §4.2 step 4):
  1. A persisted, host-scoped XPath, if one was supplied and it yields
     enough text.
  2. Readability-style extraction: semantic containers (main, article,
     [role=main]) first, then explicit chrome removal plus weighted
     text-density scoring.
  3. On success, learn an XPath from the chosen root and validate it
     re-extracts the same text before reporting it to the caller.
*/

type ArticleExtractor struct {
	recorder *telemetry.Recorder
	params   ExtractParam
}

func NewArticleExtractor(recorder *telemetry.Recorder, params ExtractParam) ArticleExtractor {
	return ArticleExtractor{recorder: recorder, params: params}
}

// Extract runs the full step-4 strategy for sourceURL. persisted is the
// previously-learned XPath for sourceURL's host, or nil if none exists.
func (d *ArticleExtractor) Extract(
	sourceURL url.URL,
	htmlByte []byte,
	persisted *PersistedXPath,
) (ExtractionResult, failure.ClassifiedError) {
	result, err := d.extract(htmlByte, persisted)
	if err != nil {
		var extractionError *ExtractionError
		errors.As(err, &extractionError)
		d.recorder.RecordError(
			time.Now(),
			"extractor",
			"ArticleExtractor.Extract",
			mapExtractionErrorToCause(extractionError),
			err.Error(),
			[]telemetry.Attribute{
				telemetry.NewAttr(telemetry.AttrURL, fmt.Sprintf("%v", sourceURL)),
			},
		)
		return ExtractionResult{}, extractionError
	}
	return result, nil
}

func (d *ArticleExtractor) extract(htmlByte []byte, persisted *PersistedXPath) (ExtractionResult, error) {
	doc, err := html.Parse(bytes.NewReader(htmlByte))
	if err != nil {
		return ExtractionResult{}, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}
	if !isValidHTML(doc) {
		return ExtractionResult{}, &ExtractionError{
			Message:   "input is not valid HTML document",
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}

	// Strategy 1: persisted, host-scoped XPath.
	if persisted != nil && persisted.Expr != "" {
		if node, text, ok := applyXPath(doc, persisted.Expr); ok && len(text) >= d.params.MinXPathText {
			return ExtractionResult{
				DocumentRoot: doc,
				ContentNode:  node,
				Text:         text,
				Method:       MethodXPathHeuristics,
				LearnedXPath: persisted.Expr,
			}, nil
		}
	}

	// Strategy 2: Readability-style extraction.
	contentNode := extractSemanticContainer(doc)
	if contentNode == nil {
		contentNode = d.extractContainerAfterExplicitChromesRemoval(*doc)
	}
	if contentNode == nil {
		return ExtractionResult{}, &ExtractionError{
			Message:   "no meaningful content container found",
			Retryable: false,
			Cause:     ErrCauseNoContent,
		}
	}
	text := FlattenText(contentNode)

	// Strategy 3: learn and validate an XPath from the winning root.
	if expr, ok := learnAndValidateXPath(doc, contentNode, text, d.params.MinXPathText); ok {
		return ExtractionResult{
			DocumentRoot: doc,
			ContentNode:  contentNode,
			Text:         text,
			Method:       MethodXPathLearned,
			LearnedXPath: expr,
		}, nil
	}

	fallback := ExtractionResult{
		DocumentRoot: doc,
		ContentNode:  contentNode,
		Text:         text,
		Method:       MethodReadabilityOnly,
	}
	if persisted != nil {
		fallback.LearnedXPath = persisted.Expr
	}
	return fallback, nil
}

func mapExtractionErrorToCause(err *ExtractionError) telemetry.ErrorCause {
	switch err.Cause {
	case ErrCauseNotHTML, ErrCauseNoContent:
		return telemetry.CauseContentInvalid
	default:
		return telemetry.CauseUnknown
	}
}

// applyXPath queries doc with expr via antchfx/htmlquery and flattens the
// matched subtree's text.
func applyXPath(doc *html.Node, expr string) (*html.Node, string, bool) {
	node, err := htmlquery.Query(doc, expr)
	if err != nil || node == nil {
		return nil, "", false
	}
	return node, FlattenText(node), true
}

// learnAndValidateXPath builds an absolute XPath to contentNode and
// confirms that re-querying doc with it reproduces the same text (spec
// §4.2 step 4: "validate it re-extracts the same text").
func learnAndValidateXPath(doc, contentNode *html.Node, originalText string, minLen int) (string, bool) {
	expr := nodeXPath(contentNode)
	if expr == "" {
		return "", false
	}
	node, text, ok := applyXPath(doc, expr)
	if !ok || node == nil || len(text) < minLen || text != originalText {
		return "", false
	}
	return expr, true
}

// nodeXPath builds an absolute, 1-indexed XPath expression locating n
// within its document, e.g. /html/body[1]/div[2]/article[1].
func nodeXPath(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Parent == nil || n.Parent.Type == html.DocumentNode {
		if n.Type == html.ElementNode {
			return "/" + n.Data
		}
		return ""
	}
	idx := 1
	for sib := n.Parent.FirstChild; sib != nil && sib != n; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			idx++
		}
	}
	parentPath := nodeXPath(n.Parent)
	if parentPath == "" {
		return ""
	}
	return parentPath + "/" + n.Data + "[" + strconv.Itoa(idx) + "]"
}

// FlattenText joins a subtree's text nodes with single spaces and
// collapses whitespace runs, matching the shape callers (classify,
// similarity, gazetteer) expect for word counting and tokenisation.
func FlattenText(node *html.Node) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return collapseWhitespace(b.String())
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// isValidHTML walks the tree to find an <html> element.
func isValidHTML(doc *html.Node) bool {
	var findHTML func(*html.Node) bool
	findHTML = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "html" {
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if findHTML(c) {
				return true
			}
		}
		return false
	}
	return findHTML(doc)
}

// extractSemanticContainer applies the first heuristic layer:
// Priority: <main> -> <article> -> [role="main"].
func extractSemanticContainer(doc *html.Node) *html.Node {
	gqDoc := goquery.NewDocumentFromNode(doc)

	if main := gqDoc.Find("main").First(); main.Length() > 0 {
		if node := main.Nodes[0]; isMeaningful(node) {
			return node
		}
	}
	if article := gqDoc.Find("article").First(); article.Length() > 0 {
		if node := article.Nodes[0]; isMeaningful(node) {
			return node
		}
	}
	if roleMain := gqDoc.Find("[role='main']").First(); roleMain.Length() > 0 {
		if node := roleMain.Nodes[0]; isMeaningful(node) {
			return node
		}
	}
	return nil
}

// extractContainerAfterExplicitChromesRemoval applies the fallback layer:
// remove chrome elements, then pick the best-scoring candidate container,
// biased toward a specific child over <body>.
func (d *ArticleExtractor) extractContainerAfterExplicitChromesRemoval(doc html.Node) *html.Node {
	cleanedDoc := removeExplicitChromes(&doc)
	if cleanedDoc == nil {
		return nil
	}
	contentNode := d.findBestContentContainer(cleanedDoc)
	if contentNode == nil || !isMeaningful(contentNode) {
		return nil
	}
	return contentNode
}

func removeExplicitChromes(doc *html.Node) *html.Node {
	clonedDoc := deepCloneNode(doc)
	if clonedDoc == nil {
		return nil
	}
	removeChromeElements(clonedDoc)
	removeElementsWithChromeAttributes(clonedDoc)
	return clonedDoc
}

func deepCloneNode(node *html.Node) *html.Node {
	if node == nil {
		return nil
	}
	cloned := &html.Node{
		Type:      node.Type,
		DataAtom:  node.DataAtom,
		Data:      node.Data,
		Namespace: node.Namespace,
	}
	if len(node.Attr) > 0 {
		cloned.Attr = make([]html.Attribute, len(node.Attr))
		copy(cloned.Attr, node.Attr)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if clonedChild := deepCloneNode(child); clonedChild != nil {
			cloned.AppendChild(clonedChild)
		}
	}
	return cloned
}

var chromeElementNames = map[string]bool{
	"nav":    true,
	"header": true,
	"footer": true,
	"aside":  true,
}

var chromeAttributeKeywords = []string{
	"nav", "sidebar", "menu", "breadcrumb",
	"search", "footer", "header", "cookie",
	"consent", "share", "related", "promo", "subscribe",
}

func removeChromeElements(root *html.Node) {
	var nodesToRemove []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode && chromeElementNames[n.Data] {
			nodesToRemove = append(nodesToRemove, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(root)
	for _, node := range nodesToRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

func removeElementsWithChromeAttributes(root *html.Node) {
	var nodesToRemove []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode && hasChromeAttribute(n) {
			nodesToRemove = append(nodesToRemove, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(root)
	for _, node := range nodesToRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

func hasChromeAttribute(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" || attr.Key == "id" {
			lowerValue := strings.ToLower(attr.Val)
			for _, keyword := range chromeAttributeKeywords {
				if strings.Contains(lowerValue, keyword) {
					return true
				}
			}
		}
	}
	return false
}

func (d *ArticleExtractor) findBestContentContainer(doc *html.Node) *html.Node {
	candidates := collectCandidateNodes(doc)
	if len(candidates) == 0 {
		return nil
	}

	scores := make(map[*html.Node]float64)
	var bodyNode *html.Node
	var bodyScore float64

	for _, candidate := range candidates {
		score := calculateContentScore(candidate, d.params.LinkDensityThreshold)
		scores[candidate] = score
		if candidate.Data == "body" {
			bodyNode = candidate
			bodyScore = score
		}
	}

	var bestNode *html.Node
	var bestScore float64
	for node, score := range scores {
		if score > bestScore {
			bestScore = score
			bestNode = node
		}
	}

	if bestNode == bodyNode && bodyNode != nil {
		for node, score := range scores {
			if node == bodyNode {
				continue
			}
			if score >= d.params.BodySpecificityBias*bodyScore && score > bestScore*0.9 {
				bestNode = node
				bestScore = score
				break
			}
		}
	}

	return bestNode
}

func collectCandidateNodes(root *html.Node) []*html.Node {
	var candidates []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "div", "section", "body", "article":
				candidates = append(candidates, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(root)
	return candidates
}

// calculateContentScore: +1 per 50 non-whitespace chars, +5 per
// paragraph, +10 per heading, +2 per list item, penalised by link
// density above threshold.
func calculateContentScore(node *html.Node, linkDensityThreshold float64) float64 {
	var stats struct {
		nonWhitespace int
		paragraphs    int
		headings      int
		listItems     int
		textLength    int
		linkTextLen   int
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		switch n.Type {
		case html.TextNode:
			text := n.Data
			stats.textLength += len(text)
			for _, r := range text {
				if !unicode.IsSpace(r) {
					stats.nonWhitespace++
				}
			}
		case html.ElementNode:
			switch n.Data {
			case "p":
				stats.paragraphs++
			case "h1", "h2", "h3":
				stats.headings++
			case "li":
				stats.listItems++
			case "a":
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						stats.linkTextLen += len(strings.TrimSpace(c.Data))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	score := float64(stats.nonWhitespace) / 50.0
	score += float64(stats.paragraphs) * 5.0
	score += float64(stats.headings) * 10.0
	score += float64(stats.listItems) * 2.0

	if stats.textLength > 0 {
		linkDensity := float64(stats.linkTextLen) / float64(stats.textLength)
		if linkDensity > linkDensityThreshold {
			penalty := (linkDensity - linkDensityThreshold) * score
			score -= penalty
		}
	}

	return score
}

// isMeaningful rejects nodes with little text or that are dominated by
// navigation links.
func isMeaningful(node *html.Node) bool {
	if node == nil {
		return false
	}

	var stats struct {
		textLength     int
		nonWhitespace  int
		headings       int
		paragraphs     int
		links          int
		linkTextLength int
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		switch n.Type {
		case html.TextNode:
			text := n.Data
			stats.textLength += len(text)
			for _, r := range text {
				if !unicode.IsSpace(r) {
					stats.nonWhitespace++
				}
			}
		case html.ElementNode:
			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				stats.headings++
			case "p":
				stats.paragraphs++
			case "a":
				stats.links++
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						stats.linkTextLength += len(strings.TrimSpace(c.Data))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	const minNonWhitespace = 50
	const minParagraphs = 1
	const maxLinkDensity = 0.8

	if stats.nonWhitespace < minNonWhitespace {
		return false
	}

	if stats.textLength > 0 {
		linkDensity := float64(stats.linkTextLength) / float64(stats.textLength)
		if linkDensity > maxLinkDensity && stats.links > 2 {
			return false
		}
	}

	hasContent := stats.paragraphs >= minParagraphs
	hasHeadingsWithText := stats.headings > 0 && stats.nonWhitespace >= 20

	return hasContent || hasHeadingsWithText
}
