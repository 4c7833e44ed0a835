package gazetteer_test

import (
	"net/url"
	"testing"

	"github.com/rohmanhakim/newscrawl/internal/gazetteer"
	"github.com/stretchr/testify/require"
)

func newTestGazetteer() gazetteer.Gazetteer {
	records := []gazetteer.PlaceRecord{
		{ID: "iceland", Name: "Iceland", Slug: "iceland", Kind: gazetteer.PlaceKindCountry, CountryCode: "IS", Population: 370000},
		{ID: "reykjavik", Name: "Reykjavik", Slug: "reykjavik", Kind: gazetteer.PlaceKindCity, CountryCode: "IS", Population: 130000},
		{ID: "georgia-us", Name: "Georgia", Slug: "georgia", Kind: gazetteer.PlaceKindRegion, CountryCode: "US", Population: 10000000},
		{ID: "georgia-country", Name: "Georgia", Slug: "georgia", Kind: gazetteer.PlaceKindCountry, CountryCode: "GE", Population: 3700000},
	}
	edges := []gazetteer.HierarchyEdge{
		{ParentID: "iceland", ChildID: "reykjavik"},
	}
	topics := []string{"sport", "news"}
	locales := []gazetteer.DomainLocale{
		{Host: "example.is", CountryCode: "IS", Language: "is"},
	}
	return gazetteer.NewGazetteer(records, edges, topics, locales)
}

func mustParse(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestNormalizeName_StripsAccentsAndPunctuation(t *testing.T) {
	require.Equal(t, "reykjavik", gazetteer.NormalizeName("Reykjavík"))
	require.Equal(t, "sao-paulo", gazetteer.NormalizeName("São Paulo"))
}

func TestResolveURLPlaces_ChainAcrossHierarchy(t *testing.T) {
	g := newTestGazetteer()
	ctx := g.InferContext(mustParse(t, "https://example.is/iceland/reykjavik/sport/local-derby"))

	result := g.ResolveURLPlaces(mustParse(t, "https://example.is/iceland/reykjavik/sport/local-derby"), ctx)

	require.Len(t, result.Chain, 2)
	require.Equal(t, "iceland", result.Chain[0].ID)
	require.Equal(t, "reykjavik", result.Chain[1].ID)
	require.NotEmpty(t, result.Topics.Trailing)
	require.True(t, result.Topics.Trailing[0].Recognized)
	require.Equal(t, "sport", result.Topics.Trailing[0].Segment)
}

func TestResolveURLPlaces_TieBreaksByDomainCountry(t *testing.T) {
	g := newTestGazetteer()
	u := mustParse(t, "https://example.is/georgia/news")
	ctx := g.InferContext(u)

	result := g.ResolveURLPlaces(u, ctx)

	require.Len(t, result.Chain, 1)
	require.Equal(t, "IS", g.InferContext(u).DomainCountry)
	// domain country is IS, which doesn't match either Georgia record,
	// so the tie-break falls through to highest population (US region).
	require.Equal(t, "georgia-us", result.Chain[0].ID)
}

func TestExtractPlacesFromText_FindsAndDedupes(t *testing.T) {
	g := newTestGazetteer()
	ctx := gazetteer.Context{DomainCountry: "IS"}

	detections := g.ExtractPlacesFromText("Iceland clinches another win. Iceland celebrates.", gazetteer.SourceText, ctx, "")

	require.Len(t, detections, 2)
	for _, d := range detections {
		require.Equal(t, "iceland", d.PlaceID)
	}
	require.NotEqual(t, detections[0].OffsetStart, detections[1].OffsetStart)
}

func TestDetectHub_EmitsOnLandingPageWithTrailingTopic(t *testing.T) {
	g := newTestGazetteer()
	u := mustParse(t, "https://example.is/iceland/sport")
	ctx := g.InferContext(u)
	result := g.ResolveURLPlaces(u, ctx)

	candidate, ok := gazetteer.DetectHub(result, "", true)

	require.True(t, ok)
	require.Equal(t, "iceland", candidate.PlaceSlug)
	require.NotNil(t, candidate.Topic)
	require.Equal(t, "sport", candidate.Topic.Slug)
	require.Equal(t, "url", candidate.Topic.Source)
}

func TestDetectHub_NoCandidateWithoutLandingPageSignal(t *testing.T) {
	g := newTestGazetteer()
	u := mustParse(t, "https://example.is/iceland/sport")
	ctx := g.InferContext(u)
	result := g.ResolveURLPlaces(u, ctx)

	_, ok := gazetteer.DetectHub(result, "", false)

	require.False(t, ok)
}

func TestDetectHub_PrefersSectionTopicWhenTopicPrecedesPlace(t *testing.T) {
	g := newTestGazetteer()
	u := mustParse(t, "https://example.is/sport/iceland")
	ctx := g.InferContext(u)
	result := g.ResolveURLPlaces(u, ctx)
	require.NotEmpty(t, result.Topics.Leading)

	candidate, ok := gazetteer.DetectHub(result, "Sport", true)

	require.True(t, ok)
	require.Equal(t, "iceland", candidate.PlaceSlug)
	require.NotNil(t, candidate.Topic)
	require.Equal(t, "sport", candidate.Topic.Slug)
	require.Equal(t, "section", candidate.Topic.Source)
}
