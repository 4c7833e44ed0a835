package gazetteer

import "sort"

// Gazetteer is the in-memory structure built once at startup from the
// persistence layer's imported NDJSON tables (spec §3, §5 "Gazetteer
// import format").
type Gazetteer struct {
	nameMap      map[string][]PlaceRecord
	slugMap      map[string][]PlaceRecord
	hierarchy    hierarchy
	topicTokens  map[string]bool
	domainLocale map[string]DomainLocale
}

// NewGazetteer builds the four read-mostly indexes from the imported
// rows. Both name_map and slug_map are sorted by population descending,
// per §3.
func NewGazetteer(records []PlaceRecord, edges []HierarchyEdge, topicTokens []string, locales []DomainLocale) Gazetteer {
	g := Gazetteer{
		nameMap:      make(map[string][]PlaceRecord),
		slugMap:      make(map[string][]PlaceRecord),
		hierarchy:    newHierarchy(edges),
		topicTokens:  make(map[string]bool, len(topicTokens)),
		domainLocale: make(map[string]DomainLocale, len(locales)),
	}

	for _, r := range records {
		nameKey := NormalizeName(r.Name)
		g.nameMap[nameKey] = append(g.nameMap[nameKey], r)

		slugSource := r.Slug
		if slugSource == "" {
			slugSource = r.Name
		}
		slugKey := NormalizeName(slugSource)
		g.slugMap[slugKey] = append(g.slugMap[slugKey], r)
	}

	for _, list := range g.nameMap {
		sortByPopulationDesc(list)
	}
	for _, list := range g.slugMap {
		sortByPopulationDesc(list)
	}

	for _, t := range topicTokens {
		g.topicTokens[t] = true
	}
	for _, l := range locales {
		g.domainLocale[l.Host] = l
	}

	return g
}

func sortByPopulationDesc(records []PlaceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Population > records[j].Population
	})
}

func (g Gazetteer) isTopicToken(segment string) bool {
	return g.topicTokens[segment]
}
