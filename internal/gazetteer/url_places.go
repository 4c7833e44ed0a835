package gazetteer

import (
	"net/url"
	"strings"
)

// segmentMatch pairs a URL segment index with the place record chosen
// for it, so chain building can reason about ordering.
type segmentMatch struct {
	segmentIndex int
	record       PlaceRecord
}

// ResolveURLPlaces implements spec §4.3's resolve_url_places: split the
// path into segments, match each against slug_map (with tie-breaks),
// build the best ancestor chain, and partition the rest into topics.
func (g Gazetteer) ResolveURLPlaces(u url.URL, ctx Context) URLPlaceResult {
	segments := pathSegments(u.Path)

	var candidates []segmentMatch
	for i, seg := range segments {
		if rec, ok := g.bestSlugMatch(candidateSlugs(seg), ctx, i); ok {
			candidates = append(candidates, segmentMatch{segmentIndex: i, record: rec})
		}
	}

	chain := g.bestChain(candidates)

	matchedIndexes := make(map[int]bool, len(chain))
	firstMatch, lastMatch := -1, -1
	for _, m := range chain {
		matchedIndexes[m.segmentIndex] = true
		if firstMatch == -1 || m.segmentIndex < firstMatch {
			firstMatch = m.segmentIndex
		}
		if m.segmentIndex > lastMatch {
			lastMatch = m.segmentIndex
		}
	}

	topics := g.partitionTopics(segments, matchedIndexes, firstMatch, lastMatch)

	records := make([]PlaceRecord, 0, len(chain))
	for _, m := range chain {
		records = append(records, m.record)
	}

	return URLPlaceResult{Chain: records, Topics: topics}
}

// candidateSlugs generates the segment itself plus its hyphen-split
// parts, per §4.3: "the segment itself and its hyphen-split parts".
func candidateSlugs(segment string) []string {
	slugs := []string{NormalizeName(segment)}
	if strings.Contains(segment, "-") {
		for _, part := range strings.Split(segment, "-") {
			if part == "" {
				continue
			}
			slugs = append(slugs, NormalizeName(part))
		}
	}
	return slugs
}

// bestSlugMatch looks up each candidate slug in slug_map and applies the
// tie-break order: population descending, country-code match, earlier
// segment. "Earlier segment" only distinguishes between candidate slugs
// for the same segment (segment-itself before hyphen-parts), since
// bestSlugMatch is called once per segment.
func (g Gazetteer) bestSlugMatch(slugs []string, ctx Context, segmentIndex int) (PlaceRecord, bool) {
	preferredCC := ctx.preferredCountry()

	for _, slug := range slugs {
		records, ok := g.slugMap[slug]
		if !ok || len(records) == 0 {
			continue
		}
		return pickBestRecord(records, preferredCC), true
	}
	return PlaceRecord{}, false
}

// pickBestRecord applies the population-then-country tie-break among
// records sharing a slug. records is already population-sorted
// descending by NewGazetteer, so a country-code match only wins when it
// appears among the top-population ties; otherwise the top record wins.
func pickBestRecord(records []PlaceRecord, preferredCC string) PlaceRecord {
	if preferredCC == "" || len(records) == 1 {
		return records[0]
	}
	topPopulation := records[0].Population
	for _, r := range records {
		if r.Population != topPopulation {
			break
		}
		if r.CountryCode == preferredCC {
			return r
		}
	}
	return records[0]
}

// bestChain finds the ordered subsequence of candidates where each next
// match is a descendant of the previous (hierarchy.is_ancestor), scoring
// by length first, then cumulative population.
func (g Gazetteer) bestChain(candidates []segmentMatch) []segmentMatch {
	if len(candidates) == 0 {
		return nil
	}

	n := len(candidates)
	best := make([][]segmentMatch, n)
	for i := range candidates {
		best[i] = []segmentMatch{candidates[i]}
		for j := 0; j < i; j++ {
			if g.hierarchy.isAncestor(candidates[j].record.ID, candidates[i].record.ID) {
				extended := append(append([]segmentMatch{}, best[j]...), candidates[i])
				if chainBetter(extended, best[i]) {
					best[i] = extended
				}
			}
		}
	}

	var overall []segmentMatch
	for _, chain := range best {
		if chainBetter(chain, overall) {
			overall = chain
		}
	}
	return overall
}

func chainBetter(a, b []segmentMatch) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return chainPopulation(a) > chainPopulation(b)
}

func chainPopulation(chain []segmentMatch) int64 {
	var total int64
	for _, m := range chain {
		total += m.record.Population
	}
	return total
}

// partitionTopics groups non-place segments into leading (before the
// first match), trailing (after the last), and all, flagging each as
// recognized when it's a known topic token.
func (g Gazetteer) partitionTopics(segments []string, matched map[int]bool, firstMatch, lastMatch int) TopicPartition {
	var partition TopicPartition
	for i, seg := range segments {
		if matched[i] {
			continue
		}
		token := TopicToken{Segment: seg, Recognized: g.isTopicToken(seg)}
		partition.All = append(partition.All, token)
		if firstMatch == -1 || i < firstMatch {
			partition.Leading = append(partition.Leading, token)
		}
		if lastMatch != -1 && i > lastMatch {
			partition.Trailing = append(partition.Trailing, token)
		}
	}
	return partition
}
