package gazetteer

// DetectHub implements spec §4.3's "Hub detection output": a candidate
// is emitted when a chain or single URL-place match exists and the page
// looks like a landing page (nav-classified or high article-link
// density). The topic token prefers a page's declared section (e.g. an
// article:section meta tag) when it matches a recognized topic token
// anywhere in the URL, since that section's position in the URL path
// relative to the place segment is irrelevant to the host's own
// taxonomy; it only falls back to the trailing URL segment when no
// section is available or it doesn't match.
func DetectHub(result URLPlaceResult, section string, looksLikeLandingPage bool) (HubCandidate, bool) {
	if len(result.Chain) == 0 || !looksLikeLandingPage {
		return HubCandidate{}, false
	}

	place := result.Chain[len(result.Chain)-1]
	candidate := HubCandidate{
		PlaceSlug: place.Slug,
		PlaceKind: place.Kind,
	}

	if topic := sectionTopic(section, result.Topics); topic != nil {
		candidate.Topic = topic
	} else if len(result.Topics.Trailing) > 0 {
		last := result.Topics.Trailing[len(result.Topics.Trailing)-1]
		candidate.Topic = &HubTopic{
			Slug:   last.Segment,
			Label:  last.Segment,
			Kind:   "section",
			Source: "url",
		}
	}

	return candidate, true
}

// sectionTopic matches a page's section string against the recognized
// topic tokens resolve_url_places left over, regardless of whether they
// landed in Leading or Trailing, since a section is a page-level
// attribute independent of where its URL segment happens to sit.
func sectionTopic(section string, topics TopicPartition) *HubTopic {
	if section == "" {
		return nil
	}
	normalized := NormalizeName(section)
	if normalized == "" {
		return nil
	}
	for _, tok := range topics.All {
		if tok.Recognized && tok.Segment == normalized {
			return &HubTopic{
				Slug:   tok.Segment,
				Label:  section,
				Kind:   "section",
				Source: "section",
			}
		}
	}
	return nil
}
