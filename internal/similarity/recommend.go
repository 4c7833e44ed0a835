package similarity

import "sort"

// RecommendationWeights are the hybrid-score weights §4.4 fixes at
// 0.5/0.3/0.2 but allows operators to override.
type RecommendationWeights struct {
	Content  float64
	Tag      float64
	Trending float64
}

func DefaultRecommendationWeights() RecommendationWeights {
	return RecommendationWeights{Content: 0.5, Tag: 0.3, Trending: 0.2}
}

// RecommendationCandidate carries the raw signals the hybrid score
// combines for one candidate content item relative to a seed item.
type RecommendationCandidate struct {
	ContentID       string
	Host            string
	HammingDistance int
	Jaccard         float64
	KeywordJaccard  float64
	SameCategory    bool
	Trending        float64 // pre-normalized [0,1] recency-weighted view count
}

type ScoredRecommendation struct {
	ContentID string
	Host      string
	Score     float64
}

const (
	contentDistanceCap    = 5
	maxResultsPerHost     = 2
	contentJaccardWeight  = 0.7
	contentSimHashWeight  = 0.3
	tagSameCategoryBonus  = 0.3
)

// contentComponent implements §4.4: 0.7*Jaccard + 0.3*(1-distance/64),
// only defined when the SimHash distance is <=5; otherwise content
// contributes nothing to the hybrid score.
func contentComponent(hammingDistance int, jaccard float64) float64 {
	if hammingDistance > contentDistanceCap {
		return 0
	}
	return contentJaccardWeight*jaccard + contentSimHashWeight*SimHashSimilarity(hammingDistance)
}

// tagComponent is keyword Jaccard plus a same-category bonus, capped at 1.
func tagComponent(keywordJaccard float64, sameCategory bool) float64 {
	score := keywordJaccard
	if sameCategory {
		score += tagSameCategoryBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

// HybridScore computes the §4.4 recommendation score for one candidate.
func HybridScore(c RecommendationCandidate, weights RecommendationWeights) float64 {
	content := contentComponent(c.HammingDistance, c.Jaccard)
	tag := tagComponent(c.KeywordJaccard, c.SameCategory)
	return weights.Content*content + weights.Tag*tag + weights.Trending*c.Trending
}

// Recommend scores every candidate, ranks descending, and applies the
// per-host diversification cap (no more than 2 results per host), per
// §4.4.
func Recommend(candidates []RecommendationCandidate, weights RecommendationWeights, limit int) []ScoredRecommendation {
	scored := make([]ScoredRecommendation, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredRecommendation{
			ContentID: c.ContentID,
			Host:      c.Host,
			Score:     HybridScore(c, weights),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return diversifyByHost(scored, limit)
}

func diversifyByHost(ranked []ScoredRecommendation, limit int) []ScoredRecommendation {
	hostCounts := make(map[string]int)
	var out []ScoredRecommendation
	for _, r := range ranked {
		if limit > 0 && len(out) >= limit {
			break
		}
		if hostCounts[r.Host] >= maxResultsPerHost {
			continue
		}
		hostCounts[r.Host]++
		out = append(out, r)
	}
	return out
}

// ColdStartFallback implements §4.4's "if no similarity history, fall
// back to category trending": rank purely by Trending, still subject to
// the host diversification cap.
func ColdStartFallback(candidates []RecommendationCandidate, limit int) []ScoredRecommendation {
	scored := make([]ScoredRecommendation, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredRecommendation{ContentID: c.ContentID, Host: c.Host, Score: c.Trending})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return diversifyByHost(scored, limit)
}
