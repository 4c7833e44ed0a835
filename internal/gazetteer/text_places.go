package gazetteer

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// token is a Unicode word run with its byte offsets in the source text.
type token struct {
	text  string
	start int
	end   int
}

// tokenize splits text into word runs, preserving byte offsets, per
// §4.3's "Tokenise into Unicode word runs, preserving offsets".
func tokenize(text string) []token {
	var tokens []token
	runes := []rune(text)

	byteOffset := 0
	i := 0
	for i < len(runes) {
		if !isWordRune(runes[i]) {
			byteOffset += len(string(runes[i]))
			i++
			continue
		}
		start := i
		startByte := byteOffset
		for i < len(runes) && isWordRune(runes[i]) {
			byteOffset += len(string(runes[i]))
			i++
		}
		tokens = append(tokens, token{
			text:  string(runes[start:i]),
			start: startByte,
			end:   byteOffset,
		})
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

const maxWindowTokens = 4

// ExtractPlacesFromText implements spec §4.3's extract_places_from_text:
// slide 1..4 token windows over the tokenized text, score every
// name_map match, keep the best candidate per window, then dedupe the
// full pass by (source, place_id, start, end).
func (g Gazetteer) ExtractPlacesFromText(text string, source PlaceSource, ctx Context, section string) []PlaceDetection {
	tokens := tokenize(text)
	var detections []PlaceDetection

	for i := range tokens {
		for width := 1; width <= maxWindowTokens && i+width <= len(tokens); width++ {
			window := tokens[i : i+width]
			phrase := joinTokens(window)
			key := NormalizeName(phrase)
			records, ok := g.nameMap[key]
			if !ok || len(records) == 0 {
				continue
			}

			best := g.scoreBestRecord(records, ctx, section, source)
			detections = append(detections, PlaceDetection{
				PlaceID:     best.ID,
				PlaceKind:   best.Kind,
				Method:      "name_map",
				Source:      source,
				OffsetStart: window[0].start,
				OffsetEnd:   window[len(window)-1].end,
				CountryCode: best.CountryCode,
			})
		}
	}

	return dedupeDetections(detections)
}

func joinTokens(window []token) string {
	parts := make([]string, len(window))
	for i, t := range window {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

// scoreBestRecord applies §4.3's disambiguation scoring: host country
// +5, TLD country +3, URL-inferred country +4, section substring match
// +2, title source +1, plus log10(population+1)*0.5.
func (g Gazetteer) scoreBestRecord(records []PlaceRecord, ctx Context, section string, source PlaceSource) PlaceRecord {
	var best PlaceRecord
	bestScore := math.Inf(-1)

	for _, r := range records {
		score := 0.0
		if ctx.DomainCountry != "" && r.CountryCode == ctx.DomainCountry {
			score += 5
		}
		if ctx.TLDCountryCode != "" && r.CountryCode == ctx.TLDCountryCode {
			score += 3
		}
		for _, cc := range ctx.URLCountryCodes {
			if r.CountryCode == cc {
				score += 4
				break
			}
		}
		if section != "" && strings.Contains(strings.ToLower(section), strings.ToLower(r.Name)) {
			score += 2
		}
		if source == SourceTitle {
			score += 1
		}
		score += math.Log10(float64(r.Population)+1) * 0.5

		if score > bestScore {
			bestScore = score
			best = r
		}
	}

	return best
}

func dedupeDetections(detections []PlaceDetection) []PlaceDetection {
	seen := make(map[string]bool, len(detections))
	out := make([]PlaceDetection, 0, len(detections))
	for _, d := range detections {
		key := dedupeKey(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

func dedupeKey(d PlaceDetection) string {
	return string(d.Source) + "|" + d.PlaceID + "|" + strconv.Itoa(d.OffsetStart) + "|" + strconv.Itoa(d.OffsetEnd)
}
