package gazetteer

import (
	"net/url"
	"strings"
	"unicode"
)

// tldCountry is the table-driven TLD to ISO-2 country code map §4.3's
// infer_context references. Not exhaustive - covers the common
// country-code TLDs the pack's gazetteer fixtures are expected to cover.
var tldCountry = map[string]string{
	"uk": "GB",
	"de": "DE",
	"fr": "FR",
	"jp": "JP",
	"cn": "CN",
	"in": "IN",
	"au": "AU",
	"ca": "CA",
	"br": "BR",
	"za": "ZA",
	"is": "IS",
	"mx": "MX",
	"es": "ES",
	"it": "IT",
	"nl": "NL",
	"ru": "RU",
	"kr": "KR",
	"us": "US",
}

// InferContext implements spec §4.3's infer_context: host, TLD-derived
// country, a domain_locales lookup for declared country/language, and
// any URL segments that look like ISO-2 codes.
func (g Gazetteer) InferContext(u url.URL) Context {
	host := strings.ToLower(u.Hostname())

	ctx := Context{Host: host}

	if tld := lastLabel(host); tld != "" {
		if cc, ok := tldCountry[tld]; ok {
			ctx.TLDCountryCode = cc
		}
	}

	if locale, ok := g.domainLocale[host]; ok {
		ctx.DomainCountry = locale.CountryCode
		ctx.DomainLanguage = locale.Language
	}

	for _, seg := range pathSegments(u.Path) {
		if looksLikeISO2(seg) {
			ctx.URLCountryCodes = append(ctx.URLCountryCodes, strings.ToUpper(seg))
		}
	}

	return ctx
}

func lastLabel(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func looksLikeISO2(segment string) bool {
	if len(segment) != 2 {
		return false
	}
	for _, r := range segment {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// preferredCountry is the tie-break country used when disambiguating
// slug/name matches: domain-declared country wins over TLD-inferred, and
// either wins over nothing.
func (c Context) preferredCountry() string {
	if c.DomainCountry != "" {
		return c.DomainCountry
	}
	return c.TLDCountryCode
}

func pathSegments(path string) []string {
	raw := strings.Split(strings.Trim(path, "/"), "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
