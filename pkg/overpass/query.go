package overpass

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

type tagPair struct {
	key   string
	value string
}

// tagMap routes common category terms to concrete OSM tags. Tag queries
// return far better results than name matching for generic categories.
var tagMap = map[string][]tagPair{
	"gas":         {{"amenity", "fuel"}},
	"gas station": {{"amenity", "fuel"}},
	"fuel":        {{"amenity", "fuel"}},

	"grocery":     {{"shop", "supermarket"}, {"shop", "convenience"}, {"shop", "grocery"}},
	"supermarket": {{"shop", "supermarket"}},
	"convenience": {{"shop", "convenience"}},

	"salon":  {{"shop", "hairdresser"}, {"shop", "beauty"}},
	"barber": {{"shop", "barber"}, {"shop", "hairdresser"}},

	"pizza":      {{"amenity", "restaurant"}, {"amenity", "fast_food"}},
	"restaurant": {{"amenity", "restaurant"}},
	"cafe":       {{"amenity", "cafe"}},
	"coffee":     {{"amenity", "cafe"}},

	"pharmacy": {{"amenity", "pharmacy"}},
	"hospital": {{"amenity", "hospital"}},
	"hotel":    {{"tourism", "hotel"}},

	"gym":     {{"leisure", "fitness_centre"}, {"amenity", "gym"}},
	"fitness": {{"leisure", "fitness_centre"}, {"amenity", "gym"}},
}

var tagTerms = func() []string {
	terms := make([]string, 0, len(tagMap))
	for term := range tagMap {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}()

// matchCategory maps a search term to OSM tag pairs. Exact matches win;
// otherwise a fuzzy match lets abbreviations like "groc" or "pharm" reach
// their category. Short terms skip fuzzy matching, they match too much.
func matchCategory(term string) []tagPair {
	if pairs, ok := tagMap[term]; ok {
		return pairs
	}
	if len(term) < 3 {
		return nil
	}

	matches := fuzzy.Find(term, tagTerms)
	if len(matches) == 0 {
		return nil
	}
	return tagMap[matches[0].Str]
}

// regexFallbackKeys are the tag keys probed when no category matches and we
// resort to a case-insensitive value match.
var regexFallbackKeys = []string{"name", "amenity", "shop", "tourism"}

func buildQuery(term string, lat, lon float64, radiusM int) string {
	var selectors strings.Builder

	if pairs := matchCategory(term); pairs != nil {
		for _, p := range pairs {
			for _, kind := range []string{"node", "way", "relation"} {
				fmt.Fprintf(&selectors, "%s(around:%d,%f,%f)[%q=%q];\n", kind, radiusM, lat, lon, p.key, p.value)
			}
		}
	} else {
		safe := sanitizeTerm(term)
		for _, key := range regexFallbackKeys {
			for _, kind := range []string{"node", "way", "relation"} {
				fmt.Fprintf(&selectors, "%s(around:%d,%f,%f)[%q~%q,i];\n", kind, radiusM, lat, lon, key, safe)
			}
		}
	}

	return fmt.Sprintf("[out:json][timeout:60];\n(\n%s);\nout tags center;\n", selectors.String())
}

// sanitizeTerm strips characters that would break out of an Overpass QL
// quoted regex.
func sanitizeTerm(term string) string {
	term = strings.ReplaceAll(term, `"`, "")
	term = strings.ReplaceAll(term, `\`, "")
	return term
}
