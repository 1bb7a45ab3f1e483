package geocoding

import "strings"

var stateNames = map[string]string{
	"nsw": "new south wales",
	"qld": "queensland",
	"sa":  "south australia",
	"tas": "tasmania",
	"vic": "victoria",
	"wa":  "western australia",
	"act": "australian capital territory",
	"nt":  "northern territory",
}

// NormalizeState maps an abbreviation or full state name, in any case, to the
// lowercase full name used by the gazetteer.
func NormalizeState(state string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(state))
	if full, ok := stateNames[s]; ok {
		return full, true
	}
	for _, full := range stateNames {
		if s == full {
			return full, true
		}
	}
	return "", false
}
