package resolve

import (
	"regexp"
	"strconv"
	"strings"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// ParsedQuery is an underlying name plus a strike extracted from a query.
type ParsedQuery struct {
	Name   string
	Strike float64
}

// RecognizedPrefixes returns the recognized underlying names the query
// is a case-insensitive prefix of. An empty query matches nothing.
func RecognizedPrefixes(query string) []string {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var names []string
	for _, u := range underlyings {
		if strings.HasPrefix(u.Name, q) {
			names = append(names, u.Name)
		}
	}
	return names
}

// ParseUnderlyingAndStrike extracts an underlying+strike pair from the
// query: the query must contain a recognized underlying name and at
// least one digit run. Ambiguous input resolves to the first recognized
// name in table order and the first digit run; stricter parsing is
// intentionally not attempted.
func ParseUnderlyingAndStrike(query string) (ParsedQuery, bool) {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return ParsedQuery{}, false
	}

	var name string
	for _, u := range underlyings {
		if strings.Contains(q, u.Name) {
			name = u.Name
			break
		}
	}
	if name == "" {
		return ParsedQuery{}, false
	}

	run := digitRun.FindString(q)
	if run == "" {
		return ParsedQuery{}, false
	}
	strike, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return ParsedQuery{}, false
	}

	return ParsedQuery{Name: name, Strike: strike}, true
}
