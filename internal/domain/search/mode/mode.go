package mode

import "strings"

// Sort is the ranking strategy of a search.
type Sort string

// Sort mode constants.
const (
	// Relevance orders by backend relevance plus boosts.
	Relevance Sort = "relevance"
	// Recency decays relevance by document age.
	Recency Sort = "recency"
	// CustomBoost decays by age and requires at least one caller boost.
	CustomBoost Sort = "custom_boost"
)

// Parse maps a case-insensitive sort name to a Sort. Empty input yields Relevance.
func Parse(s string) (Sort, bool) {
	if s == "" {
		return Relevance, true
	}
	m := Sort(strings.ToLower(s))
	return m, m.IsValid()
}

// IsValid checks if the sort mode is one of the supported values.
func (m Sort) IsValid() bool {
	return m == Relevance || m == Recency || m == CustomBoost
}

// Decays reports whether the mode applies recency decay.
func (m Sort) Decays() bool {
	return m == Recency || m == CustomBoost
}
