package fishing

import "strings"

var (
	gulfCoastSpecies = []string{"Largemouth Bass", "Catfish", "Crappie", "Redfish", "Bluegill"}
	inlandSpecies    = []string{"Largemouth Bass", "Catfish", "Rainbow Trout", "Bluegill", "Carp"}
)

// DefaultSpeciesList is the offline species list for a "City, ST" location.
func DefaultSpeciesList(cityState string) []string {
	src := inlandSpecies
	if isAlabama(cityState) {
		src = gulfCoastSpecies
	}
	return append([]string(nil), src...)
}

func isAlabama(cityState string) bool {
	idx := strings.LastIndex(cityState, ",")
	if idx < 0 {
		return false
	}
	state := strings.ToUpper(strings.TrimSpace(cityState[idx+1:]))
	return state == "AL" || state == "ALABAMA"
}

// cleanSpeciesList trims names, drops blanks, duplicates and the reserved
// None/Other entries.
func cleanSpeciesList(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, name := range in {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] || strings.EqualFold(name, SpeciesNone) || strings.EqualFold(name, SpeciesOther) {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
