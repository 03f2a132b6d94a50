package kinetex

import "github.com/agext/levenshtein"

// suggestDistance is the largest edit distance still offered as a
// suggestion.
const suggestDistance = 2

// Suggest returns the known identifier closest to name, or "" when nothing
// is close enough. Ties go to the earliest declared identifier.
func Suggest(src Source, name string) string {
	best, bestDist := "", suggestDistance+1
	for _, names := range [][]string{
		src.ParameterNames(), src.VariableNames(), src.ReactionNames(), src.DerivedNames(),
	} {
		for _, n := range names {
			if d := levenshtein.Distance(name, n, nil); d < bestDist {
				best, bestDist = n, d
			}
		}
	}
	return best
}
