// Package fuzzy proposes close matches for mistyped identifiers.
// Suggestions are advisory only; they populate validation issue hints
// and never affect a verdict.
package fuzzy

import "sort"

// ClosestMatch returns the known identifier nearest to unknown by edit
// distance, if it falls within the acceptance threshold. The threshold
// scales with identifier length (at least 2, or 20% of the length) so
// that single-character typos and transpositions on realistic
// domain.object_id strings are caught without matching unrelated names.
// Ties are broken lexically for deterministic output.
func ClosestMatch(unknown string, known []string) (string, bool) {
	if unknown == "" || len(known) == 0 {
		return "", false
	}

	candidates := make([]string, len(known))
	copy(candidates, known)
	sort.Strings(candidates)

	threshold := len(unknown) / 5
	if threshold < 2 {
		threshold = 2
	}

	best := ""
	bestDist := threshold + 1
	for _, c := range candidates {
		if d := distance(unknown, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// ClosestMatchSet is ClosestMatch over a set of known identifiers.
func ClosestMatchSet(unknown string, known map[string]struct{}) (string, bool) {
	candidates := make([]string, 0, len(known))
	for k := range known {
		candidates = append(candidates, k)
	}
	return ClosestMatch(unknown, candidates)
}

// distance computes the Levenshtein distance between a and b using a
// single rolling row.
func distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cur := row[j]
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			row[j] = min3(row[j]+1, row[j-1]+1, prev+cost)
			prev = cur
		}
	}
	return row[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
