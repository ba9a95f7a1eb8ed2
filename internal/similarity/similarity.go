// Package similarity scores how alike two free-text item descriptions are.
package similarity

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// minTokenLength is the shortest token that takes part in matching; shorter
// tokens ("a", "of", "2x") are noise.
const minTokenLength = 3

// maxEditDistance is the largest edit distance at which two tokens still match.
const maxEditDistance = 1

// Tokens lower-cases s, splits it on whitespace and drops short tokens.
// Length is counted in runes, so "thé" is kept and "ñu" is dropped.
// Duplicates are kept once, in first-seen order.
func Tokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTokenLength {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// Distance is the Levenshtein edit distance between a and b with unit costs
// for insertion, deletion and substitution.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Score returns a similarity in [0,1] between two descriptions.
//
// Only the tokens of a are walked; a token counts once if some token of b
// contains it, is contained by it, or is within one edit of it. The count is
// divided by the larger token set. Score(a, b) and Score(b, a) can therefore
// differ when several tokens of one side match the same token of the other.
// Downstream thresholds are calibrated against this exact behaviour.
func Score(a, b string) float64 {
	ta := Tokens(a)
	tb := Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	matched := 0
	for _, x := range ta {
		for _, y := range tb {
			if tokensMatch(x, y) {
				matched++
				break
			}
		}
	}

	return float64(matched) / float64(max(len(ta), len(tb)))
}

func tokensMatch(x, y string) bool {
	if strings.Contains(y, x) || strings.Contains(x, y) {
		return true
	}
	return Distance(x, y) <= maxEditDistance
}
