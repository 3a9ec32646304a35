package domain

import "unicode/utf8"

// Score returns the number of characters at the start of typed that match
// reference exactly. Comparison is per rune, so multi-byte characters count once.
func Score(typed, reference string) int {
	if typed == "" || reference == "" {
		return 0
	}

	ref := []rune(reference)
	score := 0
	for _, r := range typed {
		if score >= len(ref) || ref[score] != r {
			break
		}
		score++
	}
	return score
}

// Progress converts a score into a fraction of the reference length, capped at 1.
func Progress(score int, reference string) float64 {
	total := utf8.RuneCountInString(reference)
	if total == 0 || score <= 0 {
		return 0
	}
	if score >= total {
		return 1
	}
	return float64(score) / float64(total)
}
